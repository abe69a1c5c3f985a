// Package budget tracks per-category spending ceilings against the
// transaction log.
package budget

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/store"
)

var defaultThreshold = decimal.NewFromInt(80)

type Input struct {
	Category       string
	Limit          decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	Period         models.BudgetPeriod
	AlertEnabled   *bool
	AlertThreshold *decimal.Decimal
	Description    string
	Active         *bool
}

func (in Input) validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Category)); n < 2 || n > 100 {
		return models.Invalid("category must be between 2 and 100 characters")
	}
	if !in.Limit.IsPositive() || !in.Limit.Equal(in.Limit.Round(2)) {
		return models.Invalid("budget limit must be positive with at most 2 decimal places")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return models.Invalid("start date and end date are required")
	}
	if models.Day(in.EndDate).Before(models.Day(in.StartDate)) {
		return models.Invalid("end date must not precede start date")
	}
	if !in.Period.Valid() {
		return models.Invalid("unknown budget period %q", in.Period)
	}
	if t := in.AlertThreshold; t != nil && (t.IsNegative() || t.GreaterThan(hundred)) {
		return models.Invalid("alert threshold must be between 0 and 100")
	}
	if utf8.RuneCountInString(in.Description) > 255 {
		return models.Invalid("description must not exceed 255 characters")
	}
	return nil
}

// fill copies the input onto b, applying the defaults for omitted flags.
func (in Input) fill(b *models.Budget) {
	b.Category = strings.TrimSpace(in.Category)
	b.Limit = in.Limit
	b.StartDate = models.Day(in.StartDate)
	b.EndDate = models.Day(in.EndDate)
	b.Period = in.Period
	b.AlertEnabled = true
	if in.AlertEnabled != nil {
		b.AlertEnabled = *in.AlertEnabled
	}
	b.AlertThreshold = defaultThreshold
	if in.AlertThreshold != nil {
		b.AlertThreshold = *in.AlertThreshold
	}
	b.Description = in.Description
	b.Active = true
	if in.Active != nil {
		b.Active = *in.Active
	}
}

// Service manages budgets and keeps their spent amount current.
type Service struct {
	store store.Store
	now   func() time.Time
}

// New creates a budget service over st.
func New(st store.Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Today is the reference day used for derived fields.
func (s *Service) Today() time.Time {
	return models.Day(s.now())
}

// ensureUnique rejects a second active budget for the same category.
func ensureUnique(ctx context.Context, r store.Repository, b *models.Budget) error {
	if !b.Active {
		return nil
	}
	existing, err := r.FindActiveBudget(ctx, b.UserID, b.Category)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != b.ID:
		return models.Violation("active budget already exists for category: %s", b.Category)
	}
	return nil
}

// CreateBudget records a budget and computes its spent amount from
// existing postings.
func (s *Service) CreateBudget(ctx context.Context, userID int64, in Input) (*models.Budget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	b := &models.Budget{UserID: userID, CurrentSpent: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	in.fill(b)

	err := s.store.InTx(ctx, func(r store.Repository) error {
		if err := ensureUnique(ctx, r, b); err != nil {
			return err
		}
		if err := r.CreateBudget(ctx, b); err != nil {
			return err
		}
		return s.RecomputeSpent(ctx, r, b)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("budget %d created for user %d in category %s", b.ID, userID, b.Category)
	return b, nil
}

func ownedBudget(ctx context.Context, r store.Repository, userID, budgetID int64) (*models.Budget, error) {
	b, err := r.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, models.NotFound("budget %d", budgetID)
	}
	return b, nil
}

// UpdateBudget replaces the editable fields and recomputes spent.
func (s *Service) UpdateBudget(ctx context.Context, userID, budgetID int64, in Input) (*models.Budget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var b *models.Budget
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if b, err = ownedBudget(ctx, r, userID, budgetID); err != nil {
			return err
		}
		in.fill(b)
		if err := ensureUnique(ctx, r, b); err != nil {
			return err
		}
		return s.RecomputeSpent(ctx, r, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBudget deactivates a budget; its history stays.
func (s *Service) DeleteBudget(ctx context.Context, userID, budgetID int64) error {
	return s.store.InTx(ctx, func(r store.Repository) error {
		b, err := ownedBudget(ctx, r, userID, budgetID)
		if err != nil {
			return err
		}
		b.Active = false
		b.UpdatedAt = s.now()
		return r.UpdateBudget(ctx, b)
	})
}

func (s *Service) GetBudget(ctx context.Context, userID, budgetID int64) (*models.Budget, error) {
	var b *models.Budget
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		b, err = ownedBudget(ctx, r, userID, budgetID)
		return err
	})
	return b, err
}

// ListBudgets returns the user's active budgets.
func (s *Service) ListBudgets(ctx context.Context, userID int64) ([]models.Budget, error) {
	var out []models.Budget
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListBudgets(ctx, userID)
		return err
	})
	return out, err
}

func (s *Service) filter(ctx context.Context, userID int64, keep func(models.Budget) bool) ([]models.Budget, error) {
	all, err := s.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []models.Budget
	for _, b := range all {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// OverBudgets lists the user's budgets whose spent exceeds the limit.
func (s *Service) OverBudgets(ctx context.Context, userID int64) ([]models.Budget, error) {
	return s.filter(ctx, userID, OverBudget)
}

// AlertingBudgets lists the user's budgets at or past their alert threshold.
func (s *Service) AlertingBudgets(ctx context.Context, userID int64) ([]models.Budget, error) {
	return s.filter(ctx, userID, ShouldAlert)
}

// RecomputeSpent replaces CurrentSpent with the full sum of the user's postings in
// the budget category between start 00:00:00 and end 23:59:59.
func (s *Service) RecomputeSpent(ctx context.Context, r store.Repository, b *models.Budget) error {
	from := models.Day(b.StartDate)
	to := models.Day(b.EndDate).Add(24*time.Hour - time.Second)
	spent, err := r.SumByCategory(ctx, b.UserID, b.Category, from, to)
	if err != nil {
		return err
	}
	b.CurrentSpent = spent
	b.UpdatedAt = s.now()
	return r.UpdateBudget(ctx, b)
}

// RecomputeCategory refreshes the active budget of a category, if any.
func (s *Service) RecomputeCategory(ctx context.Context, userID int64, category string) error {
	return s.store.InTx(ctx, func(r store.Repository) error {
		b, err := r.FindActiveBudget(ctx, userID, category)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.RecomputeSpent(ctx, r, b)
	})
}

type categoryKey struct {
	userID   int64
	category string
}

// Posted keeps budgets current as postings commit.
func (s *Service) Posted(ctx context.Context, postings []ledger.Posting) {
	seen := map[categoryKey]bool{}
	for _, p := range postings {
		k := categoryKey{p.UserID, p.Transaction.Category}
		if k.category == "" || seen[k] {
			continue
		}
		seen[k] = true
		if err := s.RecomputeCategory(ctx, k.userID, k.category); err != nil {
			log.Printf("recompute budget %q for user %d: %v", k.category, k.userID, err)
		}
	}
}
