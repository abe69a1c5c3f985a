package ledger

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

type AccountInput struct {
	Type           models.AccountType
	Name           string
	Description    string
	InitialBalance decimal.Decimal
	CreditLimit    *decimal.Decimal
	InterestRate   *decimal.Decimal
}

// AccountUpdate lists the fields a client may change after creation. The
// balance is deliberately absent.
type AccountUpdate struct {
	Name         string
	Description  string
	CreditLimit  *decimal.Decimal
	InterestRate *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func validateLimits(creditLimit, interestRate *decimal.Decimal) error {
	if creditLimit != nil && !validAmount(*creditLimit) {
		return models.Invalid("credit limit must be positive with at most 2 decimal places")
	}
	if interestRate != nil && (interestRate.IsNegative() || interestRate.GreaterThan(hundred)) {
		return models.Invalid("interest rate must be between 0 and 100")
	}
	return nil
}

func (in AccountInput) validate() error {
	if !in.Type.Valid() {
		return models.Invalid("unknown account type %q", in.Type)
	}
	if err := checkLength("account name", in.Name, 2, 100); err != nil {
		return err
	}
	if err := checkLength("description", in.Description, 0, 255); err != nil {
		return err
	}
	if in.InitialBalance.IsNegative() || !in.InitialBalance.Equal(in.InitialBalance.Round(2)) {
		return models.Invalid("initial balance must be non-negative with at most 2 decimal places")
	}
	return validateLimits(in.CreditLimit, in.InterestRate)
}

// CreateAccount opens an account for the user with a fresh account number.
func (s *Service) CreateAccount(ctx context.Context, userID int64, in AccountInput) (*models.Account, error) {
	if in.Name == "" {
		in.Name = defaultNames[in.Type]
	}
	if rate, ok := defaultRates[in.Type]; ok && in.InterestRate == nil {
		in.InterestRate = &rate
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	a := &models.Account{
		UserID:       userID,
		Type:         in.Type,
		Name:         in.Name,
		Description:  in.Description,
		Balance:      in.InitialBalance,
		CreditLimit:  in.CreditLimit,
		InterestRate: in.InterestRate,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.InTx(ctx, func(r store.Repository) error {
		if _, err := r.GetUser(ctx, userID); err != nil {
			return err
		}
		return s.open(ctx, r, a)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("account %s opened for user %d", a.AccountNumber, userID)
	return a, nil
}

func (s *Service) open(ctx context.Context, r store.Repository, a *models.Account) error {
	number, err := s.accountNumber(ctx, r)
	if err != nil {
		return err
	}
	a.AccountNumber = number
	return r.CreateAccount(ctx, a)
}

var defaultRates = map[models.AccountType]decimal.Decimal{
	models.Savings:    decimal.RequireFromString("0.025"),
	models.Checking:   decimal.RequireFromString("0.005"),
	models.Investment: decimal.RequireFromString("0.045"),
}

var defaultNames = map[models.AccountType]string{
	models.Savings:    "My Savings Account",
	models.Checking:   "My Checking Account",
	models.CreditCard: "My Credit Card",
	models.Loan:       "My Loan Account",
	models.Investment: "My Investment Account",
}

// OpenDefaultAccount creates the savings account every new user starts with.
// It runs inside the caller's unit of work.
func (s *Service) OpenDefaultAccount(ctx context.Context, r store.Repository, userID int64) (*models.Account, error) {
	now := s.now()
	rate := defaultRates[models.Savings]
	a := &models.Account{
		UserID:       userID,
		Type:         models.Savings,
		Name:         defaultNames[models.Savings],
		Description:  "Primary savings account",
		Balance:      s.cfg.InitialBalance,
		InterestRate: &rate,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.open(ctx, r, a); err != nil {
		return nil, err
	}
	return a, nil
}

// owned loads an account and hides accounts of other users behind not-found.
func owned(ctx context.Context, r store.Repository, userID, accountID int64) (*models.Account, error) {
	a, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, models.NotFound("account %d", accountID)
	}
	return a, nil
}

// ListAccounts returns the user's active accounts.
func (s *Service) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	var out []models.Account
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListAccounts(ctx, userID)
		return err
	})
	return out, err
}

// GetAccount returns one of the user's accounts. Accounts of other users
// are reported as not found.
func (s *Service) GetAccount(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	var a *models.Account
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		a, err = owned(ctx, r, userID, accountID)
		return err
	})
	return a, err
}

func (s *Service) UpdateAccount(ctx context.Context, userID, accountID int64, in AccountUpdate) (*models.Account, error) {
	if err := checkLength("account name", in.Name, 2, 100); err != nil {
		return nil, err
	}
	if err := checkLength("description", in.Description, 0, 255); err != nil {
		return nil, err
	}
	if err := validateLimits(in.CreditLimit, in.InterestRate); err != nil {
		return nil, err
	}

	var a *models.Account
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if a, err = owned(ctx, r, userID, accountID); err != nil {
			return err
		}
		a.Name = in.Name
		a.Description = in.Description
		a.CreditLimit = in.CreditLimit
		a.InterestRate = in.InterestRate
		a.UpdatedAt = s.now()
		return r.UpdateAccount(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateAccount closes an account. Only a zero balance may be closed;
// closing an already closed account is a no-op.
func (s *Service) DeactivateAccount(ctx context.Context, userID, accountID int64) error {
	return s.store.InTx(ctx, func(r store.Repository) error {
		if _, err := owned(ctx, r, userID, accountID); err != nil {
			return err
		}
		locked, err := r.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		a := locked[accountID]
		if !a.Balance.IsZero() {
			return models.Violation("cannot deactivate account with non-zero balance")
		}
		if !a.Active {
			return nil
		}
		a.Active = false
		a.UpdatedAt = s.now()
		if err := r.UpdateAccount(ctx, a); err != nil {
			return err
		}
		log.Printf("account %s deactivated", a.AccountNumber)
		return nil
	})
}
