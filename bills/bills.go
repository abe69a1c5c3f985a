// Package bills tracks payee obligations and pays them through the ledger.
package bills

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/store"
)

// Input is the client-editable part of a bill.
type Input struct {
	PayeeName          string
	Amount             decimal.Decimal
	DueDate            time.Time
	Category           string
	Description        string
	Recurring          bool
	Frequency          models.Frequency
	AutoPay            bool
	AutoPayAccountID   *int64
	PayeeAccountNumber string
	PayeeAddress       string
}

func (in Input) validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.PayeeName)); n < 2 || n > 100 {
		return models.Invalid("payee name must be between 2 and 100 characters")
	}
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return models.Invalid("amount must be positive with at most 2 decimal places")
	}
	if in.DueDate.IsZero() {
		return models.Invalid("due date is required")
	}
	if in.Recurring && !in.Frequency.Valid() {
		return models.Invalid("recurring bills require a recurrence frequency")
	}
	if in.AutoPay && in.AutoPayAccountID == nil {
		return models.Invalid("auto-pay requires an account")
	}
	if utf8.RuneCountInString(in.Category) > 100 || utf8.RuneCountInString(in.PayeeAccountNumber) > 100 {
		return models.Invalid("category and payee account number must not exceed 100 characters")
	}
	if utf8.RuneCountInString(in.Description) > 255 || utf8.RuneCountInString(in.PayeeAddress) > 255 {
		return models.Invalid("description and payee address must not exceed 255 characters")
	}
	return nil
}

func (in Input) fill(b *models.Bill) {
	b.PayeeName = strings.TrimSpace(in.PayeeName)
	b.Amount = in.Amount
	b.DueDate = models.Day(in.DueDate)
	b.Category = in.Category
	b.Description = in.Description
	b.Recurring = in.Recurring
	b.RecurrenceFrequency = ""
	b.NextDueDate = nil
	if in.Recurring {
		b.RecurrenceFrequency = in.Frequency
		next := advance(b.DueDate, in.Frequency)
		b.NextDueDate = &next
	}
	b.AutoPay = in.AutoPay
	b.AutoPayAccountID = nil
	if in.AutoPay {
		b.AutoPayAccountID = in.AutoPayAccountID
	}
	b.PayeeAccountNumber = in.PayeeAccountNumber
	b.PayeeAddress = in.PayeeAddress
}

// advance returns the occurrence after due for the given frequency.
func advance(due time.Time, f models.Frequency) time.Time {
	switch f {
	case models.FreqWeekly:
		return due.AddDate(0, 0, 7)
	case models.FreqMonthly:
		return addMonths(due, 1)
	case models.FreqQuarterly:
		return addMonths(due, 3)
	case models.FreqAnnually:
		return addMonths(due, 12)
	}
	return due
}

// addMonths moves t forward n calendar months, clamping the day to the last
// day of the target month: Jan 31 plus one month is Feb 28 (or 29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// Service manages bills and pays them through the ledger.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	now    func() time.Time
}

// New creates a bill service over st that posts payments through led.
func New(st store.Store, led *ledger.Service) *Service {
	return &Service{store: st, ledger: led, now: func() time.Time { return time.Now().UTC() }}
}

// Today is the current calendar day in UTC.
func (s *Service) Today() time.Time {
	return models.Day(s.now())
}

func ownedBill(ctx context.Context, r store.Repository, userID, billID int64) (*models.Bill, error) {
	b, err := r.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, models.NotFound("bill %d", billID)
	}
	return b, nil
}

func checkAutoPayAccount(ctx context.Context, r store.Repository, userID int64, b *models.Bill) error {
	if !b.AutoPay {
		return nil
	}
	a, err := r.GetAccount(ctx, *b.AutoPayAccountID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return models.NotFound("account %d", a.ID)
	}
	if !a.Active {
		return models.Violation("auto-pay account %s is inactive", a.AccountNumber)
	}
	return nil
}

// CreateBill records a pending bill. The due date may not be in the past.
func (s *Service) CreateBill(ctx context.Context, userID int64, in Input) (*models.Bill, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if models.Day(in.DueDate).Before(s.Today()) {
		return nil, models.Invalid("due date cannot be in the past")
	}
	now := s.now()
	b := &models.Bill{UserID: userID, Status: models.BillPending, CreatedAt: now, UpdatedAt: now}
	in.fill(b)

	err := s.store.InTx(ctx, func(r store.Repository) error {
		if err := checkAutoPayAccount(ctx, r, userID, b); err != nil {
			return err
		}
		return r.CreateBill(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("bill %d created for user %d: %s %s due %s", b.ID, userID, b.PayeeName,
		b.Amount.StringFixed(2), b.DueDate.Format(time.DateOnly))
	return b, nil
}

// ListBills returns the user's bills ordered by due date.
func (s *Service) ListBills(ctx context.Context, userID int64) ([]models.Bill, error) {
	var out []models.Bill
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListBills(ctx, userID)
		return err
	})
	return out, err
}

// GetBill returns one of the user's bills.
func (s *Service) GetBill(ctx context.Context, userID, billID int64) (*models.Bill, error) {
	var b *models.Bill
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		b, err = ownedBill(ctx, r, userID, billID)
		return err
	})
	return b, err
}

// UpdateBill rewrites an open bill. An overdue bill moved to a due date that
// has not passed becomes pending again.
func (s *Service) UpdateBill(ctx context.Context, userID, billID int64, in Input) (*models.Bill, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var b *models.Bill
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if b, err = ownedBill(ctx, r, userID, billID); err != nil {
			return err
		}
		if b.Status == models.BillPaid || b.Status == models.BillCancelled {
			return models.Violation("bill %d is %s and cannot be changed", b.ID, strings.ToLower(string(b.Status)))
		}
		in.fill(b)
		if b.Status == models.BillOverdue && !b.DueDate.Before(s.Today()) {
			b.Status = models.BillPending
		}
		if err := checkAutoPayAccount(ctx, r, userID, b); err != nil {
			return err
		}
		b.UpdatedAt = s.now()
		return r.UpdateBill(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBill cancels an open bill. Cancelling twice is a no-op.
func (s *Service) CancelBill(ctx context.Context, userID, billID int64) error {
	return s.store.InTx(ctx, func(r store.Repository) error {
		b, err := ownedBill(ctx, r, userID, billID)
		if err != nil {
			return err
		}
		switch b.Status {
		case models.BillCancelled:
			return nil
		case models.BillPaid:
			return models.Violation("bill %d is already paid", b.ID)
		}
		b.Status = models.BillCancelled
		b.UpdatedAt = s.now()
		return r.UpdateBill(ctx, b)
	})
}

func payable(b *models.Bill) error {
	switch b.Status {
	case models.BillPending, models.BillOverdue, models.BillScheduled:
		return nil
	}
	return models.Violation("bill %d is %s and cannot be paid", b.ID, strings.ToLower(string(b.Status)))
}

// PayBill debits the bill amount from one of the user's accounts and settles
// the bill in the same unit of work.
func (s *Service) PayBill(ctx context.Context, userID, billID, accountID int64) (*models.Bill, error) {
	var (
		b      *models.Bill
		posted *models.Transaction
	)
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if b, err = ownedBill(ctx, r, userID, billID); err != nil {
			return err
		}
		if err := payable(b); err != nil {
			return err
		}
		posted, err = s.ledger.Post(ctx, r, userID, ledger.TransactionInput{
			AccountID:   accountID,
			Type:        models.Payment,
			Amount:      b.Amount,
			Description: "Bill payment: " + b.PayeeName,
			Category:    b.Category,
			Merchant:    b.PayeeName,
		})
		if err != nil {
			return err
		}
		s.settle(b, posted.TransactionDate)
		return r.UpdateBill(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("bill %d paid from account %d (%s)", b.ID, accountID, posted.ReferenceNumber)
	s.ledger.Notify(ctx, []ledger.Posting{{UserID: userID, Transaction: *posted}})
	return b, nil
}

// settle marks a bill paid. A recurring bill moves to its stored next due
// date and stays open.
func (s *Service) settle(b *models.Bill, paidAt time.Time) {
	paid := models.Day(paidAt)
	b.LastPaidDate = &paid
	b.UpdatedAt = s.now()
	if !b.Recurring {
		b.Status = models.BillPaid
		return
	}
	if b.NextDueDate != nil {
		b.DueDate = *b.NextDueDate
	} else {
		b.DueDate = advance(b.DueDate, b.RecurrenceFrequency)
	}
	next := advance(b.DueDate, b.RecurrenceFrequency)
	b.NextDueDate = &next
	b.Status = models.BillPending
}

// RunAutoPay pays every pending auto-pay bill due on or before today from its
// auto-pay account. A bill that cannot be paid is logged and left pending.
func (s *Service) RunAutoPay(ctx context.Context, today time.Time) (int, error) {
	var due []models.Bill
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		due, err = r.AutoPayBills(ctx, models.Day(today))
		return err
	})
	if err != nil {
		return 0, err
	}
	paid := 0
	for _, b := range due {
		if b.AutoPayAccountID == nil {
			continue
		}
		if _, err := s.PayBill(ctx, b.UserID, b.ID, *b.AutoPayAccountID); err != nil {
			log.Printf("auto-pay bill %d: %v", b.ID, err)
			continue
		}
		paid++
	}
	return paid, nil
}

// MarkOverdue flags pending bills whose due date has passed.
func (s *Service) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	n := 0
	err := s.store.InTx(ctx, func(r store.Repository) error {
		n = 0
		late, err := r.OverdueBills(ctx, models.Day(today))
		if err != nil {
			return err
		}
		for i := range late {
			late[i].Status = models.BillOverdue
			late[i].UpdatedAt = s.now()
			if err := r.UpdateBill(ctx, &late[i]); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
