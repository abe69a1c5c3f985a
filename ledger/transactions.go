package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

// TransactionInput is a single posting request. A zero TransactionDate
// means now.
type TransactionInput struct {
	AccountID       int64
	Type            models.TransactionType
	Amount          decimal.Decimal
	Description     string
	Category        string
	Merchant        string
	TransactionDate time.Time
}

func (in TransactionInput) validate() error {
	if !in.Type.Valid() {
		return models.Invalid("unknown transaction type %q", in.Type)
	}
	if !validAmount(in.Amount) {
		return models.Invalid("amount must be positive with at most 2 decimal places")
	}
	if err := checkLength("description", in.Description, 1, 255); err != nil {
		return err
	}
	if err := checkLength("category", in.Category, 0, 100); err != nil {
		return err
	}
	return checkLength("merchant", in.Merchant, 0, 100)
}

// entry is one leg about to be appended to an account's log.
type entry struct {
	typ         models.TransactionType
	amount      decimal.Decimal
	description string
	category    string
	merchant    string
	reference   string
	date        time.Time
}

// apply moves the balance of a locked account by one entry and appends the
// matching transaction with its balance-after snapshot. acct is updated in
// place so several legs can be applied in sequence.
func (s *Service) apply(ctx context.Context, r store.Repository, acct *models.Account, e entry) (*models.Transaction, error) {
	balance := acct.Balance
	switch {
	case e.typ.IsCredit():
		balance = balance.Add(e.amount)
	case e.typ.IsDebit():
		if acct.Available().LessThan(e.amount) {
			return nil, models.Violation("insufficient funds in account %s", acct.AccountNumber)
		}
		balance = balance.Sub(e.amount)
	default:
		return nil, models.Invalid("unknown transaction type %q", e.typ)
	}
	if err := r.SetBalance(ctx, acct.ID, balance); err != nil {
		return nil, err
	}
	acct.Balance = balance

	if e.reference == "" {
		e.reference = reference("TXN")
	}
	t := &models.Transaction{
		AccountID:       acct.ID,
		Amount:          e.amount,
		Type:            e.typ,
		Status:          models.TxCompleted,
		Description:     e.description,
		Category:        e.category,
		Merchant:        e.merchant,
		ReferenceNumber: e.reference,
		BalanceAfter:    balance,
		TransactionDate: e.date,
		CreatedAt:       s.now(),
	}
	if err := r.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// PostTransaction appends one posting to an account of the user and moves
// its balance.
func (s *Service) PostTransaction(ctx context.Context, userID int64, in TransactionInput) (*models.Transaction, error) {
	var t *models.Transaction
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		t, err = s.Post(ctx, r, userID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, []Posting{{UserID: userID, Transaction: *t}})
	return t, nil
}

// Post is PostTransaction inside the caller's unit of work. The caller is
// responsible for calling Notify once the unit commits.
func (s *Service) Post(ctx context.Context, r store.Repository, userID int64, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	date := in.TransactionDate
	if date.IsZero() {
		date = now
	}
	if date.After(now) {
		return nil, models.Invalid("transaction date cannot be in the future")
	}

	if _, err := owned(ctx, r, userID, in.AccountID); err != nil {
		return nil, err
	}
	locked, err := r.LockAccounts(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	acct := locked[in.AccountID]
	if !acct.Active {
		return nil, models.Violation("account %s is inactive", acct.AccountNumber)
	}
	latest, err := r.LatestTransactionDate(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if date.Before(latest) {
		return nil, models.Invalid("transaction date precedes the latest posting on account %s", acct.AccountNumber)
	}

	return s.apply(ctx, r, acct, entry{
		typ:         in.Type,
		amount:      in.Amount,
		description: in.Description,
		category:    in.Category,
		merchant:    in.Merchant,
		date:        date,
	})
}

// ListTransactions returns an account's postings within [from, to], oldest
// first. Zero bounds are open.
func (s *Service) ListTransactions(ctx context.Context, userID, accountID int64, from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.store.InTx(ctx, func(r store.Repository) error {
		if _, err := owned(ctx, r, userID, accountID); err != nil {
			return err
		}
		var err error
		out, err = r.ListTransactions(ctx, accountID, from, to)
		return err
	})
	return out, err
}
