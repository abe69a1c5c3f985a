// Package ledger owns accounts, their append-only transaction log and the
// transfer workflow. Every balance change happens here, inside a unit of work
// holding row locks on the accounts involved.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

// Config carries the ledger settings read at startup.
type Config struct {
	AccountPrefix  string
	InitialBalance decimal.Decimal
	ExternalFee    decimal.Decimal
}

// Posting is a committed transaction together with the user owning its account.
type Posting struct {
	UserID      int64
	Transaction models.Transaction
}

// PostingObserver is told about postings after their unit of work commits.
// Observers must not fail the operation that produced the postings.
type PostingObserver interface {
	Posted(ctx context.Context, postings []Posting)
}

// Service owns account balances. Every balance change goes through it.
type Service struct {
	store     store.Store
	cfg       Config
	observers []PostingObserver

	now    func() time.Time
	digits func() string
}

// New creates a ledger over st. Observers are told about postings after
// they commit.
func New(st store.Store, cfg Config, observers ...PostingObserver) *Service {
	if cfg.AccountPrefix == "" {
		cfg.AccountPrefix = "MB"
	}
	return &Service{
		store:     st,
		cfg:       cfg,
		observers: observers,
		now:       func() time.Time { return time.Now().UTC() },
		digits:    randomDigits,
	}
}

// Observe registers another observer. It is meant for wiring at startup.
func (s *Service) Observe(o PostingObserver) {
	s.observers = append(s.observers, o)
}

// Notify hands committed postings to every observer.
func (s *Service) Notify(ctx context.Context, postings []Posting) {
	if len(postings) == 0 {
		return
	}
	for _, o := range s.observers {
		o.Posted(ctx, postings)
	}
}
