// Package store defines the persistence contract of the service. Every
// service operation runs inside one unit of work obtained from Store.InTx;
// a returned error rolls the whole unit back.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
)

// Store opens units of work.
type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Repository is the set of queries available inside a unit of work. Lookups
// of missing rows return an error wrapping models.ErrNotFound.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*models.Account, error)
	AccountNumberExists(ctx context.Context, number string) (bool, error)
	// ListAccounts returns the active accounts of a user.
	ListAccounts(ctx context.Context, userID int64) ([]models.Account, error)
	// UpdateAccount writes every field except the balance.
	UpdateAccount(ctx context.Context, a *models.Account) error
	// LockAccounts locks the given account rows in ascending id order and
	// returns them keyed by id. Any missing id is a not-found error.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error)
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	// ListTransactions returns postings of an account ordered by transaction
	// date then id. A zero from or to leaves that side of the window open.
	ListTransactions(ctx context.Context, accountID int64, from, to time.Time) ([]models.Transaction, error)
	// LatestTransactionDate reports the newest transaction date of an account,
	// or the zero time when the account has no postings.
	LatestTransactionDate(ctx context.Context, accountID int64) (time.Time, error)
	// SumByCategory totals the postings of a user's accounts in a category
	// whose transaction date falls within [from, to].
	SumByCategory(ctx context.Context, userID int64, category string, from, to time.Time) (decimal.Decimal, error)

	CreateTransfer(ctx context.Context, t *models.Transfer) error
	GetTransfer(ctx context.Context, id int64) (*models.Transfer, error)
	LockTransfer(ctx context.Context, id int64) (*models.Transfer, error)
	UpdateTransfer(ctx context.Context, t *models.Transfer) error
	// ListTransfers returns transfers touching any account of the user, newest
	// scheduled first.
	ListTransfers(ctx context.Context, userID int64) ([]models.Transfer, error)
	// DueTransfers returns ids of pending transfers scheduled at or before now.
	DueTransfers(ctx context.Context, now time.Time) ([]int64, error)

	CreateBudget(ctx context.Context, b *models.Budget) error
	GetBudget(ctx context.Context, id int64) (*models.Budget, error)
	FindActiveBudget(ctx context.Context, userID int64, category string) (*models.Budget, error)
	// ListBudgets returns the active budgets of a user.
	ListBudgets(ctx context.Context, userID int64) ([]models.Budget, error)
	UpdateBudget(ctx context.Context, b *models.Budget) error

	CreateBill(ctx context.Context, b *models.Bill) error
	GetBill(ctx context.Context, id int64) (*models.Bill, error)
	// ListBills returns the bills of a user ordered by due date.
	ListBills(ctx context.Context, userID int64) ([]models.Bill, error)
	UpdateBill(ctx context.Context, b *models.Bill) error
	// AutoPayBills returns pending auto-pay bills due on or before day.
	AutoPayBills(ctx context.Context, day time.Time) ([]models.Bill, error)
	// OverdueBills returns pending bills due strictly before day.
	OverdueBills(ctx context.Context, day time.Time) ([]models.Bill, error)
}
