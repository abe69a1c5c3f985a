// Package memory is an in-process store.Store used when no database is
// configured and by service tests. A unit of work runs against a private
// copy of every table under one mutex; committing swaps the copy in.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

type Store struct {
	mu sync.Mutex
	t  *tables
}

// New creates an empty store.
func New() *Store {
	return &Store{t: newTables()}
}

func (s *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.t.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.t = work
	return nil
}

var _ store.Repository = (*tables)(nil)

type tables struct {
	nextID       int64
	users        map[int64]models.User
	accounts     map[int64]models.Account
	transactions map[int64]models.Transaction
	transfers    map[int64]models.Transfer
	budgets      map[int64]models.Budget
	bills        map[int64]models.Bill
}

func newTables() *tables {
	return &tables{
		users:        map[int64]models.User{},
		accounts:     map[int64]models.Account{},
		transactions: map[int64]models.Transaction{},
		transfers:    map[int64]models.Transfer{},
		budgets:      map[int64]models.Budget{},
		bills:        map[int64]models.Bill{},
	}
}

// clone copies every row. Pointer fields of rows are never mutated in place,
// so sharing them between copies is safe.
func (t *tables) clone() *tables {
	c := &tables{nextID: t.nextID}
	c.users = copyMap(t.users)
	c.accounts = copyMap(t.accounts)
	c.transactions = copyMap(t.transactions)
	c.transfers = copyMap(t.transfers)
	c.budgets = copyMap(t.budgets)
	c.bills = copyMap(t.bills)
	return c
}

func copyMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) id() int64 {
	t.nextID++
	return t.nextID
}

func (t *tables) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range t.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return models.Violation("email %s is already registered", u.Email)
		}
	}
	u.ID = t.id()
	t.users[u.ID] = *u
	return nil
}

func (t *tables) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, models.NotFound("user %d", id)
	}
	return &u, nil
}

func (t *tables) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range t.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, models.NotFound("user %s", email)
}

func (t *tables) ListUsers(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(t.users))
	for _, u := range t.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) UpdateUser(_ context.Context, u *models.User) error {
	if _, ok := t.users[u.ID]; !ok {
		return models.NotFound("user %d", u.ID)
	}
	t.users[u.ID] = *u
	return nil
}

func (t *tables) CreateAccount(_ context.Context, a *models.Account) error {
	for _, existing := range t.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return models.Violation("account number %s already exists", a.AccountNumber)
		}
	}
	a.ID = t.id()
	t.accounts[a.ID] = *a
	return nil
}

func (t *tables) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	a, ok := t.accounts[id]
	if !ok {
		return nil, models.NotFound("account %d", id)
	}
	return &a, nil
}

func (t *tables) GetAccountByNumber(_ context.Context, number string) (*models.Account, error) {
	for _, a := range t.accounts {
		if a.AccountNumber == number {
			return &a, nil
		}
	}
	return nil, models.NotFound("account %s", number)
}

func (t *tables) AccountNumberExists(_ context.Context, number string) (bool, error) {
	for _, a := range t.accounts {
		if a.AccountNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (t *tables) ListAccounts(_ context.Context, userID int64) ([]models.Account, error) {
	var out []models.Account
	for _, a := range t.accounts {
		if a.UserID == userID && a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) UpdateAccount(_ context.Context, a *models.Account) error {
	cur, ok := t.accounts[a.ID]
	if !ok {
		return models.NotFound("account %d", a.ID)
	}
	upd := *a
	upd.Balance = cur.Balance
	t.accounts[a.ID] = upd
	return nil
}

func (t *tables) LockAccounts(_ context.Context, ids ...int64) (map[int64]*models.Account, error) {
	out := make(map[int64]*models.Account, len(ids))
	for _, id := range ids {
		a, ok := t.accounts[id]
		if !ok {
			return nil, models.NotFound("account %d", id)
		}
		out[id] = &a
	}
	return out, nil
}

func (t *tables) SetBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	a, ok := t.accounts[accountID]
	if !ok {
		return models.NotFound("account %d", accountID)
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	t.accounts[accountID] = a
	return nil
}

func (t *tables) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	tx.ID = t.id()
	t.transactions[tx.ID] = *tx
	return nil
}

func within(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}

func (t *tables) ListTransactions(_ context.Context, accountID int64, from, to time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range t.transactions {
		if tx.AccountID == accountID && within(tx.TransactionDate, from, to) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tables) LatestTransactionDate(_ context.Context, accountID int64) (time.Time, error) {
	var latest time.Time
	for _, tx := range t.transactions {
		if tx.AccountID == accountID && tx.TransactionDate.After(latest) {
			latest = tx.TransactionDate
		}
	}
	return latest, nil
}

func (t *tables) SumByCategory(_ context.Context, userID int64, category string, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, tx := range t.transactions {
		a, ok := t.accounts[tx.AccountID]
		if !ok || a.UserID != userID || tx.Category != category {
			continue
		}
		if within(tx.TransactionDate, from, to) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (t *tables) CreateTransfer(_ context.Context, tr *models.Transfer) error {
	tr.ID = t.id()
	t.transfers[tr.ID] = *tr
	return nil
}

func (t *tables) GetTransfer(_ context.Context, id int64) (*models.Transfer, error) {
	tr, ok := t.transfers[id]
	if !ok {
		return nil, models.NotFound("transfer %d", id)
	}
	return &tr, nil
}

func (t *tables) LockTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	return t.GetTransfer(ctx, id)
}

func (t *tables) UpdateTransfer(_ context.Context, tr *models.Transfer) error {
	if _, ok := t.transfers[tr.ID]; !ok {
		return models.NotFound("transfer %d", tr.ID)
	}
	t.transfers[tr.ID] = *tr
	return nil
}

func (t *tables) ownedBy(accountID, userID int64) bool {
	a, ok := t.accounts[accountID]
	return ok && a.UserID == userID
}

func (t *tables) ListTransfers(_ context.Context, userID int64) ([]models.Transfer, error) {
	var out []models.Transfer
	for _, tr := range t.transfers {
		if t.ownedBy(tr.FromAccountID, userID) || (tr.ToAccountID != nil && t.ownedBy(*tr.ToAccountID, userID)) {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.After(out[j].ScheduledDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *tables) DueTransfers(_ context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	for _, tr := range t.transfers {
		if tr.Status == models.TransferPending && !tr.ScheduledDate.After(now) {
			ids = append(ids, tr.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *tables) CreateBudget(_ context.Context, b *models.Budget) error {
	b.ID = t.id()
	t.budgets[b.ID] = *b
	return nil
}

func (t *tables) GetBudget(_ context.Context, id int64) (*models.Budget, error) {
	b, ok := t.budgets[id]
	if !ok {
		return nil, models.NotFound("budget %d", id)
	}
	return &b, nil
}

func (t *tables) FindActiveBudget(_ context.Context, userID int64, category string) (*models.Budget, error) {
	for _, b := range t.budgets {
		if b.UserID == userID && b.Active && b.Category == category {
			return &b, nil
		}
	}
	return nil, models.NotFound("active budget for category %s", category)
}

func (t *tables) ListBudgets(_ context.Context, userID int64) ([]models.Budget, error) {
	var out []models.Budget
	for _, b := range t.budgets {
		if b.UserID == userID && b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) UpdateBudget(_ context.Context, b *models.Budget) error {
	if _, ok := t.budgets[b.ID]; !ok {
		return models.NotFound("budget %d", b.ID)
	}
	t.budgets[b.ID] = *b
	return nil
}

func (t *tables) CreateBill(_ context.Context, b *models.Bill) error {
	b.ID = t.id()
	t.bills[b.ID] = *b
	return nil
}

func (t *tables) GetBill(_ context.Context, id int64) (*models.Bill, error) {
	b, ok := t.bills[id]
	if !ok {
		return nil, models.NotFound("bill %d", id)
	}
	return &b, nil
}

func sortBills(out []models.Bill) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
}

func (t *tables) ListBills(_ context.Context, userID int64) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range t.bills {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sortBills(out)
	return out, nil
}

func (t *tables) UpdateBill(_ context.Context, b *models.Bill) error {
	if _, ok := t.bills[b.ID]; !ok {
		return models.NotFound("bill %d", b.ID)
	}
	t.bills[b.ID] = *b
	return nil
}

func (t *tables) AutoPayBills(_ context.Context, day time.Time) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range t.bills {
		if b.AutoPay && b.Status == models.BillPending && !b.DueDate.After(day) {
			out = append(out, b)
		}
	}
	sortBills(out)
	return out, nil
}

func (t *tables) OverdueBills(_ context.Context, day time.Time) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range t.bills {
		if b.Status == models.BillPending && b.DueDate.Before(day) {
			out = append(out, b)
		}
	}
	sortBills(out)
	return out, nil
}
