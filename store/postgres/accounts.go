package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bankinghub/models"
)

const accountColumns = `id, user_id, account_number, account_type, account_name, description,
	balance, credit_limit, interest_rate, active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var (
		a            models.Account
		creditLimit  decimal.NullDecimal
		interestRate decimal.NullDecimal
	)
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.Type, &a.Name, &a.Description,
		&a.Balance, &creditLimit, &interestRate, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.CreditLimit = decimalPtr(creditLimit)
	a.InterestRate = decimalPtr(interestRate)
	return &a, nil
}

func (r *repo) CreateAccount(ctx context.Context, a *models.Account) error {
	err := r.tx.QueryRowContext(ctx, `INSERT INTO accounts (user_id, account_number, account_type, account_name,
		description, balance, credit_limit, interest_rate, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		a.UserID, a.AccountNumber, a.Type, a.Name, a.Description, a.Balance,
		nullDecimal(a.CreditLimit), nullDecimal(a.InterestRate), a.Active, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	return uniqueViolation(err, "account number %s already exists", a.AccountNumber)
}

func (r *repo) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(r.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "account %d", id)
	}
	return a, nil
}

func (r *repo) GetAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	a, err := scanAccount(r.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number))
	if err != nil {
		return nil, notFound(err, "account %s", number)
	}
	return a, nil
}

func (r *repo) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (r *repo) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE user_id = $1 AND active ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (r *repo) UpdateAccount(ctx context.Context, a *models.Account) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE accounts SET account_name = $1, description = $2, credit_limit = $3,
		interest_rate = $4, active = $5, updated_at = $6 WHERE id = $7`,
		a.Name, a.Description, nullDecimal(a.CreditLimit), nullDecimal(a.InterestRate), a.Active, a.UpdatedAt, a.ID)
	return affected(res, err, "account %d", a.ID)
}

// LockAccounts takes row locks with a single ordered statement so two
// transfers touching the same pair of accounts always lock them in the same
// order.
func (r *repo) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rows, err := r.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(sorted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*models.Account, len(sorted))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range sorted {
		if _, ok := out[id]; !ok {
			return nil, models.NotFound("account %d", id)
		}
	}
	return out, nil
}

func (r *repo) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now().UTC(), accountID)
	return affected(res, err, "account %d", accountID)
}
