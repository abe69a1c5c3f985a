package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
)

const transactionColumns = `id, account_id, amount, type, status, description, category, merchant,
	reference_number, balance_after, transaction_date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.Category, &t.Merchant,
		&t.ReferenceNumber, &t.BalanceAfter, &t.TransactionDate, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return r.tx.QueryRowContext(ctx, `INSERT INTO transactions (account_id, amount, type, status, description,
		category, merchant, reference_number, balance_after, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		t.AccountID, t.Amount, t.Type, t.Status, t.Description, t.Category, t.Merchant,
		t.ReferenceNumber, t.BalanceAfter, t.TransactionDate, t.CreatedAt).Scan(&t.ID)
}

// bound leaves a window side open when t is zero.
func bound(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r *repo) ListTransactions(ctx context.Context, accountID int64, from, to time.Time) ([]models.Transaction, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1
		AND ($2::timestamptz IS NULL OR transaction_date >= $2)
		AND ($3::timestamptz IS NULL OR transaction_date <= $3)
		ORDER BY transaction_date, id`, accountID, bound(from), bound(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repo) LatestTransactionDate(ctx context.Context, accountID int64) (time.Time, error) {
	var latest sql.NullTime
	err := r.tx.QueryRowContext(ctx, `SELECT max(transaction_date) FROM transactions WHERE account_id = $1`,
		accountID).Scan(&latest)
	if err != nil || !latest.Valid {
		return time.Time{}, err
	}
	return latest.Time.UTC(), nil
}

func (r *repo) SumByCategory(ctx context.Context, userID int64, category string, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(t.amount), 0) FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.category = $2 AND t.transaction_date BETWEEN $3 AND $4`,
		userID, category, from, to).Scan(&sum)
	return sum, err
}
