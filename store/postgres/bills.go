package postgres

import (
	"context"
	"database/sql"
	"time"

	"bankinghub/models"
)

const billColumns = `id, user_id, payee_name, amount, due_date, status, category, description, recurring,
	recurrence_frequency, auto_pay, auto_pay_account_id, last_paid_date, next_due_date, payee_account_number,
	payee_address, created_at, updated_at`

func scanBill(row interface{ Scan(...any) error }) (*models.Bill, error) {
	var (
		b         models.Bill
		autoPayID sql.NullInt64
		lastPaid  sql.NullTime
		nextDue   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.PayeeName, &b.Amount, &b.DueDate, &b.Status, &b.Category, &b.Description,
		&b.Recurring, &b.RecurrenceFrequency, &b.AutoPay, &autoPayID, &lastPaid, &nextDue, &b.PayeeAccountNumber,
		&b.PayeeAddress, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.DueDate = models.Day(b.DueDate)
	b.AutoPayAccountID = int64Ptr(autoPayID)
	b.LastPaidDate = timePtr(lastPaid)
	b.NextDueDate = timePtr(nextDue)
	return &b, nil
}

func (r *repo) CreateBill(ctx context.Context, b *models.Bill) error {
	return r.tx.QueryRowContext(ctx, `INSERT INTO bills (user_id, payee_name, amount, due_date, status, category,
		description, recurring, recurrence_frequency, auto_pay, auto_pay_account_id, last_paid_date, next_due_date,
		payee_account_number, payee_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`,
		b.UserID, b.PayeeName, b.Amount, b.DueDate, b.Status, b.Category,
		b.Description, b.Recurring, b.RecurrenceFrequency, b.AutoPay, nullInt64(b.AutoPayAccountID),
		nullTime(b.LastPaidDate), nullTime(b.NextDueDate), b.PayeeAccountNumber, b.PayeeAddress,
		b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
}

func (r *repo) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	b, err := scanBill(r.tx.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "bill %d", id)
	}
	return b, nil
}

func (r *repo) queryBills(ctx context.Context, query string, args ...any) ([]models.Bill, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repo) ListBills(ctx context.Context, userID int64) ([]models.Bill, error) {
	return r.queryBills(ctx, `SELECT `+billColumns+` FROM bills WHERE user_id = $1 ORDER BY due_date, id`, userID)
}

func (r *repo) UpdateBill(ctx context.Context, b *models.Bill) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE bills SET payee_name = $1, amount = $2, due_date = $3, status = $4,
		category = $5, description = $6, recurring = $7, recurrence_frequency = $8, auto_pay = $9,
		auto_pay_account_id = $10, last_paid_date = $11, next_due_date = $12, payee_account_number = $13,
		payee_address = $14, updated_at = $15 WHERE id = $16`,
		b.PayeeName, b.Amount, b.DueDate, b.Status, b.Category, b.Description, b.Recurring, b.RecurrenceFrequency,
		b.AutoPay, nullInt64(b.AutoPayAccountID), nullTime(b.LastPaidDate), nullTime(b.NextDueDate),
		b.PayeeAccountNumber, b.PayeeAddress, b.UpdatedAt, b.ID)
	return affected(res, err, "bill %d", b.ID)
}

func (r *repo) AutoPayBills(ctx context.Context, day time.Time) ([]models.Bill, error) {
	return r.queryBills(ctx, `SELECT `+billColumns+` FROM bills
		WHERE auto_pay AND status = $1 AND due_date <= $2 ORDER BY due_date, id`, models.BillPending, day)
}

func (r *repo) OverdueBills(ctx context.Context, day time.Time) ([]models.Bill, error) {
	return r.queryBills(ctx, `SELECT `+billColumns+` FROM bills
		WHERE status = $1 AND due_date < $2 ORDER BY due_date, id`, models.BillPending, day)
}
