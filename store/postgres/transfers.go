package postgres

import (
	"context"
	"database/sql"
	"time"

	"bankinghub/models"
)

const transferColumns = `id, from_account_id, to_account_id, amount, fee, description, status, transfer_type,
	reference_number, scheduled_date, processed_date, failure_reason, external_bank_name,
	external_account_number, external_routing_number, external_account_holder_name, created_at, updated_at`

func scanTransfer(row interface{ Scan(...any) error }) (*models.Transfer, error) {
	var (
		t         models.Transfer
		toAccount sql.NullInt64
		processed sql.NullTime
	)
	err := row.Scan(&t.ID, &t.FromAccountID, &toAccount, &t.Amount, &t.Fee, &t.Description, &t.Status, &t.Type,
		&t.ReferenceNumber, &t.ScheduledDate, &processed, &t.FailureReason, &t.ExternalBankName,
		&t.ExternalAccountNumber, &t.ExternalRoutingNumber, &t.ExternalAccountHolderName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ToAccountID = int64Ptr(toAccount)
	t.ProcessedDate = timePtr(processed)
	return &t, nil
}

func (r *repo) CreateTransfer(ctx context.Context, t *models.Transfer) error {
	return r.tx.QueryRowContext(ctx, `INSERT INTO transfers (from_account_id, to_account_id, amount, fee, description,
		status, transfer_type, reference_number, scheduled_date, processed_date, failure_reason, external_bank_name,
		external_account_number, external_routing_number, external_account_holder_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`,
		t.FromAccountID, nullInt64(t.ToAccountID), t.Amount, t.Fee, t.Description,
		t.Status, t.Type, t.ReferenceNumber, t.ScheduledDate, nullTime(t.ProcessedDate), t.FailureReason, t.ExternalBankName,
		t.ExternalAccountNumber, t.ExternalRoutingNumber, t.ExternalAccountHolderName, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}

func (r *repo) GetTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	t, err := scanTransfer(r.tx.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "transfer %d", id)
	}
	return t, nil
}

func (r *repo) LockTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	t, err := scanTransfer(r.tx.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "transfer %d", id)
	}
	return t, nil
}

func (r *repo) UpdateTransfer(ctx context.Context, t *models.Transfer) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE transfers SET status = $1, processed_date = $2, failure_reason = $3,
		updated_at = $4 WHERE id = $5`,
		t.Status, nullTime(t.ProcessedDate), t.FailureReason, t.UpdatedAt, t.ID)
	return affected(res, err, "transfer %d", t.ID)
}

func (r *repo) ListTransfers(ctx context.Context, userID int64) ([]models.Transfer, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+transferColumns+` FROM transfers
		WHERE from_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
		OR to_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
		ORDER BY scheduled_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repo) DueTransfers(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT id FROM transfers WHERE status = $1 AND scheduled_date <= $2 ORDER BY id`,
		models.TransferPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
