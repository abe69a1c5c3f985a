package postgres

import (
	"context"

	"bankinghub/models"
)

const budgetColumns = `id, user_id, category, budget_limit, current_spent, start_date, end_date, period,
	alert_enabled, alert_threshold, description, active, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var b models.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.CurrentSpent, &b.StartDate, &b.EndDate, &b.Period,
		&b.AlertEnabled, &b.AlertThreshold, &b.Description, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.StartDate = models.Day(b.StartDate)
	b.EndDate = models.Day(b.EndDate)
	return &b, nil
}

func (r *repo) CreateBudget(ctx context.Context, b *models.Budget) error {
	return r.tx.QueryRowContext(ctx, `INSERT INTO budgets (user_id, category, budget_limit, current_spent, start_date,
		end_date, period, alert_enabled, alert_threshold, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		b.UserID, b.Category, b.Limit, b.CurrentSpent, b.StartDate, b.EndDate, b.Period,
		b.AlertEnabled, b.AlertThreshold, b.Description, b.Active, b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
}

func (r *repo) GetBudget(ctx context.Context, id int64) (*models.Budget, error) {
	b, err := scanBudget(r.tx.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "budget %d", id)
	}
	return b, nil
}

func (r *repo) FindActiveBudget(ctx context.Context, userID int64, category string) (*models.Budget, error) {
	b, err := scanBudget(r.tx.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = $1 AND category = $2 AND active LIMIT 1`, userID, category))
	if err != nil {
		return nil, notFound(err, "active budget for category %s", category)
	}
	return b, nil
}

func (r *repo) ListBudgets(ctx context.Context, userID int64) ([]models.Budget, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 AND active ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repo) UpdateBudget(ctx context.Context, b *models.Budget) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE budgets SET category = $1, budget_limit = $2, current_spent = $3,
		start_date = $4, end_date = $5, period = $6, alert_enabled = $7, alert_threshold = $8, description = $9,
		active = $10, updated_at = $11 WHERE id = $12`,
		b.Category, b.Limit, b.CurrentSpent, b.StartDate, b.EndDate, b.Period, b.AlertEnabled, b.AlertThreshold,
		b.Description, b.Active, b.UpdatedAt, b.ID)
	return affected(res, err, "budget %d", b.ID)
}
