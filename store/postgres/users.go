package postgres

import (
	"context"
	"database/sql"

	"bankinghub/models"
)

const userColumns = `id, first_name, last_name, email, password_hash, phone, address,
	enabled, two_factor_enabled, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Phone, &u.Address,
		&u.Enabled, &u.TwoFactorEnabled, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) CreateUser(ctx context.Context, u *models.User) error {
	err := r.tx.QueryRowContext(ctx, `INSERT INTO users (first_name, last_name, email, password_hash, phone, address,
		enabled, two_factor_enabled, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone, u.Address,
		u.Enabled, u.TwoFactorEnabled, u.Role, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	return uniqueViolation(err, "email %s is already registered", u.Email)
}

func (r *repo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return u, nil
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, notFound(err, "user %s", email)
	}
	return u, nil
}

func (r *repo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *repo) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := r.tx.ExecContext(ctx, `UPDATE users SET first_name = $1, last_name = $2, phone = $3, address = $4,
		enabled = $5, two_factor_enabled = $6, role = $7, updated_at = $8 WHERE id = $9`,
		u.FirstName, u.LastName, u.Phone, u.Address, u.Enabled, u.TwoFactorEnabled, u.Role, u.UpdatedAt, u.ID)
	return affected(res, err, "user %d", u.ID)
}

// affected reports a not-found error when an UPDATE matched no row.
func affected(res sql.Result, err error, format string, args ...any) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFound(format, args...)
	}
	return nil
}
