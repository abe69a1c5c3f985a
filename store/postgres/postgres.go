// Package postgres implements store.Store on PostgreSQL through database/sql
// and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

// Store wraps a connection pool. Each unit of work is one SQL transaction.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and creates missing tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open pool without migrating it.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&repo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Migrate creates the tables the service needs.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	log.Printf("postgres schema ready (%d statements)", len(schema))
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		role TEXT NOT NULL DEFAULT 'USER',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_number TEXT UNIQUE NOT NULL,
		account_type TEXT NOT NULL,
		account_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		balance NUMERIC(15,2) NOT NULL DEFAULT 0,
		credit_limit NUMERIC(15,2),
		interest_rate NUMERIC(7,4),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		amount NUMERIC(15,2) NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		merchant TEXT NOT NULL DEFAULT '',
		reference_number TEXT NOT NULL,
		balance_after NUMERIC(15,2) NOT NULL,
		transaction_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_date ON transactions (account_id, transaction_date)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		id BIGSERIAL PRIMARY KEY,
		from_account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		to_account_id BIGINT REFERENCES accounts(id) ON DELETE CASCADE,
		amount NUMERIC(15,2) NOT NULL,
		fee NUMERIC(15,2) NOT NULL DEFAULT 0,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		transfer_type TEXT NOT NULL,
		reference_number TEXT NOT NULL,
		scheduled_date TIMESTAMPTZ NOT NULL,
		processed_date TIMESTAMPTZ,
		failure_reason TEXT NOT NULL DEFAULT '',
		external_bank_name TEXT NOT NULL DEFAULT '',
		external_account_number TEXT NOT NULL DEFAULT '',
		external_routing_number TEXT NOT NULL DEFAULT '',
		external_account_holder_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		budget_limit NUMERIC(15,2) NOT NULL,
		current_spent NUMERIC(15,2) NOT NULL DEFAULT 0,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		period TEXT NOT NULL,
		alert_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		alert_threshold NUMERIC(5,2) NOT NULL DEFAULT 80,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		payee_name TEXT NOT NULL,
		amount NUMERIC(15,2) NOT NULL,
		due_date DATE NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_frequency TEXT NOT NULL DEFAULT '',
		auto_pay BOOLEAN NOT NULL DEFAULT FALSE,
		auto_pay_account_id BIGINT,
		last_paid_date DATE,
		next_due_date DATE,
		payee_account_number TEXT NOT NULL DEFAULT '',
		payee_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// repo runs queries on one open transaction.
type repo struct {
	tx *sql.Tx
}

var _ store.Repository = (*repo)(nil)

// notFound turns sql.ErrNoRows into a models.ErrNotFound error.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound(format, args...)
	}
	return err
}

// uniqueViolation maps PostgreSQL error 23505 to a business-rule error.
func uniqueViolation(err error, format string, args ...any) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.Violation(format, args...)
	}
	return err
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

func nullDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}
