package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankinghub/models"
	"bankinghub/store"
)

var accountCols = []string{"id", "user_id", "account_number", "account_type", "account_name", "description",
	"balance", "credit_limit", "interest_rate", "active", "created_at", "updated_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestLockAccountsOrdersIDs(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM accounts\s+WHERE id = ANY\(\$1\) ORDER BY id FOR UPDATE`).
		WithArgs(pq.Array([]int64{3, 7})).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(3, 1, "MB1111111111", "SAVINGS", "Savings Account", "", "100.00", nil, "2.50", true, now, now).
			AddRow(7, 2, "MB2222222222", "CHECKING", "Checking Account", "", "50.00", nil, nil, true, now, now))
	mock.ExpectCommit()

	var locked map[int64]*models.Account
	err := s.InTx(context.Background(), func(r store.Repository) error {
		var err error
		locked, err = r.LockAccounts(context.Background(), 7, 3)
		return err
	})
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, "100.00", locked[3].Balance.StringFixed(2))
	assert.Equal(t, "2.50", locked[3].InterestRate.StringFixed(2))
	assert.Nil(t, locked[7].InterestRate)
	assert.Equal(t, models.Checking, locked[7].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAccountsMissingRollsBack(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM accounts\s+WHERE id = ANY`).
		WithArgs(pq.Array([]int64{3, 9})).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(3, 1, "MB1111111111", "SAVINGS", "Savings Account", "", "100.00", nil, nil, true, now, now))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(r store.Repository) error {
		_, err := r.LockAccounts(context.Background(), 9, 3)
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM accounts WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(r store.Repository) error {
		_, err := r.GetAccount(context.Background(), 42)
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(r store.Repository) error {
		return r.CreateUser(context.Background(), &models.User{Email: "taken@example.com", Role: models.RoleUser})
	})
	assert.ErrorIs(t, err, models.ErrBusinessRule)
	assert.Contains(t, err.Error(), "taken@example.com")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxPropagatesDriverErrors(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(boom)
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(r store.Repository) error {
		return r.CreateUser(context.Background(), &models.User{Email: "a@example.com"})
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, models.ErrBusinessRule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumByCategory(t *testing.T) {
	s, mock := newMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(t.amount\), 0\) FROM transactions t`).
		WithArgs(int64(5), "Groceries", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("180.50"))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(r store.Repository) error {
		sum, err := r.SumByCategory(context.Background(), 5, "Groceries", from, to)
		if err != nil {
			return err
		}
		assert.Equal(t, "180.50", sum.StringFixed(2))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
