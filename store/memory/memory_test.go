package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankinghub/models"
	"bankinghub/store"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(r store.Repository) error {
		require.NoError(t, r.CreateUser(ctx, &models.User{Email: "a@example.com"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(r store.Repository) error {
		_, err := r.GetUserByEmail(ctx, "a@example.com")
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &models.User{Email: "a@example.com"}
	require.NoError(t, s.InTx(ctx, func(r store.Repository) error {
		return r.CreateUser(ctx, u)
	}))

	err := s.InTx(ctx, func(r store.Repository) error {
		got, err := r.GetUserByEmail(ctx, "A@EXAMPLE.COM")
		if err != nil {
			return err
		}
		assert.Equal(t, u.ID, got.ID)
		return r.CreateUser(ctx, &models.User{Email: "a@example.com"})
	})
	assert.ErrorIs(t, err, models.ErrBusinessRule)
}

func TestInTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().InTx(ctx, func(store.Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
