package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankinghub/models"
	"bankinghub/store"
	"bankinghub/store/memory"
)

var clock = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recorder struct{ postings []Posting }

func (r *recorder) Posted(_ context.Context, p []Posting) { r.postings = append(r.postings, p...) }

func newService(t *testing.T, observers ...PostingObserver) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	s := New(st, Config{InitialBalance: d("1000.00"), ExternalFee: d("5.00")}, observers...)
	s.now = func() time.Time { return clock }
	return s, st
}

func newUser(t *testing.T, st store.Store, email string) int64 {
	t.Helper()
	u := &models.User{FirstName: "Test", LastName: "User", Email: email, Enabled: true, Role: models.RoleUser}
	require.NoError(t, st.InTx(context.Background(), func(r store.Repository) error {
		return r.CreateUser(context.Background(), u)
	}))
	return u.ID
}

func openAccount(t *testing.T, s *Service, userID int64, balance string) *models.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), userID, AccountInput{Type: models.Checking, InitialBalance: d(balance)})
	require.NoError(t, err)
	return a
}

func TestCreateAccountDefaults(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")

	a, err := s.CreateAccount(context.Background(), uid, AccountInput{Type: models.Savings, InitialBalance: d("10")})
	require.NoError(t, err)
	assert.Equal(t, "My Savings Account", a.Name)
	require.NotNil(t, a.InterestRate)
	assert.True(t, a.InterestRate.Equal(d("0.025")))
	assert.Len(t, a.AccountNumber, 12)
	assert.Equal(t, "MB", a.AccountNumber[:2])
}

func TestCreateAccountValidation(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")

	_, err := s.CreateAccount(context.Background(), uid, AccountInput{Type: "PIGGY"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.CreateAccount(context.Background(), uid, AccountInput{Type: models.Checking, InitialBalance: d("-1")})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.CreateAccount(context.Background(), 999, AccountInput{Type: models.Checking})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAccountNumberRetriesOnCollision(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")

	draws := []string{"0000000001", "0000000001", "0000000002"}
	s.digits = func() string {
		next := draws[0]
		draws = draws[1:]
		return next
	}
	first := openAccount(t, s, uid, "0")
	second := openAccount(t, s, uid, "0")
	assert.Equal(t, "MB0000000001", first.AccountNumber)
	assert.Equal(t, "MB0000000002", second.AccountNumber)
}

func TestAccountNumberGivesUp(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	s.digits = func() string { return "1234567890" }

	openAccount(t, s, uid, "0")
	_, err := s.CreateAccount(context.Background(), uid, AccountInput{Type: models.Checking})
	assert.ErrorContains(t, err, "no free account number")
}

func TestPostTransaction(t *testing.T) {
	rec := &recorder{}
	s, st := newService(t, rec)
	uid := newUser(t, st, "a@example.com")
	a := openAccount(t, s, uid, "100.00")
	ctx := context.Background()

	tx, err := s.PostTransaction(ctx, uid, TransactionInput{
		AccountID: a.ID, Type: models.Withdrawal, Amount: d("30.50"), Description: "Groceries", Category: "Food",
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(d("69.50")))
	assert.Equal(t, models.TxCompleted, tx.Status)
	assert.Equal(t, "TXN", tx.ReferenceNumber[:3])
	assert.Equal(t, clock, tx.TransactionDate)
	require.Len(t, rec.postings, 1)
	assert.Equal(t, uid, rec.postings[0].UserID)

	got, err := s.GetAccount(ctx, uid, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d("69.50")))
}

func TestPostTransactionInsufficientFunds(t *testing.T) {
	rec := &recorder{}
	s, st := newService(t, rec)
	uid := newUser(t, st, "a@example.com")
	a := openAccount(t, s, uid, "10.00")

	_, err := s.PostTransaction(context.Background(), uid, TransactionInput{
		AccountID: a.ID, Type: models.Withdrawal, Amount: d("10.01"), Description: "Too much",
	})
	assert.True(t, errors.Is(err, models.ErrBusinessRule))
	assert.Empty(t, rec.postings)

	txs, err := s.ListTransactions(context.Background(), uid, a.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreditCardMayUseCreditLimit(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	limit := d("500")
	card, err := s.CreateAccount(context.Background(), uid, AccountInput{Type: models.CreditCard, CreditLimit: &limit})
	require.NoError(t, err)

	tx, err := s.PostTransaction(context.Background(), uid, TransactionInput{
		AccountID: card.ID, Type: models.Payment, Amount: d("200"), Description: "Shoes",
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(d("-200")))
}

func TestPostTransactionDates(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	a := openAccount(t, s, uid, "100")
	ctx := context.Background()

	_, err := s.PostTransaction(ctx, uid, TransactionInput{
		AccountID: a.ID, Type: models.Deposit, Amount: d("1"), Description: "Later", TransactionDate: clock.Add(time.Hour),
	})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.PostTransaction(ctx, uid, TransactionInput{
		AccountID: a.ID, Type: models.Deposit, Amount: d("1"), Description: "Now",
	})
	require.NoError(t, err)

	_, err = s.PostTransaction(ctx, uid, TransactionInput{
		AccountID: a.ID, Type: models.Deposit, Amount: d("1"), Description: "Backdated", TransactionDate: clock.Add(-time.Hour),
	})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestPostTransactionRejectsBadInput(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	other := newUser(t, st, "b@example.com")
	a := openAccount(t, s, uid, "100")

	cases := map[string]struct {
		user int64
		in   TransactionInput
		kind error
	}{
		"three decimals": {uid, TransactionInput{AccountID: a.ID, Type: models.Deposit, Amount: d("1.001"), Description: "x"}, models.ErrValidation},
		"zero amount":    {uid, TransactionInput{AccountID: a.ID, Type: models.Deposit, Amount: d("0"), Description: "x"}, models.ErrValidation},
		"no description": {uid, TransactionInput{AccountID: a.ID, Type: models.Deposit, Amount: d("1")}, models.ErrValidation},
		"unknown type":   {uid, TransactionInput{AccountID: a.ID, Type: "GIFT", Amount: d("1"), Description: "x"}, models.ErrValidation},
		"foreign owner":  {other, TransactionInput{AccountID: a.ID, Type: models.Deposit, Amount: d("1"), Description: "x"}, models.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.PostTransaction(context.Background(), tc.user, tc.in)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestDeactivateAccount(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	ctx := context.Background()

	funded := openAccount(t, s, uid, "1.00")
	err := s.DeactivateAccount(ctx, uid, funded.ID)
	assert.True(t, errors.Is(err, models.ErrBusinessRule))

	empty := openAccount(t, s, uid, "0")
	require.NoError(t, s.DeactivateAccount(ctx, uid, empty.ID))
	require.NoError(t, s.DeactivateAccount(ctx, uid, empty.ID))

	list, err := s.ListAccounts(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, funded.ID, list[0].ID)

	_, err = s.PostTransaction(ctx, uid, TransactionInput{AccountID: empty.ID, Type: models.Deposit, Amount: d("1"), Description: "x"})
	assert.True(t, errors.Is(err, models.ErrBusinessRule))
}

func TestUpdateAccountKeepsBalance(t *testing.T) {
	s, st := newService(t)
	uid := newUser(t, st, "a@example.com")
	a := openAccount(t, s, uid, "42.00")

	got, err := s.UpdateAccount(context.Background(), uid, a.ID, AccountUpdate{Name: "Bills", Description: "For bills"})
	require.NoError(t, err)
	assert.Equal(t, "Bills", got.Name)

	reread, err := s.GetAccount(context.Background(), uid, a.ID)
	require.NoError(t, err)
	assert.True(t, reread.Balance.Equal(d("42.00")))
	assert.Equal(t, "Bills", reread.Name)
}

func TestProcessTransferMovesFunds(t *testing.T) {
	rec := &recorder{}
	s, st := newService(t, rec)
	ctx := context.Background()
	alice := newUser(t, st, "alice@example.com")
	bob := newUser(t, st, "bob@example.com")
	a1 := openAccount(t, s, alice, "500.00")
	b1 := openAccount(t, s, bob, "100.00")

	tr, err := s.CreateTransfer(ctx, alice, TransferInput{
		FromAccountID: a1.ID, ToAccountNumber: b1.AccountNumber, Amount: d("120.00"), Description: "Rent", Type: models.P2P,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, tr.Status)
	assert.True(t, tr.Fee.IsZero())
	assert.Equal(t, "TRF", tr.ReferenceNumber[:3])

	done, err := s.ProcessTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, done.Status)
	require.NotNil(t, done.ProcessedDate)

	src, err := s.GetAccount(ctx, alice, a1.ID)
	require.NoError(t, err)
	dst, err := s.GetAccount(ctx, bob, b1.ID)
	require.NoError(t, err)
	assert.True(t, src.Balance.Equal(d("380.00")))
	assert.True(t, dst.Balance.Equal(d("220.00")))

	require.Len(t, rec.postings, 2)
	assert.Equal(t, models.TransferOut, rec.postings[0].Transaction.Type)
	assert.True(t, rec.postings[0].Transaction.BalanceAfter.Equal(d("380.00")))
	assert.Equal(t, models.TransferIn, rec.postings[1].Transaction.Type)
	assert.Equal(t, bob, rec.postings[1].UserID)
	assert.Equal(t, tr.ReferenceNumber, rec.postings[1].Transaction.ReferenceNumber)

	again, err := s.ProcessTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, again.Status)
	assert.Len(t, rec.postings, 2)
}

func TestProcessTransferInsufficientFunds(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	uid := newUser(t, st, "a@example.com")
	from := openAccount(t, s, uid, "50.00")
	to := openAccount(t, s, uid, "0")

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: from.ID, ToAccountID: &to.ID, Amount: d("75.00"), Description: "Move"})
	require.NoError(t, err)
	assert.Equal(t, models.Internal, tr.Type)

	got, err := s.ProcessTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferFailed, got.Status)
	assert.Equal(t, "insufficient funds: available 50.00, required 75.00", got.FailureReason)
	assert.Equal(t, "Transfer failed: insufficient funds: available 50.00, required 75.00", StatusDescription(*got))

	src, err := s.GetAccount(ctx, uid, from.ID)
	require.NoError(t, err)
	assert.True(t, src.Balance.Equal(d("50.00")))
	txs, err := s.ListTransactions(ctx, uid, from.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestExternalTransferChargesFee(t *testing.T) {
	rec := &recorder{}
	s, st := newService(t, rec)
	ctx := context.Background()
	uid := newUser(t, st, "a@example.com")
	from := openAccount(t, s, uid, "100.00")

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{
		FromAccountID: from.ID, Amount: d("50.00"), Description: "Abroad", Type: models.External,
		ExternalBankName: "Other Bank", ExternalAccountNumber: "123", ExternalRoutingNumber: "456",
	})
	require.NoError(t, err)
	assert.True(t, tr.Fee.Equal(d("5.00")))
	assert.Nil(t, tr.ToAccountID)

	_, err = s.ProcessTransfer(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, rec.postings, 2)
	assert.Equal(t, models.Fee, rec.postings[0].Transaction.Type)
	assert.True(t, rec.postings[0].Transaction.BalanceAfter.Equal(d("95.00")))
	assert.Equal(t, models.TransferOut, rec.postings[1].Transaction.Type)
	assert.True(t, rec.postings[1].Transaction.BalanceAfter.Equal(d("45.00")))
}

func TestCreateTransferRules(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	alice := newUser(t, st, "alice@example.com")
	bob := newUser(t, st, "bob@example.com")
	a1 := openAccount(t, s, alice, "100")
	b1 := openAccount(t, s, bob, "100")
	past := clock.Add(-time.Hour)

	_, err := s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: a1.ID, ToAccountID: &a1.ID, Amount: d("1"), Description: "x"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: a1.ID, ToAccountID: &b1.ID, Amount: d("1"), Description: "x"})
	assert.True(t, errors.Is(err, models.ErrBusinessRule))

	_, err = s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: b1.ID, ToAccountID: &a1.ID, Amount: d("1"), Description: "x", Type: models.P2P})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: a1.ID, ToAccountID: &b1.ID, Amount: d("1"), Description: "x", Type: models.P2P, ScheduledDate: &past})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: a1.ID, Amount: d("1"), Description: "x", Type: models.External})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestScheduledTransferWaitsAndCancels(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	uid := newUser(t, st, "a@example.com")
	from := openAccount(t, s, uid, "100")
	to := openAccount(t, s, uid, "0")
	later := clock.Add(48 * time.Hour)

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: from.ID, ToAccountID: &to.ID, Amount: d("10"), Description: "Later", ScheduledDate: &later})
	require.NoError(t, err)
	assert.EqualValues(t, 48, HoursUntilProcessing(*tr, clock))

	due, err := s.DueTransfers(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)

	got, err := s.ProcessTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, got.Status)

	cancelled, err := s.CancelTransfer(ctx, uid, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCancelled, cancelled.Status)

	_, err = s.CancelTransfer(ctx, uid, tr.ID)
	assert.True(t, errors.Is(err, models.ErrBusinessRule))
}

func TestCancelDueTransferFails(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	uid := newUser(t, st, "a@example.com")
	from := openAccount(t, s, uid, "100")
	to := openAccount(t, s, uid, "0")

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: from.ID, ToAccountID: &to.ID, Amount: d("10"), Description: "Now"})
	require.NoError(t, err)

	due, err := s.DueTransfers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{tr.ID}, due)

	_, err = s.CancelTransfer(ctx, uid, tr.ID)
	assert.True(t, errors.Is(err, models.ErrBusinessRule))
}

func TestGetTransferVisibleToBothParties(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	alice := newUser(t, st, "alice@example.com")
	bob := newUser(t, st, "bob@example.com")
	eve := newUser(t, st, "eve@example.com")
	a1 := openAccount(t, s, alice, "100")
	b1 := openAccount(t, s, bob, "0")

	tr, err := s.CreateTransfer(ctx, alice, TransferInput{FromAccountID: a1.ID, ToAccountID: &b1.ID, Amount: d("1"), Description: "x", Type: models.P2P})
	require.NoError(t, err)

	_, err = s.GetTransfer(ctx, alice, tr.ID)
	assert.NoError(t, err)
	_, err = s.GetTransfer(ctx, bob, tr.ID)
	assert.NoError(t, err)
	_, err = s.GetTransfer(ctx, eve, tr.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	list, err := s.ListTransfers(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "****7890", MaskAccountNumber("MB1234567890"))
	assert.Equal(t, "****12", MaskAccountNumber("12"))
}

// accountsDown serves every repository call except account reads, which fail.
type accountsDown struct {
	store.Store
	err error
}

func (a accountsDown) InTx(ctx context.Context, fn func(store.Repository) error) error {
	return a.Store.InTx(ctx, func(r store.Repository) error {
		return fn(failingAccounts{Repository: r, err: a.err})
	})
}

type failingAccounts struct {
	store.Repository
	err error
}

func (f failingAccounts) GetAccount(context.Context, int64) (*models.Account, error) {
	return nil, f.err
}

func TestTransferLookupsSurfaceStoreErrors(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	uid := newUser(t, st, "a@example.com")
	from := openAccount(t, s, uid, "100")
	to := openAccount(t, s, uid, "0")
	later := clock.Add(48 * time.Hour)

	tr, err := s.CreateTransfer(ctx, uid, TransferInput{FromAccountID: from.ID, ToAccountID: &to.ID, Amount: d("10"), Description: "Later", ScheduledDate: &later})
	require.NoError(t, err)

	down := errors.New("connection reset by peer")
	s.store = accountsDown{Store: st, err: down}

	_, err = s.CancelTransfer(ctx, uid, tr.ID)
	assert.ErrorIs(t, err, down)
	assert.False(t, errors.Is(err, models.ErrNotFound))

	_, err = s.GetTransfer(ctx, uid, tr.ID)
	assert.ErrorIs(t, err, down)
	assert.False(t, errors.Is(err, models.ErrNotFound))

	s.store = st
	got, err := s.GetTransfer(ctx, uid, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, got.Status)
}
