package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankinghub/models"
	"bankinghub/notify"
	"bankinghub/store"
	"bankinghub/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, _ := newTestServerWithStore(t)
	return srv
}

func newTestServerWithStore(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := LoadConfig(env(map[string]string{"JWT_SECRET": "test-secret"}))
	require.NoError(t, err)
	st := memory.New()
	return newServer(cfg, st, notify.Log{}, nil), st
}

// promote turns a registered user into an administrator.
func promote(t *testing.T, st *memory.Store, userID int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InTx(ctx, func(r store.Repository) error {
		u, err := r.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		u.Role = models.RoleAdmin
		return r.UpdateUser(ctx, u)
	}))
}

// call performs a request against the router and decodes a JSON response
// into out when out is non-nil.
func call(t *testing.T, r http.Handler, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

type signup struct {
	token     string
	userID    int64
	accountID int64
	number    string
}

func registerAndLogin(t *testing.T, r http.Handler, email string) signup {
	t.Helper()
	var reg struct {
		User    models.User    `json:"user"`
		Account models.Account `json:"account"`
	}
	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"first_name": "Mwila",
		"last_name":  "Banda",
		"email":      email,
		"password":   "s3cretpass",
		"phone":      "097-123-4567",
	}, &reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sess struct {
		Token string `json:"token"`
	}
	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "s3cretpass"}, &sess)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, sess.Token)
	return signup{token: sess.Token, userID: reg.User.ID, accountID: reg.Account.ID, number: reg.Account.AccountNumber}
}

func TestHealth(t *testing.T) {
	r := newTestServer(t).Router()
	w := call(t, r, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	var me models.User
	w := call(t, r, http.MethodGet, "/api/auth/me", u.token, nil, &me)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mwila@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = call(t, r, http.MethodGet, "/api/auth/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterErrors(t *testing.T) {
	r := newTestServer(t).Router()
	registerAndLogin(t, r, "taken@example.com")

	tests := []struct {
		name           string
		body           gin.H
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Duplicate email",
			body:           gin.H{"first_name": "A", "last_name": "B", "email": "taken@example.com", "password": "s3cretpass"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email",
		},
		{
			name:           "Invalid email",
			body:           gin.H{"first_name": "A", "last_name": "B", "email": "not-an-email", "password": "s3cretpass"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "invalid email address",
		},
		{
			name:           "Invalid phone",
			body:           gin.H{"first_name": "A", "last_name": "B", "email": "c@example.com", "password": "s3cretpass", "phone": "123abc4567"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "invalid phone number",
		},
		{
			name:           "Missing fields",
			body:           gin.H{"email": "d@example.com"},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			w := call(t, r, http.MethodPost, "/api/auth/register", "", tt.body, &resp)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, resp["error"])
			if tt.expectedError != "" {
				assert.Contains(t, resp["error"], tt.expectedError)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestServer(t).Router()
	registerAndLogin(t, r, "mwila@example.com")

	w := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "mwila@example.com", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountsAreScopedToOwner(t *testing.T) {
	r := newTestServer(t).Router()
	alice := registerAndLogin(t, r, "alice@example.com")
	bob := registerAndLogin(t, r, "bob@example.com")

	var list []map[string]any
	w := call(t, r, http.MethodGet, "/api/accounts", alice.token, nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, list, 1)
	assert.Equal(t, "1000", list[0]["balance"])
	assert.True(t, strings.HasPrefix(list[0]["masked_account_number"].(string), "****"))

	w = call(t, r, http.MethodGet, "/api/accounts/"+itoa(alice.accountID), bob.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodGet, "/api/accounts/abc", bob.token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAccountAndPostTransaction(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	var acct struct {
		ID      int64  `json:"id"`
		Balance string `json:"balance"`
	}
	w := call(t, r, http.MethodPost, "/api/accounts", u.token, gin.H{
		"account_type":    "CHECKING",
		"account_name":    "Everyday",
		"initial_balance": "250.00",
	}, &acct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "250", acct.Balance)

	var tx models.Transaction
	w = call(t, r, http.MethodPost, "/api/transactions", u.token, gin.H{
		"account_id":       acct.ID,
		"transaction_type": "WITHDRAWAL",
		"amount":           "100.50",
		"description":      "Groceries",
		"category":         "Food",
	}, &tx)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "149.50", tx.BalanceAfter.StringFixed(2))

	var resp map[string]string
	w = call(t, r, http.MethodPost, "/api/transactions", u.token, gin.H{
		"account_id":       acct.ID,
		"transaction_type": "WITHDRAWAL",
		"amount":           "500",
		"description":      "Too much",
	}, &resp)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "insufficient funds")

	var txs []models.Transaction
	w = call(t, r, http.MethodGet, "/api/accounts/"+itoa(acct.ID)+"/transactions", u.token, nil, &txs)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, txs, 1)

	w = call(t, r, http.MethodGet, "/api/accounts/"+itoa(acct.ID)+"/transactions?from=2024-05-01&to=2024-04-01", u.token, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestP2PTransferSettlesInline(t *testing.T) {
	r := newTestServer(t).Router()
	alice := registerAndLogin(t, r, "alice@example.com")
	bob := registerAndLogin(t, r, "bob@example.com")

	var view map[string]any
	w := call(t, r, http.MethodPost, "/api/transfers", alice.token, gin.H{
		"from_account_id":   alice.accountID,
		"to_account_number": bob.number,
		"amount":            "100.00",
		"description":       "Rent share",
		"transfer_type":     "P2P",
	}, &view)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "COMPLETED", view["status"])
	assert.Equal(t, false, view["can_cancel"])

	var acct map[string]any
	call(t, r, http.MethodGet, "/api/accounts/"+itoa(alice.accountID), alice.token, nil, &acct)
	assert.Equal(t, "900", acct["balance"])
	call(t, r, http.MethodGet, "/api/accounts/"+itoa(bob.accountID), bob.token, nil, &acct)
	assert.Equal(t, "1100", acct["balance"])

	var list []map[string]any
	w = call(t, r, http.MethodGet, "/api/transfers", bob.token, nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list, 1)
}

func TestScheduledTransferCanBeCancelled(t *testing.T) {
	r := newTestServer(t).Router()
	alice := registerAndLogin(t, r, "alice@example.com")
	bob := registerAndLogin(t, r, "bob@example.com")

	var view struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		CanCancel bool   `json:"can_cancel"`
	}
	tomorrow := time.Now().UTC().Add(48 * time.Hour).Format(time.DateOnly)
	w := call(t, r, http.MethodPost, "/api/transfers", alice.token, gin.H{
		"from_account_id":   alice.accountID,
		"to_account_number": bob.number,
		"amount":            "40",
		"description":       "Later",
		"transfer_type":     "P2P",
		"scheduled_date":    tomorrow,
	}, &view)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PENDING", view.Status)
	assert.True(t, view.CanCancel)

	w = call(t, r, http.MethodPost, "/api/transfers/"+itoa(view.ID)+"/cancel", bob.token, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodPost, "/api/transfers/"+itoa(view.ID)+"/cancel", alice.token, nil, &view)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", view.Status)
}

func TestStatementDownload(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	w := call(t, r, http.MethodGet, "/api/accounts/"+itoa(u.accountID)+"/statement/csv", u.token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=statement_****")
	assert.Contains(t, w.Body.String(), "Date,Description")

	w = call(t, r, http.MethodGet, "/api/accounts/"+itoa(u.accountID)+"/statement/docx", u.token, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBudgetNearLimit(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	var b struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	w := call(t, r, http.MethodPost, "/api/budgets", u.token, gin.H{
		"category":     "Groceries",
		"budget_limit": "200",
		"start_date":   "2024-01-01",
		"end_date":     "2099-12-31",
		"period":       "MONTHLY",
	}, &b)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "On Track", b.Status)

	w = call(t, r, http.MethodPost, "/api/transactions", u.token, gin.H{
		"account_id":       u.accountID,
		"transaction_type": "PAYMENT",
		"amount":           "180",
		"description":      "Weekly shop",
		"category":         "Groceries",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/api/budgets/"+itoa(b.ID), u.token, nil, &b)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Near Limit", b.Status)

	var alerts []map[string]any
	w = call(t, r, http.MethodGet, "/api/budgets/alerts", u.token, nil, &alerts)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, alerts, 1)

	var over []map[string]any
	call(t, r, http.MethodGet, "/api/budgets/over", u.token, nil, &over)
	assert.Empty(t, over)
}

func TestPayBill(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	var bill struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	due := time.Now().UTC().Add(72 * time.Hour).Format(time.DateOnly)
	w := call(t, r, http.MethodPost, "/api/bills", u.token, gin.H{
		"payee_name": "ZESCO",
		"amount":     "120.00",
		"due_date":   due,
		"category":   "Utilities",
	}, &bill)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PENDING", bill.Status)

	w = call(t, r, http.MethodPost, "/api/bills/"+itoa(bill.ID)+"/pay", u.token, gin.H{"account_id": u.accountID}, &bill)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PAID", bill.Status)

	var acct map[string]any
	call(t, r, http.MethodGet, "/api/accounts/"+itoa(u.accountID), u.token, nil, &acct)
	assert.Equal(t, "880", acct["balance"])

	w = call(t, r, http.MethodDelete, "/api/bills/"+itoa(bill.ID), u.token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupportChat(t *testing.T) {
	r := newTestServer(t).Router()
	u := registerAndLogin(t, r, "mwila@example.com")

	var resp struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversation_id"`
	}
	w := call(t, r, http.MethodPost, "/api/support/chat", u.token, gin.H{"message": "How do I check my balance?"}, &resp)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, resp.Response)
	assert.NotEmpty(t, resp.ConversationID)

	w = call(t, r, http.MethodPost, "/api/support/chat", u.token, gin.H{"message": "hi"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	srv, st := newTestServerWithStore(t)
	r := srv.Router()
	u := registerAndLogin(t, r, "mwila@example.com")
	boss := registerAndLogin(t, r, "admin@example.com")
	promote(t, st, boss.userID)

	w := call(t, r, http.MethodGet, "/api/users", u.token, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var list []models.User
	w = call(t, r, http.MethodGet, "/api/users", boss.token, nil, &list)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list, 2)

	w = call(t, r, http.MethodDelete, "/api/users/"+itoa(u.userID), boss.token, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "mwila@example.com", "password": "s3cretpass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisabledUserLosesAccess(t *testing.T) {
	srv := newTestServer(t)
	r := srv.Router()
	alice := registerAndLogin(t, r, "alice@example.com")
	bob := registerAndLogin(t, r, "bob@example.com")

	w := call(t, r, http.MethodGet, "/api/accounts", alice.token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, srv.users.Disable(context.Background(), alice.userID))

	var resp map[string]string
	w = call(t, r, http.MethodGet, "/api/accounts", alice.token, nil, &resp)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "account is disabled", resp["error"])

	w = call(t, r, http.MethodPost, "/api/transfers", alice.token, gin.H{
		"from_account_id":   alice.accountID,
		"to_account_number": bob.number,
		"amount":            "100.00",
		"description":       "After disable",
		"transfer_type":     "P2P",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var acct map[string]any
	call(t, r, http.MethodGet, "/api/accounts/"+itoa(bob.accountID), bob.token, nil, &acct)
	assert.Equal(t, "1000", acct["balance"])
}

func TestTokenForUnknownUserIsRejected(t *testing.T) {
	srv := newTestServer(t)
	r := srv.Router()

	ghost, err := srv.tokens.Issue(models.User{ID: 999, Role: models.RoleAdmin})
	require.NoError(t, err)
	w := call(t, r, http.MethodGet, "/api/users", ghost, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
