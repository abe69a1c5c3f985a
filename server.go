package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bankinghub/auth"
	"bankinghub/bills"
	"bankinghub/budget"
	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/support"
	"bankinghub/users"
)

// activityReader serves the account activity feed.
type activityReader interface {
	History(ctx context.Context, accountID int64) ([]models.TransactionLog, error)
}

// Server holds the services behind the HTTP API.
type Server struct {
	cfg        Config
	tokens     *auth.Tokens
	users      *users.Service
	ledger     *ledger.Service
	budgets    *budget.Service
	bills      *bills.Service
	support    *support.Responder
	activity   activityReader
	dispatcher Dispatcher
	now        func() time.Time
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("", auth.Middleware(s.tokens), auth.RequireActive(s.users))
	authed.GET("/auth/me", s.me)
	authed.PUT("/users/me", s.updateMe)

	admin := authed.Group("/users", auth.RequireRole(models.RoleAdmin))
	admin.GET("", s.listUsers)
	admin.DELETE("/:id", s.disableUser)

	authed.POST("/accounts", s.createAccount)
	authed.GET("/accounts", s.listAccounts)
	authed.GET("/accounts/:id", s.getAccount)
	authed.PUT("/accounts/:id", s.updateAccount)
	authed.DELETE("/accounts/:id", s.deactivateAccount)
	authed.GET("/accounts/:id/transactions", s.listTransactions)
	authed.GET("/accounts/:id/statement/:format", s.statement)
	if s.activity != nil {
		authed.GET("/accounts/:id/activity", s.accountActivity)
	}

	authed.POST("/transactions", s.postTransaction)

	authed.POST("/transfers", s.createTransfer)
	authed.GET("/transfers", s.listTransfers)
	authed.GET("/transfers/:id", s.getTransfer)
	authed.POST("/transfers/:id/cancel", s.cancelTransfer)

	authed.POST("/budgets", s.createBudget)
	authed.GET("/budgets", s.listBudgets)
	authed.GET("/budgets/over", s.overBudgets)
	authed.GET("/budgets/alerts", s.alertingBudgets)
	authed.GET("/budgets/:id", s.getBudget)
	authed.PUT("/budgets/:id", s.updateBudget)
	authed.DELETE("/budgets/:id", s.deleteBudget)

	authed.POST("/bills", s.createBill)
	authed.GET("/bills", s.listBills)
	authed.GET("/bills/:id", s.getBill)
	authed.PUT("/bills/:id", s.updateBill)
	authed.DELETE("/bills/:id", s.cancelBill)
	authed.POST("/bills/:id/pay", s.payBill)

	authed.POST("/support/chat", s.supportChat)
	return r
}

var errorKinds = []struct {
	kind   error
	status int
}{
	{models.ErrValidation, http.StatusUnprocessableEntity},
	{models.ErrBusinessRule, http.StatusBadRequest},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrUnauthenticated, http.StatusUnauthorized},
	{models.ErrForbidden, http.StatusForbidden},
}

// fail maps an error kind to its status and writes {"error": message}.
// Unclassified errors are logged and reported as 500.
func fail(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			msg := strings.TrimPrefix(err.Error(), k.kind.Error()+": ")
			c.JSON(k.status, gin.H{"error": msg})
			return
		}
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// bind decodes the JSON body; malformed bodies are validation errors.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty string is the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, models.Invalid("invalid date %q, expected YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// window reads the from/to query parameters. A date-only upper bound covers
// that whole day.
func window(c *gin.Context) (from, to time.Time, err error) {
	if from, err = parseDate(c.Query("from")); err != nil {
		return
	}
	if to, err = parseDate(c.Query("to")); err != nil {
		return
	}
	if q := c.Query("to"); len(q) == len(time.DateOnly) {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		err = models.Invalid("to must not precede from")
	}
	return
}
