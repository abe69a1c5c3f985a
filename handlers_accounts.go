package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bankinghub/auth"
	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/statement"
)

type accountRequest struct {
	Type           models.AccountType `json:"account_type" binding:"required"`
	Name           string             `json:"account_name"`
	Description    string             `json:"description"`
	InitialBalance decimal.Decimal    `json:"initial_balance"`
	CreditLimit    *decimal.Decimal   `json:"credit_limit"`
	InterestRate   *decimal.Decimal   `json:"interest_rate"`
}

// accountUpdateRequest has no balance field; a balance in the body is ignored.
type accountUpdateRequest struct {
	Name         string           `json:"account_name" binding:"required"`
	Description  string           `json:"description"`
	CreditLimit  *decimal.Decimal `json:"credit_limit"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
}

type transactionRequest struct {
	AccountID       int64                  `json:"account_id" binding:"required"`
	Type            models.TransactionType `json:"transaction_type" binding:"required"`
	Amount          decimal.Decimal        `json:"amount"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"`
	Merchant        string                 `json:"merchant"`
	TransactionDate string                 `json:"transaction_date"`
}

func accountViews(list []models.Account) []ledger.AccountView {
	out := make([]ledger.AccountView, 0, len(list))
	for _, a := range list {
		out = append(out, ledger.NewAccountView(a))
	}
	return out
}

func (s *Server) createAccount(c *gin.Context) {
	var req accountRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.ledger.CreateAccount(c.Request.Context(), auth.UserID(c), ledger.AccountInput{
		Type:           req.Type,
		Name:           req.Name,
		Description:    req.Description,
		InitialBalance: req.InitialBalance,
		CreditLimit:    req.CreditLimit,
		InterestRate:   req.InterestRate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ledger.NewAccountView(*a))
}

func (s *Server) listAccounts(c *gin.Context) {
	list, err := s.ledger.ListAccounts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accountViews(list))
}

func (s *Server) getAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.ledger.GetAccount(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.NewAccountView(*a))
}

func (s *Server) updateAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req accountUpdateRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.ledger.UpdateAccount(c.Request.Context(), auth.UserID(c), id, ledger.AccountUpdate{
		Name:         req.Name,
		Description:  req.Description,
		CreditLimit:  req.CreditLimit,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.NewAccountView(*a))
}

func (s *Server) deactivateAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.ledger.DeactivateAccount(c.Request.Context(), auth.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	from, to, err := window(c)
	if err != nil {
		fail(c, err)
		return
	}
	txs, err := s.ledger.ListTransactions(c.Request.Context(), auth.UserID(c), id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, txs)
}

func (s *Server) statement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	format, err := statement.ParseFormat(c.Param("format"))
	if err != nil {
		fail(c, err)
		return
	}
	from, to, err := window(c)
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	a, err := s.ledger.GetAccount(ctx, userID, id)
	if err != nil {
		fail(c, err)
		return
	}
	txs, err := s.ledger.ListTransactions(ctx, userID, id, from, to)
	if err != nil {
		fail(c, err)
		return
	}

	now := s.now()
	body, err := statement.Render(statement.Statement{
		BankName:     s.cfg.BankName,
		Currency:     s.cfg.Currency,
		Account:      *a,
		Transactions: txs,
		From:         from,
		To:           to,
		GeneratedAt:  now,
	}, format)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+statement.Filename(a.AccountNumber, format, now))
	c.Data(http.StatusOK, format.ContentType(), body)
}

// accountActivity serves the activity log copy of an account's postings.
func (s *Server) accountActivity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.ledger.GetAccount(ctx, auth.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	logs, err := s.activity.History(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if logs == nil {
		logs = []models.TransactionLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) postTransaction(c *gin.Context) {
	var req transactionRequest
	if !bind(c, &req) {
		return
	}
	date, err := parseDate(req.TransactionDate)
	if err != nil {
		fail(c, err)
		return
	}
	t, err := s.ledger.PostTransaction(c.Request.Context(), auth.UserID(c), ledger.TransactionInput{
		AccountID:       req.AccountID,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		Category:        req.Category,
		Merchant:        req.Merchant,
		TransactionDate: date,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
