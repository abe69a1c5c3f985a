package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bankinghub/auth"
	"bankinghub/bills"
	"bankinghub/models"
)

type billRequest struct {
	PayeeName           string           `json:"payee_name" binding:"required"`
	Amount              decimal.Decimal  `json:"amount"`
	DueDate             string           `json:"due_date" binding:"required"`
	Category            string           `json:"category"`
	Description         string           `json:"description"`
	Recurring           bool             `json:"recurring"`
	RecurrenceFrequency models.Frequency `json:"recurrence_frequency"`
	AutoPay             bool             `json:"auto_pay"`
	AutoPayAccountID    *int64           `json:"auto_pay_account_id"`
	PayeeAccountNumber  string           `json:"payee_account_number"`
	PayeeAddress        string           `json:"payee_address"`
}

type payRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
}

func (req billRequest) input() (bills.Input, error) {
	due, err := parseDate(req.DueDate)
	if err != nil {
		return bills.Input{}, err
	}
	return bills.Input{
		PayeeName:          req.PayeeName,
		Amount:             req.Amount,
		DueDate:            due,
		Category:           req.Category,
		Description:        req.Description,
		Recurring:          req.Recurring,
		Frequency:          req.RecurrenceFrequency,
		AutoPay:            req.AutoPay,
		AutoPayAccountID:   req.AutoPayAccountID,
		PayeeAccountNumber: req.PayeeAccountNumber,
		PayeeAddress:       req.PayeeAddress,
	}, nil
}

func (s *Server) createBill(c *gin.Context) {
	var req billRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	b, err := s.bills.CreateBill(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bills.NewView(*b, s.bills.Today()))
}

func (s *Server) listBills(c *gin.Context) {
	list, err := s.bills.ListBills(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	today := s.bills.Today()
	out := make([]bills.View, 0, len(list))
	for _, b := range list {
		out = append(out, bills.NewView(b, today))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := s.bills.GetBill(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bills.NewView(*b, s.bills.Today()))
}

func (s *Server) updateBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req billRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	b, err := s.bills.UpdateBill(c.Request.Context(), auth.UserID(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bills.NewView(*b, s.bills.Today()))
}

func (s *Server) cancelBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.bills.CancelBill(c.Request.Context(), auth.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) payBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req payRequest
	if !bind(c, &req) {
		return
	}
	b, err := s.bills.PayBill(c.Request.Context(), auth.UserID(c), id, req.AccountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bills.NewView(*b, s.bills.Today()))
}
