package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bankinghub/auth"
	"bankinghub/ledger"
	"bankinghub/models"
)

type transferRequest struct {
	FromAccountID   int64               `json:"from_account_id" binding:"required"`
	ToAccountID     *int64              `json:"to_account_id"`
	ToAccountNumber string              `json:"to_account_number"`
	Amount          decimal.Decimal     `json:"amount"`
	Description     string              `json:"description"`
	Type            models.TransferType `json:"transfer_type"`
	ScheduledDate   string              `json:"scheduled_date"`

	ExternalBankName          string `json:"external_bank_name"`
	ExternalAccountNumber     string `json:"external_account_number"`
	ExternalRoutingNumber     string `json:"external_routing_number"`
	ExternalAccountHolderName string `json:"external_account_holder_name"`
}

// createTransfer records the transfer and, unless it is scheduled for later,
// hands it straight to the dispatcher. The response reflects the transfer as
// it stands after dispatch.
func (s *Server) createTransfer(c *gin.Context) {
	var req transferRequest
	if !bind(c, &req) {
		return
	}
	in := ledger.TransferInput{
		FromAccountID:             req.FromAccountID,
		ToAccountID:               req.ToAccountID,
		ToAccountNumber:           req.ToAccountNumber,
		Amount:                    req.Amount,
		Description:               req.Description,
		Type:                      req.Type,
		ExternalBankName:          req.ExternalBankName,
		ExternalAccountNumber:     req.ExternalAccountNumber,
		ExternalRoutingNumber:     req.ExternalRoutingNumber,
		ExternalAccountHolderName: req.ExternalAccountHolderName,
	}
	if req.ScheduledDate != "" {
		at, err := parseDate(req.ScheduledDate)
		if err != nil {
			fail(c, err)
			return
		}
		in.ScheduledDate = &at
	}

	ctx := c.Request.Context()
	userID := auth.UserID(c)
	t, err := s.ledger.CreateTransfer(ctx, userID, in)
	if err != nil {
		fail(c, err)
		return
	}
	if !t.ScheduledDate.After(s.now()) {
		if err := s.dispatcher.Dispatch(ctx, t.ID); err != nil {
			// The scheduler picks the transfer up on its next pass.
			log.Printf("dispatch transfer %s: %v", t.ReferenceNumber, err)
		} else if fresh, err := s.ledger.GetTransfer(ctx, userID, t.ID); err == nil {
			t = fresh
		}
	}
	c.JSON(http.StatusCreated, ledger.NewTransferView(*t, s.now()))
}

func (s *Server) listTransfers(c *gin.Context) {
	list, err := s.ledger.ListTransfers(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	now := s.now()
	out := make([]ledger.TransferView, 0, len(list))
	for _, t := range list {
		out = append(out, ledger.NewTransferView(t, now))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := s.ledger.GetTransfer(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.NewTransferView(*t, s.now()))
}

func (s *Server) cancelTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := s.ledger.CancelTransfer(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger.NewTransferView(*t, s.now()))
}
