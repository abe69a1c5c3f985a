package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bankinghub/auth"
	"bankinghub/budget"
	"bankinghub/models"
)

type budgetRequest struct {
	Category       string              `json:"category" binding:"required"`
	Limit          decimal.Decimal     `json:"budget_limit"`
	StartDate      string              `json:"start_date" binding:"required"`
	EndDate        string              `json:"end_date" binding:"required"`
	Period         models.BudgetPeriod `json:"period" binding:"required"`
	AlertEnabled   *bool               `json:"alert_enabled"`
	AlertThreshold *decimal.Decimal    `json:"alert_threshold"`
	Description    string              `json:"description"`
	Active         *bool               `json:"active"`
}

func (req budgetRequest) input() (budget.Input, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return budget.Input{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return budget.Input{}, err
	}
	return budget.Input{
		Category:       req.Category,
		Limit:          req.Limit,
		StartDate:      start,
		EndDate:        end,
		Period:         req.Period,
		AlertEnabled:   req.AlertEnabled,
		AlertThreshold: req.AlertThreshold,
		Description:    req.Description,
		Active:         req.Active,
	}, nil
}

func (s *Server) summaries(list []models.Budget) []budget.Summary {
	today := s.budgets.Today()
	out := make([]budget.Summary, 0, len(list))
	for _, b := range list {
		out = append(out, budget.Summarize(b, today))
	}
	return out
}

func (s *Server) createBudget(c *gin.Context) {
	var req budgetRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	b, err := s.budgets.CreateBudget(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget.Summarize(*b, s.budgets.Today()))
}

func (s *Server) listBudgets(c *gin.Context) {
	list, err := s.budgets.ListBudgets(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.summaries(list))
}

func (s *Server) overBudgets(c *gin.Context) {
	list, err := s.budgets.OverBudgets(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.summaries(list))
}

func (s *Server) alertingBudgets(c *gin.Context) {
	list, err := s.budgets.AlertingBudgets(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.summaries(list))
}

func (s *Server) getBudget(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := s.budgets.GetBudget(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, budget.Summarize(*b, s.budgets.Today()))
}

func (s *Server) updateBudget(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req budgetRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	b, err := s.budgets.UpdateBudget(c.Request.Context(), auth.UserID(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, budget.Summarize(*b, s.budgets.Today()))
}

func (s *Server) deleteBudget(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.budgets.DeleteBudget(c.Request.Context(), auth.UserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
