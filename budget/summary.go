package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
)

const (
	StatusInactive   = "Inactive"
	StatusOverBudget = "Over Budget"
	StatusNearLimit  = "Near Limit"
	StatusOnTrack    = "On Track"
)

var hundred = decimal.NewFromInt(100)

// Summary is a budget plus the figures derived from it. None of the derived
// fields are stored; they are recomputed every time a budget is read.
type Summary struct {
	models.Budget
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	SpentPercentage decimal.Decimal `json:"spent_percentage"`
	IsOverBudget    bool            `json:"is_over_budget"`
	ShouldAlert     bool            `json:"should_alert"`
	DaysRemaining   *int64          `json:"days_remaining"`
	Status          string          `json:"status"`
}

// Summarize computes every derived field of b as of today.
func Summarize(b models.Budget, today time.Time) Summary {
	return Summary{
		Budget:          b,
		RemainingBudget: Remaining(b),
		SpentPercentage: SpentPercentage(b),
		IsOverBudget:    OverBudget(b),
		ShouldAlert:     ShouldAlert(b),
		DaysRemaining:   DaysRemaining(b, today),
		Status:          Status(b),
	}
}

func Remaining(b models.Budget) decimal.Decimal {
	return b.Limit.Sub(b.CurrentSpent)
}

// SpentPercentage divides spent by limit to four decimals, rounding half up,
// then scales to a percentage. A zero limit yields zero.
func SpentPercentage(b models.Budget) decimal.Decimal {
	if b.Limit.IsZero() {
		return decimal.Zero
	}
	return b.CurrentSpent.DivRound(b.Limit, 4).Mul(hundred)
}

func OverBudget(b models.Budget) bool {
	return b.CurrentSpent.GreaterThan(b.Limit)
}

func ShouldAlert(b models.Budget) bool {
	if !b.AlertEnabled {
		return false
	}
	return SpentPercentage(b).GreaterThanOrEqual(b.AlertThreshold)
}

// DaysRemaining counts calendar days from today to the end date, 0 once the
// end date has passed and nil when the budget has no end date.
func DaysRemaining(b models.Budget, today time.Time) *int64 {
	if b.EndDate.IsZero() {
		return nil
	}
	start, end := models.Day(today), models.Day(b.EndDate)
	var days int64
	if !start.After(end) {
		days = int64(end.Sub(start).Hours() / 24)
	}
	return &days
}

// Status picks the first matching label in priority order.
func Status(b models.Budget) string {
	switch {
	case !b.Active:
		return StatusInactive
	case OverBudget(b):
		return StatusOverBudget
	case ShouldAlert(b):
		return StatusNearLimit
	default:
		return StatusOnTrack
	}
}
