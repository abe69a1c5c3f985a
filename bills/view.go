package bills

import (
	"time"

	"bankinghub/models"
)

// View is a bill with its due-date figures for the client.
type View struct {
	models.Bill
	DaysUntilDue int64 `json:"days_until_due"`
	IsOverdue    bool  `json:"is_overdue"`
}

// NewView derives the due-date fields relative to today.
func NewView(b models.Bill, today time.Time) View {
	return View{Bill: b, DaysUntilDue: DaysUntilDue(b, today), IsOverdue: IsOverdue(b, today)}
}

// DaysUntilDue is negative once the due date has passed.
func DaysUntilDue(b models.Bill, today time.Time) int64 {
	return int64(models.Day(b.DueDate).Sub(models.Day(today)).Hours() / 24)
}

// IsOverdue holds for open bills whose due date has passed, whether or not
// MarkOverdue has flagged them yet.
func IsOverdue(b models.Bill, today time.Time) bool {
	open := b.Status == models.BillPending || b.Status == models.BillOverdue
	return open && models.Day(b.DueDate).Before(models.Day(today))
}
