package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankinghub/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sample(limit, spent string) models.Budget {
	return models.Budget{
		Category:       "Food",
		Limit:          d(limit),
		CurrentSpent:   d(spent),
		StartDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Period:         models.Monthly,
		AlertEnabled:   true,
		AlertThreshold: d("80"),
		Active:         true,
	}
}

func TestSummarizeNearLimit(t *testing.T) {
	today := time.Date(2024, 3, 21, 15, 30, 0, 0, time.UTC)
	s := Summarize(sample("200.00", "180.00"), today)

	assert.True(t, s.SpentPercentage.Equal(d("90")))
	assert.True(t, s.RemainingBudget.Equal(d("20.00")))
	assert.True(t, s.ShouldAlert)
	assert.False(t, s.IsOverBudget)
	assert.Equal(t, StatusNearLimit, s.Status)
	require.NotNil(t, s.DaysRemaining)
	assert.EqualValues(t, 10, *s.DaysRemaining)
}

func TestStatusPriority(t *testing.T) {
	cases := []struct {
		name   string
		budget func() models.Budget
		want   string
	}{
		{"on track", func() models.Budget { return sample("200", "50") }, StatusOnTrack},
		{"over budget", func() models.Budget { return sample("200", "200.01") }, StatusOverBudget},
		{"exactly at limit alerts", func() models.Budget { return sample("200", "200") }, StatusNearLimit},
		{"inactive wins", func() models.Budget {
			b := sample("200", "500")
			b.Active = false
			return b
		}, StatusInactive},
		{"alerts disabled", func() models.Budget {
			b := sample("200", "190")
			b.AlertEnabled = false
			return b
		}, StatusOnTrack},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.budget()))
		})
	}
}

func TestSpentPercentageRounding(t *testing.T) {
	assert.True(t, SpentPercentage(sample("0", "10")).IsZero())
	assert.True(t, SpentPercentage(sample("3", "1")).Equal(d("33.33")))
	assert.True(t, SpentPercentage(sample("3", "2")).Equal(d("66.67")))
}

func TestShouldAlertThreshold(t *testing.T) {
	b := sample("100", "79.99")
	assert.False(t, ShouldAlert(b))
	b.CurrentSpent = d("80")
	assert.True(t, ShouldAlert(b))
	b.AlertEnabled = false
	assert.False(t, ShouldAlert(b))
}

func TestDaysRemaining(t *testing.T) {
	b := sample("100", "0")
	assert.EqualValues(t, 0, *DaysRemaining(b, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	assert.EqualValues(t, 0, *DaysRemaining(b, time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.EqualValues(t, 30, *DaysRemaining(b, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))

	b.EndDate = time.Time{}
	assert.Nil(t, DaysRemaining(b, time.Now()))
}
