package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

const maxNumberAttempts = 50

func randomDigits() string {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// accountNumber draws prefix+10 digits until it finds one not yet in use.
func (s *Service) accountNumber(ctx context.Context, r store.Repository) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		number := s.cfg.AccountPrefix + s.digits()
		exists, err := r.AccountNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("no free account number after %d attempts", maxNumberAttempts)
}

// reference returns prefix followed by 12 upper-case hex characters.
func reference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(id[:12])
}

// validAmount accepts positive amounts with at most two decimal places.
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

func checkLength(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < lo || n > hi {
		return models.Invalid("%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}

// MaskAccountNumber keeps the last four characters of an account number.
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return "****" + number
	}
	return "****" + number[len(number)-4:]
}
