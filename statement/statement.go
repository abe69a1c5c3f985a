// Package statement renders account statements as PDF, CSV or plain text.
package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/ledger"
	"bankinghub/models"
)

type Format string

const (
	PDF  Format = "pdf"
	CSV  Format = "csv"
	Text Format = "text"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PDF, CSV, Text:
		return f, nil
	}
	return "", models.Invalid("unsupported statement format %q", s)
}

func (f Format) Ext() string {
	if f == Text {
		return "txt"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case CSV:
		return "text/csv"
	}
	return "text/plain; charset=utf-8"
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

// Statement is one account and a slice of its postings.
type Statement struct {
	BankName     string
	Currency     string
	Account      models.Account
	Transactions []models.Transaction
	From, To     time.Time
	GeneratedAt  time.Time
}

func (s Statement) masked() string {
	return ledger.MaskAccountNumber(s.Account.AccountNumber)
}

func (s Statement) money(d decimal.Decimal) string {
	return s.Currency + " " + d.StringFixed(2)
}

// period is empty unless both bounds are set.
func (s Statement) period() string {
	if s.From.IsZero() || s.To.IsZero() {
		return ""
	}
	return s.From.Format(dateLayout) + " to " + s.To.Format(dateLayout)
}

// Totals sums credits and debits separately.
func Totals(txs []models.Transaction) (credits, debits decimal.Decimal) {
	for _, t := range txs {
		switch {
		case t.Type.IsCredit():
			credits = credits.Add(t.Amount)
		case t.Type.IsDebit():
			debits = debits.Add(t.Amount)
		}
	}
	return credits, debits
}

// Render produces the statement in the requested format.
func Render(s Statement, f Format) ([]byte, error) {
	switch f {
	case PDF:
		return s.PDF()
	case CSV:
		return s.CSV()
	case Text:
		return s.Text(), nil
	}
	return nil, models.Invalid("unsupported statement format %q", f)
}

// Filename is statement_<masked number>_<unix millis>.<ext>.
func Filename(accountNumber string, f Format, at time.Time) string {
	return fmt.Sprintf("statement_%s_%d.%s", ledger.MaskAccountNumber(accountNumber), at.UnixMilli(), f.Ext())
}
