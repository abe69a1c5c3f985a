package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var csvHeader = []string{"Date", "Description", "Type", "Category", "Merchant", "Amount", "Balance", "Status"}

// CSV writes the account details as # comment lines followed by one record
// per posting.
func (s Statement) CSV() ([]byte, error) {
	var buf bytes.Buffer
	comment := func(format string, args ...any) {
		buf.WriteString("# ")
		fmt.Fprintf(&buf, format, args...)
		buf.WriteByte('\n')
	}
	comment("%s - Bank Statement", s.BankName)
	comment("Account Name: %s", s.Account.Name)
	comment("Account Number: %s", s.masked())
	comment("Account Type: %s", s.Account.Type)
	comment("Current Balance: %s", s.money(s.Account.Balance))
	if p := s.period(); p != "" {
		comment("Statement Period: %s", p)
	}
	comment("Generated On: %s", s.GeneratedAt.Format(dateTimeLayout))

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, t := range s.Transactions {
		err := w.Write([]string{
			t.TransactionDate.Format(dateTimeLayout),
			t.Description,
			string(t.Type),
			t.Category,
			t.Merchant,
			t.Amount.StringFixed(2),
			t.BalanceAfter.StringFixed(2),
			string(t.Status),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv statement: %w", err)
	}
	return buf.Bytes(), nil
}
