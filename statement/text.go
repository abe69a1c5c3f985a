package statement

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	rule = "====================================="
	line = "--------------------------------------------------------------------------------"
)

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func center(s string, width int) string {
	pad := (width - utf8.RuneCountInString(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func (s Statement) Text() []byte {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(center(strings.ToUpper(s.BankName), len(rule)) + "\n")
	b.WriteString(center("BANK STATEMENT", len(rule)) + "\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("ACCOUNT INFORMATION:\n-------------------\n")
	fmt.Fprintf(&b, "Account Name: %s\n", s.Account.Name)
	fmt.Fprintf(&b, "Account Number: %s\n", s.masked())
	fmt.Fprintf(&b, "Account Type: %s\n", s.Account.Type)
	fmt.Fprintf(&b, "Current Balance: %s\n", s.money(s.Account.Balance))
	if p := s.period(); p != "" {
		fmt.Fprintf(&b, "Statement Period: %s\n", p)
	}
	fmt.Fprintf(&b, "Generated On: %s\n\n", s.GeneratedAt.Format(dateTimeLayout))

	b.WriteString("TRANSACTION HISTORY:\n-------------------\n")
	if len(s.Transactions) == 0 {
		b.WriteString("No transactions found for the specified period.\n")
	} else {
		fmt.Fprintf(&b, "%-12s %-30s %-15s %-15s %-15s\n", "Date", "Description", "Type", "Amount", "Balance")
		b.WriteString(line + "\n")
		for _, t := range s.Transactions {
			fmt.Fprintf(&b, "%-12s %-30s %-15s %-15s %-15s\n",
				t.TransactionDate.Format(dateLayout),
				truncate(t.Description, 30),
				t.Type,
				s.money(t.Amount),
				s.money(t.BalanceAfter))
		}
		b.WriteString(line + "\n")

		credits, debits := Totals(s.Transactions)
		b.WriteString("\nSUMMARY:\n")
		fmt.Fprintf(&b, "Total Credits: %s\n", s.money(credits))
		fmt.Fprintf(&b, "Total Debits: %s\n", s.money(debits))
		fmt.Fprintf(&b, "Total Transactions: %d\n", len(s.Transactions))
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("This statement is computer generated\nand does not require a signature.\n")
	fmt.Fprintf(&b, "\n%s - Banking Made Simple\n", s.BankName)
	b.WriteString(rule + "\n")
	return []byte(b.String())
}
