package statement

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Date", 25},
	{"Description", 65},
	{"Type", 32},
	{"Amount", 34},
	{"Balance", 34},
}

func (s Statement) PDF() ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(s.BankName+" statement", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(strings.ToUpper(s.BankName)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "BANK STATEMENT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Account Information", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	info := []string{
		"Account Name: " + s.Account.Name,
		"Account Number: " + s.masked(),
		"Account Type: " + string(s.Account.Type),
		"Current Balance: " + s.money(s.Account.Balance),
	}
	if p := s.period(); p != "" {
		info = append(info, "Statement Period: "+p)
	}
	info = append(info, "Generated On: "+s.GeneratedAt.Format(dateTimeLayout))
	for _, l := range info {
		pdf.CellFormat(0, 6, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	if len(s.Transactions) == 0 {
		pdf.CellFormat(0, 6, "No transactions found for the specified period.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, "Transaction History", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(211, 211, 211)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, t := range s.Transactions {
			row := []string{
				t.TransactionDate.Format(dateLayout),
				truncate(t.Description, 34),
				string(t.Type),
				s.money(t.Amount),
				s.money(t.BalanceAfter),
			}
			for i, c := range pdfColumns {
				pdf.CellFormat(c.width, 6, tr(row[i]), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		credits, debits := Totals(s.Transactions)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, "Total Credits: "+s.money(credits), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, "Total Debits: "+s.money(debits), "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "This statement is computer generated and does not require a signature.", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, tr(s.BankName+" - Banking Made Simple"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf statement: %w", err)
	}
	return buf.Bytes(), nil
}
