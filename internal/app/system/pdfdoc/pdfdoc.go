// Package pdfdoc renders the invoice and welcome letter PDFs.
package pdfdoc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Letterhead is printed at the top of every document.
type Letterhead struct {
	CompanyName    string
	CompanyAddress string
}

// Invoice is the data printed on a payment invoice. Amounts are
// preformatted strings; the renderer never computes anything.
type Invoice struct {
	Letterhead
	InvoiceNumber  string
	IssuedAt       time.Time
	MemberName     string
	MemberPhone    string
	ChitName       string
	PaymentMonth   string
	SlotNumber     int
	PaymentDate    time.Time
	DueDate        time.Time
	PaymentMode    string
	PaidAmount     string
	PenaltyAmount  string
	InterestAmount string
	TotalRequired  string
	TotalPaid      string
	BalanceAmount  string
	Status         string
	Confirmed      bool
	Remarks        string
}

// WelcomeLetter is the data printed on an enrollment letter.
type WelcomeLetter struct {
	Letterhead
	MemberName string
	Phone      string
	Address    string
	Date       time.Time
	Chits      []WelcomeChit
}

// WelcomeChit is one enrollment listed in a welcome letter.
type WelcomeChit struct {
	Name           string
	Amount         string
	MonthlyPayable string
	Slots          int
	Duration       int
	StartDate      time.Time
	CycleDay       int
}

const dateLayout = "02 Jan 2006"

type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDoc(title string, lh Letterhead) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(lh.CompanyName, true)
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()
	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 9, d.tr(lh.CompanyName), "", 1, "L", false, 0, "")
	if lh.CompanyAddress != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, d.tr(lh.CompanyAddress), "", "L", false)
	}
	pdf.Ln(2)
	pdf.SetDrawColor(6, 95, 70)
	pdf.SetLineWidth(0.6)
	x, y := pdf.GetXY()
	pdf.Line(x, y, 210-18, y)
	pdf.Ln(6)
	return d
}

func (d *doc) heading(s string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(0, 8, d.tr(s), "", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

// row prints a label/value pair.
func (d *doc) row(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(50, 7, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(0, 7, d.tr(value), "", 1, "L", false, 0, "")
}

func (d *doc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderInvoice produces the invoice PDF for one ledger entry.
func RenderInvoice(inv Invoice) ([]byte, error) {
	d := newDoc("Invoice "+inv.InvoiceNumber, inv.Letterhead)

	d.heading("Payment Invoice")
	d.row("Invoice number", inv.InvoiceNumber)
	d.row("Issued", inv.IssuedAt.Format(dateLayout))
	d.row("Member", inv.MemberName)
	if inv.MemberPhone != "" {
		d.row("Phone", inv.MemberPhone)
	}
	d.row("Chit", inv.ChitName)
	d.row("Month / slot", fmt.Sprintf("%s / slot %d", inv.PaymentMonth, inv.SlotNumber))
	d.row("Payment date", inv.PaymentDate.Format(dateLayout))
	d.row("Due date", inv.DueDate.Format(dateLayout))
	d.row("Mode", inv.PaymentMode)
	d.pdf.Ln(4)

	pdf := d.pdf
	pdf.SetFillColor(243, 244, 246)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(120, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	lines := [][2]string{
		{"Amount due for slot", inv.TotalRequired},
		{"Paid", inv.PaidAmount},
		{"Penalty", inv.PenaltyAmount},
		{"Interest", inv.InterestAmount},
		{"Total received", inv.TotalPaid},
	}
	for _, l := range lines {
		pdf.CellFormat(120, 8, d.tr(l[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, d.tr(l[1]), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 9, "Balance", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 9, d.tr(inv.BalanceAmount), "1", 1, "R", true, 0, "")
	pdf.Ln(4)

	confirmed := "Awaiting admin confirmation"
	if inv.Confirmed {
		confirmed = "Confirmed by admin"
	}
	d.row("Status", inv.Status)
	d.row("Confirmation", confirmed)
	if inv.Remarks != "" {
		d.row("Remarks", inv.Remarks)
	}

	pdf.SetY(-30)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "This is a computer generated invoice and does not require a signature.", "", 1, "C", false, 0, "")
	return d.bytes()
}

// RenderWelcomeLetter produces the enrollment letter for a member.
func RenderWelcomeLetter(wl WelcomeLetter) ([]byte, error) {
	d := newDoc("Welcome letter", wl.Letterhead)
	pdf := d.pdf

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, wl.Date.Format(dateLayout), "", 1, "R", false, 0, "")
	pdf.Ln(2)
	pdf.CellFormat(0, 6, d.tr(wl.MemberName), "", 1, "L", false, 0, "")
	if wl.Phone != "" {
		pdf.CellFormat(0, 6, d.tr(wl.Phone), "", 1, "L", false, 0, "")
	}
	if wl.Address != "" {
		pdf.MultiCell(0, 6, d.tr(wl.Address), "", "L", false)
	}
	pdf.Ln(6)

	d.heading("Welcome")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, d.tr(fmt.Sprintf(
		"Dear %s, thank you for joining %s. Your enrollment details are listed below. "+
			"Monthly installments are due on the cycle day of each month; payments after the due date are marked overdue.",
		wl.MemberName, wl.CompanyName)), "", "L", false)
	pdf.Ln(4)

	pdf.SetFillColor(243, 244, 246)
	pdf.SetFont("Helvetica", "B", 9)
	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Chit", 46, "L"}, {"Value", 28, "R"}, {"Monthly", 26, "R"},
		{"Slots", 14, "C"}, {"Months", 16, "C"}, {"Starts", 24, "C"}, {"Due day", 0, "C"},
	}
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.w, 8, c.title, "1", ln, c.align, true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, c := range wl.Chits {
		vals := []string{
			c.Name, c.Amount, c.MonthlyPayable,
			fmt.Sprint(c.Slots), fmt.Sprint(c.Duration),
			c.StartDate.Format(dateLayout), fmt.Sprint(c.CycleDay),
		}
		for i, col := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(col.w, 8, d.tr(vals[i]), "1", ln, col.align, false, 0, "")
		}
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "With regards,", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, d.tr(wl.CompanyName), "", 1, "L", false, 0, "")
	return d.bytes()
}
