// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// ReceiptLine is one slot on a payment receipt.
type ReceiptLine struct {
	InvoiceNumber string
	SlotNumber    int
	PaidAmount    string
	PenaltyAmount string
	Balance       string
	Status        string
}

// ReceiptEmailData holds data for the payment receipt email.
type ReceiptEmailData struct {
	CompanyName  string
	MemberName   string
	ChitName     string
	PaymentMonth string
	PaymentDate  string
	PaymentMode  string
	Lines        []ReceiptLine
	TotalPaid    string
}

// WelcomeEmailData holds data for the enrollment welcome email.
type WelcomeEmailData struct {
	CompanyName string
	MemberName  string
	Chits       []WelcomeChit
}

// WelcomeChit is one chit the member joined.
type WelcomeChit struct {
	Name           string
	Amount         string
	MonthlyPayable string
	Slots          int
	StartDate      string
	CycleDay       int
}

// ResetCodeEmailData holds data for the admin password reset email.
type ResetCodeEmailData struct {
	CompanyName string
	Code        string
	ExpiresIn   string // e.g., "10 minutes"
}

var (
	receiptTmpl = template.Must(template.New("receipt").Parse(layoutHead + receiptBody + layoutFoot))
	welcomeTmpl = template.Must(template.New("welcome").Parse(layoutHead + welcomeBody + layoutFoot))
	resetTmpl   = template.Must(template.New("reset").Parse(layoutHead + resetBody + layoutFoot))
)

// BuildReceiptEmail creates the payment receipt. The caller sets To and
// attaches the invoice PDF.
func BuildReceiptEmail(data ReceiptEmailData) Email {
	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n", data.MemberName)
	fmt.Fprintf(&text, "We received your payment for %s (%s) on %s by %s.\n\n",
		data.ChitName, data.PaymentMonth, data.PaymentDate, data.PaymentMode)
	for _, l := range data.Lines {
		fmt.Fprintf(&text, "  %s  slot %d  paid %s  penalty %s  balance %s  (%s)\n",
			l.InvoiceNumber, l.SlotNumber, l.PaidAmount, l.PenaltyAmount, l.Balance, l.Status)
	}
	fmt.Fprintf(&text, "\nTotal received: %s\n\n%s\n", data.TotalPaid, data.CompanyName)

	return Email{
		Subject:  fmt.Sprintf("%s payment receipt - %s %s", data.CompanyName, data.ChitName, data.PaymentMonth),
		TextBody: text.String(),
		HTMLBody: render(receiptTmpl, data),
	}
}

// BuildWelcomeEmail creates the enrollment welcome email.
func BuildWelcomeEmail(data WelcomeEmailData) Email {
	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\nWelcome to %s. You are enrolled in:\n\n", data.MemberName, data.CompanyName)
	for _, c := range data.Chits {
		fmt.Fprintf(&text, "  %s: chit value %s, monthly %s x %d slot(s), starts %s, due on day %d\n",
			c.Name, c.Amount, c.MonthlyPayable, c.Slots, c.StartDate, c.CycleDay)
	}
	text.WriteString("\nYour welcome letter is attached.\n")
	return Email{
		Subject:  fmt.Sprintf("Welcome to %s", data.CompanyName),
		TextBody: text.String(),
		HTMLBody: render(welcomeTmpl, data),
	}
}

// BuildResetCodeEmail creates the password reset code email.
func BuildResetCodeEmail(data ResetCodeEmailData) Email {
	text := fmt.Sprintf("Your %s admin password reset code is: %s\n\nThis code expires in %s.\n\n"+
		"If you did not request a reset, you can safely ignore this email.\n",
		data.CompanyName, data.Code, data.ExpiresIn)
	return Email{
		Subject:  fmt.Sprintf("Your %s password reset code", data.CompanyName),
		TextBody: text,
		HTMLBody: render(resetTmpl, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

const layoutHead = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr><td align="center" style="padding: 40px 20px;">
      <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px;">
        <tr><td style="padding: 24px 32px; border-bottom: 1px solid #e5e7eb;">
          <h1 style="margin: 0; font-size: 22px; color: #065f46;">{{.CompanyName}}</h1>
        </td></tr>
        <tr><td style="padding: 32px; font-size: 15px; color: #374151; line-height: 1.5;">
`

const layoutFoot = `
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const receiptBody = `
          <p>Dear {{.MemberName}},</p>
          <p>We received your payment for <strong>{{.ChitName}}</strong> ({{.PaymentMonth}}) on {{.PaymentDate}} by {{.PaymentMode}}.</p>
          <table width="100%" cellpadding="6" style="border-collapse: collapse; font-size: 13px;">
            <tr style="background-color: #f9fafb;"><th align="left">Invoice</th><th>Slot</th><th align="right">Paid</th><th align="right">Penalty</th><th align="right">Balance</th><th>Status</th></tr>
            {{range .Lines}}<tr><td>{{.InvoiceNumber}}</td><td align="center">{{.SlotNumber}}</td><td align="right">{{.PaidAmount}}</td><td align="right">{{.PenaltyAmount}}</td><td align="right">{{.Balance}}</td><td align="center">{{.Status}}</td></tr>
            {{end}}
          </table>
          <p style="margin-top: 24px;"><strong>Total received: {{.TotalPaid}}</strong></p>`

const welcomeBody = `
          <p>Dear {{.MemberName}},</p>
          <p>Welcome to {{.CompanyName}}. You are enrolled in:</p>
          <ul>
            {{range .Chits}}<li><strong>{{.Name}}</strong>: chit value {{.Amount}}, monthly {{.MonthlyPayable}} &times; {{.Slots}} slot(s), starts {{.StartDate}}, due on day {{.CycleDay}}</li>
            {{end}}
          </ul>
          <p>Your welcome letter is attached.</p>`

const resetBody = `
          <p>Your admin password reset code is:</p>
          <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
            <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
          </div>
          <p style="font-size: 13px; color: #9ca3af; text-align: center;">This code expires in {{.ExpiresIn}}. If you did not request a reset, you can safely ignore this email.</p>`
