// Package notices builds the member and admin emails (receipts, welcome
// letters, reset codes) and hands them to the background notifier. Nothing
// here blocks a request: rendering and delivery happen on the worker.
package notices

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/mailer"
	"github.com/dalemusser/chitfund/internal/app/system/pdfdoc"
	"github.com/dalemusser/chitfund/internal/app/system/workers"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.uber.org/zap"
)

// Job kinds, used as log and metric labels.
const (
	KindReceipt   = "payment_receipt"
	KindWelcome   = "welcome_letter"
	KindResetCode = "reset_code"
)

const displayDate = "02 Jan 2006"

// Notices queues outgoing mail. A nil *Notices sends nothing.
type Notices struct {
	mail  *mailer.Mailer
	queue *workers.Notifier
	lh    pdfdoc.Letterhead
	log   *zap.Logger
	now   func() time.Time
}

func New(mail *mailer.Mailer, queue *workers.Notifier, lh pdfdoc.Letterhead, logger *zap.Logger) *Notices {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notices{mail: mail, queue: queue, lh: lh, log: logger, now: time.Now}
}

// Letterhead is the company block printed on generated documents.
func (n *Notices) Letterhead() pdfdoc.Letterhead {
	if n == nil {
		return pdfdoc.Letterhead{}
	}
	return n.lh
}

func (n *Notices) enqueue(kind, to string, run func(ctx context.Context) error) bool {
	if n == nil {
		return false
	}
	if to == "" || !n.mail.Enabled() {
		n.log.Debug("notice skipped", zap.String("kind", kind), zap.Bool("has_recipient", to != ""))
		return false
	}
	return n.queue.Enqueue(workers.Job{Kind: kind, Run: run})
}

// Invoice maps an enriched ledger entry onto the printable invoice.
func Invoice(lh pdfdoc.Letterhead, e ledgerqueries.Entry, issued time.Time) pdfdoc.Invoice {
	return pdfdoc.Invoice{
		Letterhead:     lh,
		InvoiceNumber:  e.InvoiceNumber,
		IssuedAt:       issued,
		MemberName:     e.MemberName,
		MemberPhone:    e.MemberPhone,
		ChitName:       e.ChitName,
		PaymentMonth:   e.PaymentMonth,
		SlotNumber:     e.SlotNumber,
		PaymentDate:    e.PaymentDate,
		DueDate:        e.DueDate,
		PaymentMode:    e.PaymentMode,
		PaidAmount:     e.PaidAmount.Format(),
		PenaltyAmount:  e.PenaltyAmount.Format(),
		InterestAmount: e.InterestAmount.Format(),
		TotalRequired:  e.TotalRequired.Format(),
		TotalPaid:      e.TotalPaid.Format(),
		BalanceAmount:  e.BalanceAmount.Format(),
		Status:         string(e.Status),
		Confirmed:      e.IsAdminConfirmed,
		Remarks:        e.Remarks,
	}
}

// WelcomeLetter maps a member and the chits they hold onto the printable
// letter. Assignments whose chit is missing from chits are left out.
func WelcomeLetter(lh pdfdoc.Letterhead, m models.Member, chits map[string]models.Chit, date time.Time) pdfdoc.WelcomeLetter {
	wl := pdfdoc.WelcomeLetter{
		Letterhead: lh,
		MemberName: m.Name,
		Phone:      m.Phone,
		Address:    m.Address,
		Date:       date,
	}
	for _, a := range m.Chits {
		c, ok := chits[a.ChitID.Hex()]
		if !ok {
			continue
		}
		wl.Chits = append(wl.Chits, pdfdoc.WelcomeChit{
			Name:           c.Name,
			Amount:         c.Amount.Format(),
			MonthlyPayable: c.MonthlyPayableAmount.Format(),
			Slots:          a.Slots,
			Duration:       c.Duration,
			StartDate:      c.StartDate,
			CycleDay:       c.CycleDay,
		})
	}
	return wl
}

// PaymentReceipt emails the member one receipt for a batch of entries, with
// each entry's invoice attached. entries must share member and chit.
func (n *Notices) PaymentReceipt(to string, entries []ledgerqueries.Entry) bool {
	if len(entries) == 0 {
		return false
	}
	lh := n.Letterhead()
	return n.enqueue(KindReceipt, to, func(ctx context.Context) error {
		first := entries[0]
		data := mailer.ReceiptEmailData{
			CompanyName:  lh.CompanyName,
			MemberName:   first.MemberName,
			ChitName:     first.ChitName,
			PaymentMonth: first.PaymentMonth,
			PaymentDate:  first.PaymentDate.Format(displayDate),
			PaymentMode:  first.PaymentMode,
		}
		total := money.Zero
		var files []mailer.Attachment
		for _, e := range entries {
			data.Lines = append(data.Lines, mailer.ReceiptLine{
				InvoiceNumber: e.InvoiceNumber,
				SlotNumber:    e.SlotNumber,
				PaidAmount:    e.PaidAmount.Format(),
				PenaltyAmount: e.PenaltyAmount.Format(),
				Balance:       e.BalanceAmount.Format(),
				Status:        string(e.Status),
			})
			total = total.Add(e.TotalPaid)

			pdf, err := pdfdoc.RenderInvoice(Invoice(lh, e, n.now()))
			if err != nil {
				return fmt.Errorf("render invoice %s: %w", e.InvoiceNumber, err)
			}
			files = append(files, mailer.Attachment{
				Filename:    e.InvoiceNumber + ".pdf",
				ContentType: "application/pdf",
				Data:        pdf,
			})
		}
		data.TotalPaid = total.Format()

		msg := mailer.BuildReceiptEmail(data)
		msg.To = to
		msg.Attachments = files
		return n.mail.Send(ctx, msg)
	})
}

// Welcome emails a newly enrolled member with the welcome letter attached.
func (n *Notices) Welcome(m models.Member, chits map[string]models.Chit) bool {
	lh := n.Letterhead()
	return n.enqueue(KindWelcome, m.Email, func(ctx context.Context) error {
		wl := WelcomeLetter(lh, m, chits, n.now())
		pdf, err := pdfdoc.RenderWelcomeLetter(wl)
		if err != nil {
			return fmt.Errorf("render welcome letter: %w", err)
		}
		data := mailer.WelcomeEmailData{CompanyName: lh.CompanyName, MemberName: m.Name}
		for _, c := range wl.Chits {
			data.Chits = append(data.Chits, mailer.WelcomeChit{
				Name:           c.Name,
				Amount:         c.Amount,
				MonthlyPayable: c.MonthlyPayable,
				Slots:          c.Slots,
				StartDate:      c.StartDate.Format(displayDate),
				CycleDay:       c.CycleDay,
			})
		}
		msg := mailer.BuildWelcomeEmail(data)
		msg.To = m.Email
		msg.Attachments = []mailer.Attachment{{
			Filename:    "welcome-letter.pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}}
		return n.mail.Send(ctx, msg)
	})
}

// ResetCode emails an admin their password reset code.
func (n *Notices) ResetCode(to, code string, expiry time.Duration) bool {
	lh := n.Letterhead()
	return n.enqueue(KindResetCode, to, func(ctx context.Context) error {
		msg := mailer.BuildResetCodeEmail(mailer.ResetCodeEmailData{
			CompanyName: lh.CompanyName,
			Code:        code,
			ExpiresIn:   FormatExpiry(expiry),
		})
		msg.To = to
		return n.mail.Send(ctx, msg)
	})
}

// FormatExpiry renders a duration as "10 minutes", "1 hour" and so on.
func FormatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
