// internal/app/features/payments/export.go
package payments

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/chitfund/internal/app/store/queries/ledgerqueries"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	exportSheet  = "Payments"
	exportDate   = "2006-01-02"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []string{
	"Invoice", "Member", "Phone", "Chit", "Month", "Slot", "Slots held", "Slots paid this month",
	"Payment date", "Due date", "Mode", "Paid", "Penalty", "Interest", "Total required",
	"Total paid", "Balance", "Status", "Confirmed",
}

// exportRow flattens an entry. Derived values come from the entry as
// computed by the ledger query; nothing is recomputed here.
func exportRow(e ledgerqueries.Entry) []string {
	confirmed := "no"
	if e.IsAdminConfirmed {
		confirmed = "yes"
	}
	return []string{
		e.InvoiceNumber,
		e.MemberName,
		e.MemberPhone,
		e.ChitName,
		e.PaymentMonth,
		fmt.Sprint(e.SlotNumber),
		fmt.Sprint(e.Slots),
		fmt.Sprint(e.PaidSlotsCount),
		e.PaymentDate.Format(exportDate),
		e.DueDate.Format(exportDate),
		e.PaymentMode,
		e.PaidAmount.Format(),
		e.PenaltyAmount.Format(),
		e.InterestAmount.Format(),
		e.TotalRequired.Format(),
		e.TotalPaid.Format(),
		e.BalanceAmount.Format(),
		string(e.Status),
		confirmed,
	}
}

// ServeExport downloads the filtered ledger as CSV or XLSX (default).
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	format := normalize.Lower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "csv" {
		respond.Error(w, r, h.Log, apierr.Validation("Invalid format.", map[string]string{"format": "must be xlsx or csv"}))
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "payments.export")
	defer cancel()

	now := h.now()
	entries, err := h.Ledger.Export(ctx, f, now)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(entries) == ledgerqueries.MaxExportRows {
		h.Log.Warn("payment export truncated", zap.Int("rows", len(entries)))
	}

	filename := "payments-" + now.Format("20060102-150405") + "." + format
	if format == "csv" {
		h.writeCSV(w, filename, entries)
		return
	}
	h.writeXLSX(w, r, filename, entries)
}

// exportTextColumns are the free-text columns of exportRow: invoice,
// member, phone, chit and payment mode.
var exportTextColumns = []int{0, 1, 2, 3, 10}

// csvSafe quotes text cells a spreadsheet would run as a formula. XLSX
// cells are typed as strings and need no escaping.
func csvSafe(row []string) []string {
	for _, i := range exportTextColumns {
		if v := row[i]; v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
			row[i] = "'" + v
		}
	}
	return row
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, entries []ledgerqueries.Entry) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, e := range entries {
		_ = cw.Write(csvSafe(exportRow(e)))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.Warn("csv export write failed", zap.Error(err))
	}
}

func (h *Handler) writeXLSX(w http.ResponseWriter, r *http.Request, filename string, entries []ledgerqueries.Entry) {
	xf, err := buildWorkbook(entries)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	defer xf.Close()

	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := xf.Write(w); err != nil {
		h.Log.Warn("xlsx export write failed", zap.Error(err))
	}
}

// buildWorkbook lays the entries out on a single sheet. Amount columns are
// written as numbers so spreadsheets can sum them.
func buildWorkbook(entries []ledgerqueries.Entry) (*excelize.File, error) {
	xf := excelize.NewFile()
	if err := xf.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(exportHeader))
	for i, v := range exportHeader {
		header[i] = v
	}
	if err := xf.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := xf.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := xf.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, e := range entries {
		row := exportRow(e)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cells[5], cells[6], cells[7] = e.SlotNumber, e.Slots, e.PaidSlotsCount
		cells[11] = e.PaidAmount.InexactFloat64()
		cells[12] = e.PenaltyAmount.InexactFloat64()
		cells[13] = e.InterestAmount.InexactFloat64()
		cells[14] = e.TotalRequired.InexactFloat64()
		cells[15] = e.TotalPaid.InexactFloat64()
		cells[16] = e.BalanceAmount.InexactFloat64()

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xf.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	_ = xf.SetColWidth(exportSheet, "A", "A", 14)
	_ = xf.SetColWidth(exportSheet, "B", "D", 22)
	_ = xf.SetColWidth(exportSheet, "E", "K", 12)
	_ = xf.SetColWidth(exportSheet, "L", "Q", 14)
	return xf, nil
}
