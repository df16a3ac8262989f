package infra

// pdf.go renders the close-out report of a register session using go-pdf/fpdf:
//   - store and register header
//   - opened/closed timestamps and session duration
//   - starting, expected and ending cash, discrepancy and its class
//   - every ledger event of the session
//
// The file is written to storagePath/session_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/reconcile"

	"github.com/go-pdf/fpdf"
	"github.com/hako/durafmt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CloseReport is everything the PDF needs about one closed session.
type CloseReport struct {
	StoreName string
	Register  model.Register
	Session   model.Session
	Events    []model.LedgerEvent
	Class     reconcile.Class
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders cents with thousands grouping: "$1,234.50", "-$100.00".
func FormatAmount(m money.Money) string {
	c := m.Cents()
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%s.%02d", sign, amountPrinter.Sprintf("%d", c/100), c%100)
}

// FormatDuration renders a session length as "8 hours 12 minutes".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return durafmt.Parse(d.Round(time.Second)).String()
	}
	return durafmt.Parse(d.Round(time.Minute)).LimitFirstN(2).String()
}

// GenerateCloseReportPDF writes the report and returns the file path.
func GenerateCloseReportPDF(r CloseReport, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("session_%s.pdf", r.Session.ID))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, r.StoreName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Register close-out report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	label := func(k, v string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(45, 6, k, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW-45, 6, v, "", 1, "L", false, 0, "")
	}

	s := r.Session
	label("Register:", fmt.Sprintf("#%d %s", r.Register.ID, r.Register.Name))
	label("Session:", s.ID.String())
	label("Opened:", s.OpenedAt.Format("2006-01-02 15:04:05 MST")+" by "+s.OpenedBy)
	if s.ClosedAt != nil {
		by := ""
		if s.ClosedBy != nil {
			by = " by " + *s.ClosedBy
		}
		label("Closed:", s.ClosedAt.Format("2006-01-02 15:04:05 MST")+by)
		label("Duration:", FormatDuration(s.ClosedAt.Sub(s.OpenedAt)))
	}
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)
	label("Starting cash:", FormatAmount(s.StartingCash))
	if s.ExpectedCash != nil {
		label("Expected cash:", FormatAmount(*s.ExpectedCash))
	}
	if s.EndingCash != nil {
		label("Ending cash:", FormatAmount(*s.EndingCash))
	}
	if s.Discrepancy != nil {
		label("Discrepancy:", fmt.Sprintf("%s (%s)", FormatAmount(*s.Discrepancy), r.Class))
	}
	pdf.Ln(3)

	// ── Events ───────────────────────────────────────────────────────────────
	col := []float64{contentW * 0.25, contentW * 0.15, contentW * 0.2, contentW * 0.4}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"Time", "Type", "Amount", "Reason / notes"} {
		align := "L"
		if i == 2 {
			align = "R"
		}
		pdf.CellFormat(col[i], 6, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, e := range r.Events {
		text := ""
		if e.Reason != nil {
			text = *e.Reason
		}
		if e.Notes != nil {
			if text != "" {
				text += " / "
			}
			text += *e.Notes
		}
		if len(text) > 48 {
			text = text[:47] + "..."
		}
		pdf.CellFormat(col[0], 5, e.OccurredAt.Format("15:04:05"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[1], 5, string(e.Type), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[2], 5, FormatAmount(e.Amount), "", 0, "R", false, 0, "")
		pdf.CellFormat(col[3], 5, "  "+text, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
