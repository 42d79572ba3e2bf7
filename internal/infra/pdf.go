package infra

// pdf.go: shift close summary using go-pdf/fpdf.
// A5 portrait page with:
//   - Register and shift header (operational day, opener, times)
//   - Movement table (time, kind, method, concept, amount)
//   - Net per payment method
//   - Expected / counted / discrepancy block when the shift is closed
//
// Amounts are printed with two decimals; times in the business timezone.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"restopos/internal/model"
	"restopos/internal/service"

	"github.com/go-pdf/fpdf"
)

var kindLabels = map[model.MovementKind]string{
	model.MovementIncome:     "Ingreso",
	model.MovementExpense:    "Egreso",
	model.MovementDeposit:    "Depósito",
	model.MovementWithdrawal: "Retiro",
}

var methodLabels = map[model.PaymentMethod]string{
	model.PaymentCash: "Efectivo",
	model.PaymentCard: "Tarjeta",
	model.PaymentQR:   "QR",
}

// ShiftSummaryPDF renders the summary of a shift into memory.
func ShiftSummaryPDF(report *service.ShiftReport, loc *time.Location) ([]byte, error) {
	if report == nil || report.Shift == nil {
		return nil, fmt.Errorf("pdf: empty shift report")
	}
	if loc == nil {
		loc = time.UTC
	}
	shift := report.Shift

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	registerName := shift.RegisterID.String()
	if shift.Register != nil {
		registerName = shift.Register.Name
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr("Resumen de turno"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(registerName), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 8)
	info := [][2]string{
		{"Día operativo:", report.OperationalDay},
		{"Turno:", shift.ID.String()},
		{"Abierto por:", shift.OpenedBy.String()},
		{"Apertura:", shift.OpenedAt.In(loc).Format("02/01/2006 15:04")},
		{"Monto inicial:", money(shift.OpeningAmount.StringFixed(2))},
	}
	if shift.ClosedAt != nil {
		info = append(info, [2]string{"Cierre:", shift.ClosedAt.In(loc).Format("02/01/2006 15:04")})
	}
	for _, row := range info {
		pdf.CellFormat(contentW*0.3, 5, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.7, 5, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Movements ─────────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.12, contentW * 0.16, contentW * 0.16, contentW * 0.36, contentW * 0.20}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range []string{"Hora", "Tipo", "Medio", "Concepto", "Monto"} {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(cols[i], 5, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	if len(report.Movements) == 0 {
		pdf.CellFormat(contentW, 5, "Sin movimientos", "", 1, "C", false, 0, "")
	}
	for _, m := range report.Movements {
		concept := m.Concept
		if len([]rune(concept)) > 30 {
			concept = string([]rune(concept)[:29]) + "..."
		}
		sign := ""
		if m.Kind == model.MovementExpense || m.Kind == model.MovementWithdrawal {
			sign = "-"
		}
		pdf.CellFormat(cols[0], 5, m.CreatedAt.In(loc).Format("15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 5, tr(kindLabels[m.Kind]), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], 5, tr(methodLabels[m.PaymentMethod]), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3], 5, tr(concept), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[4], 5, sign+money(m.Amount.StringFixed(2)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	label := contentW * 0.7
	value := contentW * 0.3
	pdf.SetFont("Helvetica", "", 8)
	for _, method := range []model.PaymentMethod{model.PaymentCash, model.PaymentCard, model.PaymentQR} {
		pdf.CellFormat(label, 5, tr("Neto "+methodLabels[method]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(value, 5, money(report.ByMethod[method].StringFixed(2)), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(label, 6, "Efectivo esperado:", "", 0, "L", false, 0, "")
	pdf.CellFormat(value, 6, money(report.Balance.StringFixed(2)), "", 1, "R", false, 0, "")

	if c := report.Close; c != nil {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(label, 5, "Efectivo contado:", "", 0, "L", false, 0, "")
		pdf.CellFormat(value, 5, money(c.Counted.StringFixed(2)), "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(label, 6, tr(fmt.Sprintf("Diferencia (%s%%, %s):", c.Percentage.StringFixed(2), c.Classification)), "", 0, "L", false, 0, "")
		pdf.CellFormat(value, 6, money(c.Discrepancy.StringFixed(2)), "", 1, "R", false, 0, "")
		if shift.Notes != nil && *shift.Notes != "" {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "I", 7)
			pdf.MultiCell(contentW, 4, tr("Notas: "+*shift.Notes), "", "L", false)
		}
	} else {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(contentW, 4, "Turno abierto", "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveShiftSummary writes an already rendered summary to storagePath/cierre_{shift}.pdf.
func SaveShiftSummary(data []byte, shiftID string, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", shiftID))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func money(s string) string {
	if len(s) > 0 && s[0] == '-' {
		return "-$" + s[1:]
	}
	return "$" + s
}
