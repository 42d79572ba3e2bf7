package infra

import (
	"bytes"
	"fmt"

	"restopos/internal/model"
	"restopos/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	sheetRanking = "Ranking"
	sheetDetail  = "Detalle"
)

// DiscrepancyWorkbook builds the branch discrepancy report as XLSX: one sheet
// with the per-cashier ranking (worst first) and one with every closed shift.
func DiscrepancyWorkbook(report *service.BranchDiscrepancyReport, records []model.DiscrepancyRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRanking); err != nil {
		return nil, fmt.Errorf("excel: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetDetail); err != nil {
		return nil, fmt.Errorf("excel: new sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("excel: style: %w", err)
	}

	// ── Ranking ───────────────────────────────────────────────────────────────
	_ = f.SetCellValue(sheetRanking, "A1", fmt.Sprintf("Sucursal %s", report.BranchID))
	_ = f.SetCellValue(sheetRanking, "A2", fmt.Sprintf("Desde %s hasta %s", report.From, report.To))
	if err := f.SetSheetRow(sheetRanking, "A4", &[]interface{}{"Cajero", "Turnos", "Turnos perfectos", "Precisión %", "Diferencia total"}); err != nil {
		return nil, fmt.Errorf("excel: header: %w", err)
	}
	_ = f.SetCellStyle(sheetRanking, "A4", "E4", header)
	for i, row := range report.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+5)
		values := []interface{}{
			row.UserID.String(),
			row.TotalShifts,
			row.PerfectShifts,
			row.PrecisionPct,
			row.TotalDiscrepancy.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetRanking, cell, &values); err != nil {
			return nil, fmt.Errorf("excel: ranking row: %w", err)
		}
	}

	// ── Detail ────────────────────────────────────────────────────────────────
	if err := f.SetSheetRow(sheetDetail, "A1", &[]interface{}{"Día operativo", "Cajero", "Caja", "Turno", "Esperado", "Contado", "Diferencia", "Notas"}); err != nil {
		return nil, fmt.Errorf("excel: header: %w", err)
	}
	_ = f.SetCellStyle(sheetDetail, "A1", "H1", header)
	for i, rec := range records {
		register, notes := "", ""
		if rec.RegisterID != nil {
			register = rec.RegisterID.String()
		}
		if rec.Notes != nil {
			notes = *rec.Notes
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			rec.ShiftDate,
			rec.UserID.String(),
			register,
			rec.ShiftID.String(),
			rec.ExpectedAmount.InexactFloat64(),
			rec.ActualAmount.InexactFloat64(),
			rec.Discrepancy.InexactFloat64(),
			notes,
		}
		if err := f.SetSheetRow(sheetDetail, cell, &values); err != nil {
			return nil, fmt.Errorf("excel: detail row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel: write: %w", err)
	}
	return buf.Bytes(), nil
}
