package dto

import "github.com/shopspring/decimal"

type CashierStatisticsResponse struct {
	UserID               string          `json:"user_id"`
	BranchID             *string         `json:"branch_id"`
	TotalShifts          int             `json:"total_shifts"`
	PerfectShifts        int             `json:"perfect_shifts"`
	PrecisionPct         int64           `json:"precision_pct"`
	DiscrepancyThisMonth decimal.Decimal `json:"discrepancy_this_month"`
	DiscrepancyTotal     decimal.Decimal `json:"discrepancy_total"`
	MonthFrom            string          `json:"month_from"`
	MonthTo              string          `json:"month_to"`
}

type CashierDiscrepancyRow struct {
	UserID           string          `json:"user_id"`
	TotalShifts      int             `json:"total_shifts"`
	PerfectShifts    int             `json:"perfect_shifts"`
	PrecisionPct     int64           `json:"precision_pct"`
	TotalDiscrepancy decimal.Decimal `json:"total_discrepancy"`
}

type BranchDiscrepancyReportResponse struct {
	BranchID string                  `json:"branch_id"`
	From     string                  `json:"from"`
	To       string                  `json:"to"`
	Rows     []CashierDiscrepancyRow `json:"rows"`
}

type DiscrepancyRecordResponse struct {
	ID             string          `json:"id"`
	ShiftID        string          `json:"shift_id"`
	BranchID       string          `json:"branch_id"`
	UserID         string          `json:"user_id"`
	RegisterID     *string         `json:"register_id"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ActualAmount   decimal.Decimal `json:"actual_amount"`
	Discrepancy    decimal.Decimal `json:"discrepancy"`
	ShiftDate      string          `json:"shift_date"`
	Notes          *string         `json:"notes"`
}
