package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenShiftRequest struct {
	RegisterID    string          `json:"register_id"    validate:"required,uuid"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
}

// CloseShiftRequest: the count is mandatory; zero is a valid count.
type CloseShiftRequest struct {
	CountedAmount *decimal.Decimal `json:"counted_amount" validate:"required,min=0"`
	Notes         *string          `json:"notes"          validate:"omitempty,max=500"`
}

// DateRangeQuery is an inclusive range of operational days.
type DateRangeQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   validate:"omitempty,datetime=2006-01-02"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ShiftResponse struct {
	ID             string           `json:"id"`
	RegisterID     string           `json:"register_id"`
	RegisterName   string           `json:"register_name,omitempty"`
	RegisterKind   string           `json:"register_kind,omitempty"`
	BranchID       string           `json:"branch_id"`
	Status         string           `json:"status"`
	OpenedBy       string           `json:"opened_by"`
	OpenedAt       string           `json:"opened_at"`
	OperationalDay string           `json:"operational_day"`
	OpeningAmount  decimal.Decimal  `json:"opening_amount"`
	ClosedBy       *string          `json:"closed_by"`
	ClosedAt       *string          `json:"closed_at"`
	CountedAmount  *decimal.Decimal `json:"counted_amount"`
	Discrepancy    *decimal.Decimal `json:"discrepancy"`
	Notes          *string          `json:"notes"`
}

type DiscrepancyResponse struct {
	Expected       decimal.Decimal `json:"expected"`
	Counted        decimal.Decimal `json:"counted"`
	Amount         decimal.Decimal `json:"amount"`
	Percentage     decimal.Decimal `json:"percentage"`
	Classification string          `json:"classification"` // normal | warning | critical
	ShiftDate      string          `json:"shift_date"`
}

type CloseShiftResponse struct {
	Shift       ShiftResponse       `json:"shift"`
	Discrepancy DiscrepancyResponse `json:"discrepancy"`
}

type PaymentTotals struct {
	Cash decimal.Decimal `json:"cash"`
	Card decimal.Decimal `json:"card"`
	QR   decimal.Decimal `json:"qr"`
}

type ShiftReportResponse struct {
	Shift       ShiftResponse        `json:"shift"`
	Balance     decimal.Decimal      `json:"balance"`
	ByMethod    PaymentTotals        `json:"by_method"`
	Movements   []MovementResponse   `json:"movements"`
	Discrepancy *DiscrepancyResponse `json:"discrepancy"`
}

type OpenShiftSummary struct {
	ID       string          `json:"id"`
	OpenedBy string          `json:"opened_by"`
	OpenedAt string          `json:"opened_at"`
	Balance  decimal.Decimal `json:"balance"`
}

type RegisterStatusResponse struct {
	RegisterID   string            `json:"register_id"`
	Name         string            `json:"name"`
	Kind         string            `json:"kind"`
	DisplayOrder int               `json:"display_order"`
	OpenShift    *OpenShiftSummary `json:"open_shift"`
}

type BranchCashStatusResponse struct {
	BranchID            string                   `json:"branch_id"`
	OperationalDay      string                   `json:"operational_day"`
	RefreshAfterSeconds int                      `json:"refresh_after_seconds"`
	Registers           []RegisterStatusResponse `json:"registers"`
}
