package handler

import (
	"time"

	"restopos/internal/dto"
	"restopos/internal/ledger"
	"restopos/internal/model"
	"restopos/internal/opday"
	"restopos/internal/service"

	"github.com/google/uuid"
)

// mapper renders timestamps in the business timezone.
type mapper struct{ loc *time.Location }

func (m mapper) ts(t time.Time) string { return t.In(m.loc).Format(time.RFC3339) }

func optString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func (m mapper) shift(s *model.CashRegisterShift) dto.ShiftResponse {
	resp := dto.ShiftResponse{
		ID:             s.ID.String(),
		RegisterID:     s.RegisterID.String(),
		BranchID:       s.BranchID.String(),
		Status:         string(s.Status),
		OpenedBy:       s.OpenedBy.String(),
		OpenedAt:       m.ts(s.OpenedAt),
		OperationalDay: opday.Key(s.OpenedAt.In(m.loc)),
		OpeningAmount:  s.OpeningAmount,
		ClosedBy:       optString(s.ClosedBy),
		CountedAmount:  s.CountedAmount,
		Discrepancy:    s.Discrepancy,
		Notes:          s.Notes,
	}
	if s.Register != nil {
		resp.RegisterName = s.Register.Name
		resp.RegisterKind = string(s.Register.Kind)
	}
	if s.ClosedAt != nil {
		closed := m.ts(*s.ClosedAt)
		resp.ClosedAt = &closed
	}
	return resp
}

func (m mapper) shifts(list []model.CashRegisterShift) []dto.ShiftResponse {
	out := make([]dto.ShiftResponse, 0, len(list))
	for i := range list {
		out = append(out, m.shift(&list[i]))
	}
	return out
}

func (m mapper) movement(mv *model.CashMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:            mv.ID.String(),
		ShiftID:       mv.ShiftID.String(),
		Kind:          string(mv.Kind),
		Amount:        mv.Amount,
		PaymentMethod: string(mv.PaymentMethod),
		Concept:       mv.Concept,
		ActorID:       mv.ActorID.String(),
		CreatedAt:     m.ts(mv.CreatedAt),
		RequestID:     mv.RequestID,
		TransferID:    optString(mv.TransferID),
	}
	if mv.TransferLeg != nil {
		leg := string(*mv.TransferLeg)
		resp.TransferLeg = &leg
	}
	return resp
}

func (m mapper) movements(list []model.CashMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for i := range list {
		out = append(out, m.movement(&list[i]))
	}
	return out
}

func (m mapper) discrepancy(r *service.CloseResult) dto.DiscrepancyResponse {
	resp := dto.DiscrepancyResponse{
		Expected:       r.Expected,
		Counted:        r.Counted,
		Amount:         r.Discrepancy,
		Percentage:     r.Percentage,
		Classification: string(r.Classification),
	}
	if r.Record != nil {
		resp.ShiftDate = r.Record.ShiftDate
	}
	return resp
}

func (m mapper) closeResult(r *service.CloseResult) dto.CloseShiftResponse {
	return dto.CloseShiftResponse{Shift: m.shift(r.Shift), Discrepancy: m.discrepancy(r)}
}

func paymentTotals(t ledger.Totals) dto.PaymentTotals {
	return dto.PaymentTotals{
		Cash: t[model.PaymentCash],
		Card: t[model.PaymentCard],
		QR:   t[model.PaymentQR],
	}
}

func (m mapper) report(r *service.ShiftReport) dto.ShiftReportResponse {
	resp := dto.ShiftReportResponse{
		Shift:     m.shift(r.Shift),
		Balance:   r.Balance,
		ByMethod:  paymentTotals(r.ByMethod),
		Movements: m.movements(r.Movements),
	}
	if r.Close != nil {
		d := m.discrepancy(r.Close)
		resp.Discrepancy = &d
	}
	return resp
}

func (m mapper) branchStatus(s *service.BranchStatus) dto.BranchCashStatusResponse {
	resp := dto.BranchCashStatusResponse{
		BranchID:            s.BranchID.String(),
		OperationalDay:      s.OperationalDay,
		RefreshAfterSeconds: int(s.RefreshAfter / time.Second),
		Registers:           make([]dto.RegisterStatusResponse, 0, len(s.Registers)),
	}
	for _, rs := range s.Registers {
		row := dto.RegisterStatusResponse{
			RegisterID:   rs.Register.ID.String(),
			Name:         rs.Register.Name,
			Kind:         string(rs.Register.Kind),
			DisplayOrder: rs.Register.DisplayOrder,
		}
		if rs.OpenShift != nil && rs.Balance != nil {
			row.OpenShift = &dto.OpenShiftSummary{
				ID:       rs.OpenShift.ID.String(),
				OpenedBy: rs.OpenShift.OpenedBy.String(),
				OpenedAt: m.ts(rs.OpenShift.OpenedAt),
				Balance:  *rs.Balance,
			}
		}
		resp.Registers = append(resp.Registers, row)
	}
	return resp
}

func (m mapper) transfer(r *service.TransferResult) dto.TransferResponse {
	resp := dto.TransferResponse{
		TransferID:         r.TransferID.String(),
		Kind:               string(r.Kind),
		Amount:             r.Amount,
		Source:             m.movement(r.Source),
		SourceBalance:      r.SourceBalance,
		DestinationBalance: r.DestinationBalance,
		Replayed:           r.Replayed,
	}
	if r.Destination != nil {
		d := m.movement(r.Destination)
		resp.Destination = &d
	}
	return resp
}

func statistics(s *service.CashierStatistics) dto.CashierStatisticsResponse {
	return dto.CashierStatisticsResponse{
		UserID:               s.UserID.String(),
		BranchID:             optString(s.BranchID),
		TotalShifts:          s.TotalShifts,
		PerfectShifts:        s.PerfectShifts,
		PrecisionPct:         s.PrecisionPct,
		DiscrepancyThisMonth: s.DiscrepancyThisMonth,
		DiscrepancyTotal:     s.DiscrepancyTotal,
		MonthFrom:            s.MonthFrom,
		MonthTo:              s.MonthTo,
	}
}

func branchReport(r *service.BranchDiscrepancyReport) dto.BranchDiscrepancyReportResponse {
	resp := dto.BranchDiscrepancyReportResponse{
		BranchID: r.BranchID.String(),
		From:     r.From,
		To:       r.To,
		Rows:     make([]dto.CashierDiscrepancyRow, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		resp.Rows = append(resp.Rows, dto.CashierDiscrepancyRow{
			UserID:           row.UserID.String(),
			TotalShifts:      row.TotalShifts,
			PerfectShifts:    row.PerfectShifts,
			PrecisionPct:     row.PrecisionPct,
			TotalDiscrepancy: row.TotalDiscrepancy,
		})
	}
	return resp
}

func discrepancyRecords(list []model.DiscrepancyRecord) []dto.DiscrepancyRecordResponse {
	out := make([]dto.DiscrepancyRecordResponse, 0, len(list))
	for _, d := range list {
		out = append(out, dto.DiscrepancyRecordResponse{
			ID:             d.ID.String(),
			ShiftID:        d.ShiftID.String(),
			BranchID:       d.BranchID.String(),
			UserID:         d.UserID.String(),
			RegisterID:     optString(d.RegisterID),
			ExpectedAmount: d.ExpectedAmount,
			ActualAmount:   d.ActualAmount,
			Discrepancy:    d.Discrepancy,
			ShiftDate:      d.ShiftDate,
			Notes:          d.Notes,
		})
	}
	return out
}
