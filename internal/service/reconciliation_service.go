package service

import (
	"context"
	"sort"

	"restopos/internal/model"
	"restopos/internal/opday"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classification describes the size of a discrepancy relative to the expected
// cash. It is informational only.
type Classification string

const (
	ClassNormal   Classification = "normal"   // ≤ 1 %
	ClassWarning  Classification = "warning"  // ≤ 5 %
	ClassCritical Classification = "critical" // > 5 %
)

var (
	hundred          = decimal.NewFromInt(100)
	normalThreshold  = decimal.NewFromInt(1)
	warningThreshold = decimal.NewFromInt(5)
)

// Classify returns |discrepancy| as a percentage of expected and its band.
// With nothing expected, any difference is critical.
func Classify(expected, discrepancy decimal.Decimal) (decimal.Decimal, Classification) {
	if expected.IsZero() {
		if discrepancy.IsZero() {
			return decimal.Zero, ClassNormal
		}
		return hundred, ClassCritical
	}
	pct := discrepancy.Abs().Div(expected.Abs()).Mul(hundred).Round(2)
	switch {
	case pct.LessThanOrEqual(normalThreshold):
		return pct, ClassNormal
	case pct.LessThanOrEqual(warningThreshold):
		return pct, ClassWarning
	default:
		return pct, ClassCritical
	}
}

type CashierStatistics struct {
	UserID               uuid.UUID
	BranchID             *uuid.UUID
	TotalShifts          int
	PerfectShifts        int
	PrecisionPct         int64
	DiscrepancyThisMonth decimal.Decimal
	DiscrepancyTotal     decimal.Decimal
	// MonthFrom and MonthTo are the operational-day keys bounding "this month".
	MonthFrom string
	MonthTo   string
}

type CashierDiscrepancy struct {
	UserID           uuid.UUID
	TotalShifts      int
	PerfectShifts    int
	PrecisionPct     int64
	TotalDiscrepancy decimal.Decimal
}

type BranchDiscrepancyReport struct {
	BranchID uuid.UUID
	From     string
	To       string
	// Rows are sorted worst first: ascending total discrepancy, then user id.
	Rows []CashierDiscrepancy
}

type ReconciliationService interface {
	CashierStatistics(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) (*CashierStatistics, error)
	BranchDiscrepancyReport(ctx context.Context, branchID uuid.UUID, r DateRange) (*BranchDiscrepancyReport, error)
	ListDiscrepancies(ctx context.Context, branchID uuid.UUID, r DateRange) ([]model.DiscrepancyRecord, error)
}

type reconciliationService struct {
	discrepancies repository.DiscrepancyRepository
	opts          Options
}

func NewReconciliationService(discrepancies repository.DiscrepancyRepository, opts Options) ReconciliationService {
	return &reconciliationService{discrepancies: discrepancies, opts: opts.withDefaults()}
}

// precisionPct is round(perfect/total*100), defined as 100 with no shifts.
func precisionPct(perfect, total int) int64 {
	if total == 0 {
		return 100
	}
	return decimal.NewFromInt(int64(perfect) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart()
}

func (s *reconciliationService) CashierStatistics(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) (*CashierStatistics, error) {
	recs, err := s.discrepancies.ListByUser(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}

	monthFrom, monthTo := opday.MonthRange(s.opts.localNow())
	stats := &CashierStatistics{
		UserID:               userID,
		BranchID:             branchID,
		TotalShifts:          len(recs),
		DiscrepancyThisMonth: decimal.Zero,
		DiscrepancyTotal:     decimal.Zero,
		MonthFrom:            monthFrom,
		MonthTo:              monthTo,
	}
	for _, r := range recs {
		if r.IsPerfect() {
			stats.PerfectShifts++
		}
		stats.DiscrepancyTotal = stats.DiscrepancyTotal.Add(r.Discrepancy)
		if r.ShiftDate >= monthFrom && r.ShiftDate <= monthTo {
			stats.DiscrepancyThisMonth = stats.DiscrepancyThisMonth.Add(r.Discrepancy)
		}
	}
	stats.PrecisionPct = precisionPct(stats.PerfectShifts, stats.TotalShifts)
	return stats, nil
}

func (s *reconciliationService) BranchDiscrepancyReport(ctx context.Context, branchID uuid.UUID, r DateRange) (*BranchDiscrepancyReport, error) {
	from, to, err := r.keys(s.opts.localNow())
	if err != nil {
		return nil, err
	}
	recs, err := s.discrepancies.ListByBranch(ctx, branchID, from, to)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*CashierDiscrepancy)
	for _, rec := range recs {
		row, ok := byUser[rec.UserID]
		if !ok {
			row = &CashierDiscrepancy{UserID: rec.UserID, TotalDiscrepancy: decimal.Zero}
			byUser[rec.UserID] = row
		}
		row.TotalShifts++
		if rec.IsPerfect() {
			row.PerfectShifts++
		}
		row.TotalDiscrepancy = row.TotalDiscrepancy.Add(rec.Discrepancy)
	}

	rows := make([]CashierDiscrepancy, 0, len(byUser))
	for _, row := range byUser {
		row.PrecisionPct = precisionPct(row.PerfectShifts, row.TotalShifts)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalDiscrepancy.Cmp(rows[j].TotalDiscrepancy); c != 0 {
			return c < 0
		}
		return rows[i].UserID.String() < rows[j].UserID.String()
	})

	return &BranchDiscrepancyReport{BranchID: branchID, From: from, To: to, Rows: rows}, nil
}

func (s *reconciliationService) ListDiscrepancies(ctx context.Context, branchID uuid.UUID, r DateRange) ([]model.DiscrepancyRecord, error) {
	from, to, err := r.keys(s.opts.localNow())
	if err != nil {
		return nil, err
	}
	return s.discrepancies.ListByBranch(ctx, branchID, from, to)
}
