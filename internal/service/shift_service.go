package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"restopos/internal/ledger"
	"restopos/internal/model"
	"restopos/internal/opday"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OpenShiftInput struct {
	RegisterID    uuid.UUID
	OpenerID      uuid.UUID
	OpeningAmount decimal.Decimal
	// BranchID, when set, restricts the register to that branch.
	BranchID *uuid.UUID
}

type CloseShiftInput struct {
	ShiftID       uuid.UUID
	CloserID      uuid.UUID
	CountedAmount decimal.Decimal
	Notes         *string
}

// CloseResult is the outcome of a reconciliation. A non-zero Discrepancy is data, not an error.
type CloseResult struct {
	Shift          *model.CashRegisterShift
	Record         *model.DiscrepancyRecord
	Expected       decimal.Decimal
	Counted        decimal.Decimal
	Discrepancy    decimal.Decimal
	Percentage     decimal.Decimal
	Classification Classification
}

// ShiftReport is the read model used by the detail view and the printed summary.
type ShiftReport struct {
	Shift          *model.CashRegisterShift
	OperationalDay string
	Movements      []model.CashMovement
	Balance        decimal.Decimal
	ByMethod       ledger.Totals
	// Close is nil while the shift is open.
	Close *CloseResult
}

type RegisterStatus struct {
	Register  model.CashRegister
	OpenShift *model.CashRegisterShift
	Balance   *decimal.Decimal
}

type BranchStatus struct {
	BranchID       uuid.UUID
	OperationalDay string
	Registers      []RegisterStatus
	RefreshAfter   time.Duration
}

type ShiftService interface {
	OpenShift(ctx context.Context, in OpenShiftInput) (*model.CashRegisterShift, error)
	CloseShift(ctx context.Context, in CloseShiftInput) (*CloseResult, error)
	GetOpenShift(ctx context.Context, registerID uuid.UUID) (*model.CashRegisterShift, error)
	ListShifts(ctx context.Context, registerID uuid.UUID, r DateRange) ([]model.CashRegisterShift, error)
	GetShiftReport(ctx context.Context, shiftID uuid.UUID) (*ShiftReport, error)
	BranchCashStatus(ctx context.Context, branchID uuid.UUID) (*BranchStatus, error)
}

type shiftService struct {
	registers     repository.RegisterRepository
	shifts        repository.ShiftRepository
	movements     repository.MovementRepository
	discrepancies repository.DiscrepancyRepository
	opts          Options
}

func NewShiftService(
	registers repository.RegisterRepository,
	shifts repository.ShiftRepository,
	movements repository.MovementRepository,
	discrepancies repository.DiscrepancyRepository,
	opts Options,
) ShiftService {
	return &shiftService{
		registers:     registers,
		shifts:        shifts,
		movements:     movements,
		discrepancies: discrepancies,
		opts:          opts.withDefaults(),
	}
}

func registerLockKey(id uuid.UUID) string { return "lock:register:" + id.String() }

// ── OpenShift ─────────────────────────────────────────────────────────────────
// The pre-check is a UX shortcut; the partial unique index decides races.

func (s *shiftService) OpenShift(ctx context.Context, in OpenShiftInput) (*model.CashRegisterShift, error) {
	if !validOpening(in.OpeningAmount) {
		return nil, ErrInvalidOpeningAmount
	}

	release, err := s.opts.acquire(ctx, registerLockKey(in.RegisterID))
	if err != nil {
		return nil, err
	}
	defer release()

	reg, err := s.registers.FindByID(ctx, in.RegisterID)
	if err != nil {
		return nil, registerLookupErr(err)
	}
	if in.BranchID != nil && reg.BranchID != *in.BranchID {
		return nil, ErrForeignBranch
	}
	if !reg.Active {
		return nil, ErrRegisterInactive
	}
	if existing, err := s.shifts.FindOpenByRegister(ctx, reg.ID); err == nil && existing != nil {
		return nil, ErrRegisterAlreadyOpen
	}

	shift := &model.CashRegisterShift{
		RegisterID:    reg.ID,
		BranchID:      reg.BranchID,
		OpenedBy:      in.OpenerID,
		OpenedAt:      s.opts.Now().UTC(),
		Status:        model.ShiftOpen,
		OpeningAmount: in.OpeningAmount,
	}
	if err := s.shifts.CreateShift(ctx, shift); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRegisterAlreadyOpen
		}
		return nil, err
	}
	shift.Register = reg

	log.Info().
		Str("shift_id", shift.ID.String()).
		Str("register_id", reg.ID.String()).
		Str("opened_by", in.OpenerID.String()).
		Str("opening_amount", shift.OpeningAmount.StringFixed(2)).
		Msg("shift opened")
	return shift, nil
}

// ── CloseShift ────────────────────────────────────────────────────────────────
// Lock, sum, stamp and record in one transaction. A second close finds no open
// row to lock and fails with ErrShiftNotOpen; the first discrepancy is kept.

func (s *shiftService) CloseShift(ctx context.Context, in CloseShiftInput) (*CloseResult, error) {
	if !validOpening(in.CountedAmount) {
		return nil, ErrInvalidCountedAmount
	}

	shift, err := s.shifts.FindByID(ctx, in.ShiftID)
	if err != nil {
		return nil, shiftLookupErr(err)
	}
	if !shift.IsOpen() {
		return nil, ErrShiftNotOpen
	}

	release, err := s.opts.acquire(ctx, registerLockKey(shift.RegisterID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result *CloseResult
	err = runTx(ctx, s.shifts.DB(), func(tx *gorm.DB) error {
		if err := lockOpenShift(tx, s.shifts, shift.ID, ErrShiftNotOpen); err != nil {
			return err
		}
		movs, err := s.movements.ListByShiftTx(tx, shift.ID)
		if err != nil {
			return err
		}

		expected := ledger.Balance(shift.OpeningAmount, movs)
		counted := in.CountedAmount
		diff := counted.Sub(expected)
		closedAt := s.opts.Now().UTC()
		notes := trimNotes(in.Notes)

		shift.ClosedBy = &in.CloserID
		shift.ClosedAt = &closedAt
		shift.CountedAmount = &counted
		shift.Discrepancy = &diff
		shift.Notes = notes
		if err := s.shifts.MarkClosedTx(tx, shift); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShiftNotOpen
			}
			return err
		}

		registerID := shift.RegisterID
		rec := &model.DiscrepancyRecord{
			ShiftID:        shift.ID,
			BranchID:       shift.BranchID,
			UserID:         shift.OpenedBy,
			RegisterID:     &registerID,
			ExpectedAmount: expected,
			ActualAmount:   counted,
			Discrepancy:    diff,
			ShiftDate:      opday.Key(closedAt.In(s.opts.Location)),
			Notes:          notes,
		}
		if err := s.discrepancies.CreateTx(tx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrShiftNotOpen
			}
			return err
		}

		pct, class := Classify(expected, diff)
		result = &CloseResult{
			Shift:          shift,
			Record:         rec,
			Expected:       expected,
			Counted:        counted,
			Discrepancy:    diff,
			Percentage:     pct,
			Classification: class,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("shift_id", shift.ID.String()).
		Str("closed_by", in.CloserID.String()).
		Str("expected", result.Expected.StringFixed(2)).
		Str("counted", result.Counted.StringFixed(2)).
		Str("discrepancy", result.Discrepancy.StringFixed(2)).
		Str("classification", string(result.Classification)).
		Str("shift_date", result.Record.ShiftDate).
		Msg("shift closed")

	if s.opts.Notifier != nil {
		// Best effort: the close is committed regardless of the summary job.
		if err := s.opts.Notifier.ShiftClosed(ctx, shift.ID); err != nil {
			log.Warn().Err(err).Str("shift_id", shift.ID.String()).Msg("could not enqueue close summary")
		}
	}
	return result, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *shiftService) GetOpenShift(ctx context.Context, registerID uuid.UUID) (*model.CashRegisterShift, error) {
	reg, err := s.registers.FindByID(ctx, registerID)
	if err != nil {
		return nil, registerLookupErr(err)
	}
	shift, err := s.shifts.FindOpenByRegister(ctx, registerID)
	if err != nil {
		return nil, shiftLookupErr(err)
	}
	shift.Register = reg
	return shift, nil
}

func (s *shiftService) ListShifts(ctx context.Context, registerID uuid.UUID, r DateRange) ([]model.CashRegisterShift, error) {
	if _, err := s.registers.FindByID(ctx, registerID); err != nil {
		return nil, registerLookupErr(err)
	}
	start, end, err := r.window(s.opts.localNow())
	if err != nil {
		return nil, err
	}
	return s.shifts.ListByRegister(ctx, registerID, start, end)
}

func (s *shiftService) GetShiftReport(ctx context.Context, shiftID uuid.UUID) (*ShiftReport, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, shiftLookupErr(err)
	}
	movs, err := s.movements.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	report := &ShiftReport{
		Shift:          shift,
		OperationalDay: opday.Key(shift.OpenedAt.In(s.opts.Location)),
		Movements:      movs,
		Balance:        ledger.Balance(shift.OpeningAmount, movs),
		ByMethod:       ledger.NetByMethod(movs),
	}
	if shift.IsOpen() {
		return report, nil
	}

	rec, err := s.discrepancies.FindByShift(ctx, shiftID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if rec != nil {
		pct, class := Classify(rec.ExpectedAmount, rec.Discrepancy)
		report.Close = &CloseResult{
			Shift:          shift,
			Record:         rec,
			Expected:       rec.ExpectedAmount,
			Counted:        rec.ActualAmount,
			Discrepancy:    rec.Discrepancy,
			Percentage:     pct,
			Classification: class,
		}
	}
	return report, nil
}

// BranchCashStatus backs the polling dashboard: every active register with its
// open shift (if any) and current cash balance.
func (s *shiftService) BranchCashStatus(ctx context.Context, branchID uuid.UUID) (*BranchStatus, error) {
	regs, err := s.registers.ListByBranch(ctx, branchID, true)
	if err != nil {
		return nil, err
	}
	open, err := s.shifts.ListOpenByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	byRegister := make(map[uuid.UUID]*model.CashRegisterShift, len(open))
	for i := range open {
		byRegister[open[i].RegisterID] = &open[i]
	}

	status := &BranchStatus{
		BranchID:       branchID,
		OperationalDay: opday.Key(s.opts.localNow()),
		Registers:      make([]RegisterStatus, 0, len(regs)),
		RefreshAfter:   s.opts.RefreshAfter,
	}
	for _, reg := range regs {
		rs := RegisterStatus{Register: reg}
		if shift, ok := byRegister[reg.ID]; ok {
			movs, err := s.movements.ListByShift(ctx, shift.ID)
			if err != nil {
				return nil, err
			}
			bal := ledger.Balance(shift.OpeningAmount, movs)
			rs.OpenShift = shift
			rs.Balance = &bal
		}
		status.Registers = append(status.Registers, rs)
	}
	return status, nil
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}
