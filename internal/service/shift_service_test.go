package service_test

import (
	"context"
	"testing"
	"time"

	"restopos/internal/model"
	"restopos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenShift_Success(t *testing.T) {
	e := newEnv(t)
	opener := uuid.New()

	s, err := e.shifts.OpenShift(context.Background(), service.OpenShiftInput{
		RegisterID:    e.h.Sales.ID,
		OpenerID:      opener,
		OpeningAmount: dec("1000.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftOpen, s.Status)
	assert.Equal(t, e.h.BranchID, s.BranchID)
	assert.Equal(t, opener, s.OpenedBy)
	assert.True(t, s.OpeningAmount.Equal(dec("1000.50")))
	assert.True(t, s.OpenedAt.Equal(e.now))
	assert.True(t, e.balance(t, s.ID).Equal(dec("1000.50")))
}

func TestOpenShift_AlreadyOpenCreatesNoRow(t *testing.T) {
	e := newEnv(t)
	e.open(t, e.h.Sales, "100")

	_, err := e.shifts.OpenShift(context.Background(), service.OpenShiftInput{
		RegisterID: e.h.Sales.ID,
		OpenerID:   uuid.New(),
	})
	assert.ErrorIs(t, err, service.ErrRegisterAlreadyOpen)
	assert.Equal(t, int64(1), e.count(t, &model.CashRegisterShift{}))
}

func TestOpenShift_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.shifts.OpenShift(ctx, service.OpenShiftInput{RegisterID: e.h.Sales.ID, OpeningAmount: dec("-1")})
	assert.ErrorIs(t, err, service.ErrInvalidOpeningAmount)

	_, err = e.shifts.OpenShift(ctx, service.OpenShiftInput{RegisterID: e.h.Sales.ID, OpeningAmount: dec("10.005")})
	assert.ErrorIs(t, err, service.ErrInvalidOpeningAmount)

	_, err = e.shifts.OpenShift(ctx, service.OpenShiftInput{RegisterID: uuid.New()})
	assert.ErrorIs(t, err, service.ErrRegisterNotFound)

	otherBranch := uuid.New()
	_, err = e.shifts.OpenShift(ctx, service.OpenShiftInput{RegisterID: e.h.Sales.ID, BranchID: &otherBranch})
	assert.ErrorIs(t, err, service.ErrForeignBranch)

	require.NoError(t, e.db.Model(e.h.Relief).Update("active", false).Error)
	_, err = e.shifts.OpenShift(ctx, service.OpenShiftInput{RegisterID: e.h.Relief.ID})
	assert.ErrorIs(t, err, service.ErrRegisterInactive)

	assert.Equal(t, int64(0), e.count(t, &model.CashRegisterShift{}))
}

func TestOpenShift_DefaultsToZero(t *testing.T) {
	e := newEnv(t)
	s, err := e.shifts.OpenShift(context.Background(), service.OpenShiftInput{RegisterID: e.h.Sales.ID, OpenerID: uuid.New(), BranchID: &e.h.BranchID})
	require.NoError(t, err)
	assert.True(t, s.OpeningAmount.IsZero())
}

func TestCloseShift_ReconciliationScenario(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "1000")
	e.record(t, s.ID, model.MovementIncome, "500", model.PaymentCash)
	e.record(t, s.ID, model.MovementExpense, "200", model.PaymentCash)
	e.record(t, s.ID, model.MovementDeposit, "100", model.PaymentCard)
	assert.True(t, e.balance(t, s.ID).Equal(dec("1300")))

	closer := uuid.New()
	notes := "  faltante menor  "
	res, err := e.shifts.CloseShift(context.Background(), service.CloseShiftInput{
		ShiftID:       s.ID,
		CloserID:      closer,
		CountedAmount: dec("1290"),
		Notes:         &notes,
	})
	require.NoError(t, err)
	assert.True(t, res.Expected.Equal(dec("1300")))
	assert.True(t, res.Counted.Equal(dec("1290")))
	assert.True(t, res.Discrepancy.Equal(dec("-10")))
	assert.Equal(t, service.ClassNormal, res.Classification)
	assert.Equal(t, model.ShiftClosed, res.Shift.Status)

	var recs []model.DiscrepancyRecord
	require.NoError(t, e.db.Find(&recs).Error)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, s.ID, rec.ShiftID)
	assert.Equal(t, s.OpenedBy, rec.UserID)
	assert.Equal(t, e.h.BranchID, rec.BranchID)
	require.NotNil(t, rec.RegisterID)
	assert.Equal(t, e.h.Sales.ID, *rec.RegisterID)
	assert.True(t, rec.ExpectedAmount.Equal(dec("1300")))
	assert.True(t, rec.ActualAmount.Equal(dec("1290")))
	assert.True(t, rec.Discrepancy.Equal(dec("-10")))
	assert.Equal(t, "2025-06-15", rec.ShiftDate)
	require.NotNil(t, rec.Notes)
	assert.Equal(t, "faltante menor", *rec.Notes)

	report, err := e.shifts.GetShiftReport(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, report.Close)
	assert.True(t, report.Close.Discrepancy.Equal(dec("-10")))
	require.NotNil(t, report.Shift.ClosedBy)
	assert.Equal(t, closer, *report.Shift.ClosedBy)
	assert.True(t, report.ByMethod[model.PaymentCard].Equal(dec("100")))
}

func TestCloseShift_TwiceFailsAndKeepsFirstDiscrepancy(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "500")
	ctx := context.Background()

	_, err := e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("500")})
	require.NoError(t, err)

	_, err = e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("999")})
	assert.ErrorIs(t, err, service.ErrShiftNotOpen)

	var shift model.CashRegisterShift
	require.NoError(t, e.db.First(&shift, "id = ?", s.ID).Error)
	require.NotNil(t, shift.Discrepancy)
	assert.True(t, shift.Discrepancy.IsZero())
	assert.Equal(t, int64(1), e.count(t, &model.DiscrepancyRecord{}))
}

func TestCloseShift_ShiftDateIsOperationalDay(t *testing.T) {
	e := newEnv(t)
	e.now = time.Date(2025, 6, 14, 22, 0, 0, 0, art)
	s := e.open(t, e.h.Sales, "0")

	e.now = time.Date(2025, 6, 15, 1, 30, 0, 0, art)
	res, err := e.shifts.CloseShift(context.Background(), service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("0")})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-14", res.Record.ShiftDate)
}

func TestCloseShift_Validation(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "0")
	ctx := context.Background()

	_, err := e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: s.ID, CountedAmount: dec("-5")})
	assert.ErrorIs(t, err, service.ErrInvalidCountedAmount)

	_, err = e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: uuid.New(), CountedAmount: dec("0")})
	assert.ErrorIs(t, err, service.ErrShiftNotFound)
}

func TestCloseShift_ClassificationBands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		counted string
		want    service.Classification
	}{
		{"1000", service.ClassNormal},
		{"1040", service.ClassWarning},
		{"900", service.ClassCritical},
	}
	for _, tc := range cases {
		s := e.open(t, e.h.Sales, "1000")
		res, err := e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec(tc.counted)})
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Classification, "counted %s", tc.counted)
	}
}

func TestCloseShift_NotifiesAfterCommit(t *testing.T) {
	n := &fakeNotifier{}
	e := newEnv(t, withNotifier(n))
	s := e.open(t, e.h.Sales, "0")

	_, err := e.shifts.CloseShift(context.Background(), service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("0")})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.ID}, n.closed)
}

func TestGuard_ContentionIsRejected(t *testing.T) {
	g := &fakeGuard{}
	e := newEnv(t, withGuard(g))
	s := e.open(t, e.h.Sales, "0")
	assert.Contains(t, g.keys, "lock:register:"+e.h.Sales.ID.String())

	g.busy = true
	_, err := e.shifts.CloseShift(context.Background(), service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("0")})
	assert.ErrorIs(t, err, service.ErrOperationInProgress)

	open, err := e.shifts.GetOpenShift(context.Background(), e.h.Sales.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, open.ID)
}

func TestGetOpenShift(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.shifts.GetOpenShift(ctx, e.h.Sales.ID)
	assert.ErrorIs(t, err, service.ErrShiftNotFound)

	_, err = e.shifts.GetOpenShift(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrRegisterNotFound)

	s := e.open(t, e.h.Sales, "10")
	got, err := e.shifts.GetOpenShift(ctx, e.h.Sales.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	require.NotNil(t, got.Register)
	assert.Equal(t, "Caja 1", got.Register.Name)
}

func TestListShifts_UsesOperationalDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Opened at 01:30 on the 15th: belongs to the 14th.
	e.now = time.Date(2025, 6, 15, 1, 30, 0, 0, art)
	s := e.open(t, e.h.Sales, "0")

	got, err := e.shifts.ListShifts(ctx, e.h.Sales.ID, service.DateRange{From: "2025-06-14", To: "2025-06-14"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID)

	got, err = e.shifts.ListShifts(ctx, e.h.Sales.ID, service.DateRange{From: "2025-06-15", To: "2025-06-15"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.shifts.ListShifts(ctx, e.h.Sales.ID, service.DateRange{From: "2025-06-16", To: "2025-06-15"})
	assert.ErrorIs(t, err, service.ErrInvalidDateRange)

	_, err = e.shifts.ListShifts(ctx, e.h.Sales.ID, service.DateRange{From: "junio"})
	assert.ErrorIs(t, err, service.ErrInvalidDateRange)
}

func TestBranchCashStatus(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "100")
	e.record(t, s.ID, model.MovementIncome, "50", model.PaymentCash)

	st, err := e.shifts.BranchCashStatus(context.Background(), e.h.BranchID)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, st.RefreshAfter)
	assert.Equal(t, "2025-06-15", st.OperationalDay)
	require.Len(t, st.Registers, 3)

	var withShift int
	for _, r := range st.Registers {
		if r.OpenShift == nil {
			assert.Nil(t, r.Balance)
			continue
		}
		withShift++
		assert.Equal(t, e.h.Sales.ID, r.Register.ID)
		require.NotNil(t, r.Balance)
		assert.True(t, r.Balance.Equal(dec("150")))
	}
	assert.Equal(t, 1, withShift)
}
