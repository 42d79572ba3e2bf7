package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restopos/internal/model"
	"restopos/internal/repository"
	"restopos/internal/service"
	"restopos/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// art is a fixed UTC-3 zone so tests do not depend on the tzdata of the host.
var art = time.FixedZone("ART", -3*60*60)

type env struct {
	db   *gorm.DB
	h    testutil.Hierarchy
	now  time.Time
	opts service.Options

	shifts         service.ShiftService
	movements      service.MovementService
	transfers      service.TransferService
	reconciliation service.ReconciliationService
}

type envOption func(*service.Options)

func withGuard(g service.Guard) envOption { return func(o *service.Options) { o.Guard = g } }

func withNotifier(n service.CloseNotifier) envOption {
	return func(o *service.Options) { o.Notifier = n }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:  db,
		h:   testutil.SeedHierarchy(t, db),
		now: time.Date(2025, 6, 15, 12, 0, 0, 0, art),
	}
	e.opts = service.Options{
		Location:     art,
		Now:          func() time.Time { return e.now },
		RefreshAfter: 30 * time.Second,
	}
	for _, o := range opts {
		o(&e.opts)
	}

	registers := repository.NewRegisterRepository(db)
	shifts := repository.NewShiftRepository(db)
	movements := repository.NewMovementRepository(db)
	discrepancies := repository.NewDiscrepancyRepository(db)

	e.shifts = service.NewShiftService(registers, shifts, movements, discrepancies, e.opts)
	e.movements = service.NewMovementService(shifts, movements, e.opts)
	e.transfers = service.NewTransferService(registers, shifts, movements, e.opts)
	e.reconciliation = service.NewReconciliationService(discrepancies, e.opts)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *env) open(t *testing.T, reg *model.CashRegister, opening string) *model.CashRegisterShift {
	t.Helper()
	s, err := e.shifts.OpenShift(context.Background(), service.OpenShiftInput{
		RegisterID:    reg.ID,
		OpenerID:      uuid.New(),
		OpeningAmount: dec(opening),
	})
	require.NoError(t, err)
	return s
}

func (e *env) record(t *testing.T, shiftID uuid.UUID, kind model.MovementKind, amount string, method model.PaymentMethod) *model.CashMovement {
	t.Helper()
	m, err := e.movements.RecordMovement(context.Background(), service.RecordMovementInput{
		ShiftID:       shiftID,
		Kind:          kind,
		Amount:        dec(amount),
		PaymentMethod: method,
		Concept:       "test",
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)
	return m.CashMovement
}

func (e *env) balance(t *testing.T, shiftID uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := e.movements.ComputeBalance(context.Background(), shiftID)
	require.NoError(t, err)
	return b
}

func (e *env) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

type fakeGuard struct {
	mu   sync.Mutex
	busy bool
	keys []string
}

func (g *fakeGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return nil, errors.New("lock held")
	}
	g.keys = append(g.keys, key)
	return func() {}, nil
}

type fakeNotifier struct{ closed []uuid.UUID }

func (n *fakeNotifier) ShiftClosed(_ context.Context, id uuid.UUID) error {
	n.closed = append(n.closed, id)
	return nil
}
