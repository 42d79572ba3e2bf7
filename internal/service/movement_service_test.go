package service_test

import (
	"context"
	"math/rand"
	"testing"

	"restopos/internal/model"
	"restopos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMovement_Validation(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "100")
	ctx := context.Background()

	base := service.RecordMovementInput{
		ShiftID:       s.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("10"),
		PaymentMethod: model.PaymentCash,
		ActorID:       uuid.New(),
	}

	for _, amount := range []string{"0", "-1", "0.001"} {
		in := base
		in.Amount = dec(amount)
		_, err := e.movements.RecordMovement(ctx, in)
		assert.ErrorIs(t, err, service.ErrInvalidAmount, amount)
	}

	in := base
	in.Kind = "refund"
	_, err := e.movements.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, service.ErrInvalidMovementKind)

	in = base
	in.PaymentMethod = "cheque"
	_, err = e.movements.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, service.ErrInvalidPaymentMethod)

	in = base
	in.ShiftID = uuid.New()
	_, err = e.movements.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, service.ErrShiftNotFound)

	assert.Equal(t, int64(0), e.count(t, &model.CashMovement{}))
}

func TestRecordMovement_RejectedOnClosedShift(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "100")
	ctx := context.Background()

	_, err := e.shifts.CloseShift(ctx, service.CloseShiftInput{ShiftID: s.ID, CloserID: uuid.New(), CountedAmount: dec("100")})
	require.NoError(t, err)

	_, err = e.movements.RecordMovement(ctx, service.RecordMovementInput{
		ShiftID:       s.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("10"),
		PaymentMethod: model.PaymentCash,
		ActorID:       uuid.New(),
	})
	assert.ErrorIs(t, err, service.ErrShiftNotOpen)
	assert.True(t, e.balance(t, s.ID).Equal(dec("100")))
}

func TestRecordMovement_DefaultsConceptAndStampsTime(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "0")

	m, err := e.movements.RecordMovement(context.Background(), service.RecordMovementInput{
		ShiftID:       s.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("12.34"),
		PaymentMethod: model.PaymentQR,
		Concept:       "   ",
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "income", m.Concept)
	assert.True(t, m.CreatedAt.Equal(e.now))
	assert.Nil(t, m.TransferID)
}

func TestRecordMovement_RequestIDIsExactlyOnce(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "0")
	ctx := context.Background()

	key := "tablet-3/42"
	in := service.RecordMovementInput{
		ShiftID:       s.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("80"),
		PaymentMethod: model.PaymentCash,
		ActorID:       uuid.New(),
		RequestID:     &key,
	}
	first, err := e.movements.RecordMovement(ctx, in)
	require.NoError(t, err)
	second, err := e.movements.RecordMovement(ctx, in)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), e.count(t, &model.CashMovement{}))
	assert.True(t, e.balance(t, s.ID).Equal(dec("80")))

	// Same key against another shift is a conflict, not a replay.
	other := e.open(t, e.h.Relief, "0")
	in.ShiftID = other.ID
	_, err = e.movements.RecordMovement(ctx, in)
	assert.ErrorIs(t, err, service.ErrRequestIDConflict)
}

func TestRecordMovement_RequestIDReusedWithOtherContents(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "0")
	ctx := context.Background()

	key := "tablet-1/7"
	original := service.RecordMovementInput{
		ShiftID:       s.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("100"),
		PaymentMethod: model.PaymentCash,
		ActorID:       uuid.New(),
		RequestID:     &key,
	}
	_, err := e.movements.RecordMovement(ctx, original)
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(in *service.RecordMovementInput)
	}{
		{"other kind and amount", func(in *service.RecordMovementInput) {
			in.Kind = model.MovementExpense
			in.Amount = dec("900")
		}},
		{"other amount", func(in *service.RecordMovementInput) { in.Amount = dec("100.01") }},
		{"other kind", func(in *service.RecordMovementInput) { in.Kind = model.MovementDeposit }},
		{"other payment method", func(in *service.RecordMovementInput) { in.PaymentMethod = model.PaymentCard }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := original
			tc.mutate(&in)
			_, err := e.movements.RecordMovement(ctx, in)
			assert.ErrorIs(t, err, service.ErrRequestIDConflict)
		})
	}

	assert.Equal(t, int64(1), e.count(t, &model.CashMovement{}))
	assert.True(t, e.balance(t, s.ID).Equal(dec("100")))

	// A different concept or actor is still the same request.
	again := original
	again.Concept = "reintento"
	again.ActorID = uuid.New()
	res, err := e.movements.RecordMovement(ctx, again)
	require.NoError(t, err)
	assert.True(t, res.Replayed)
}

func TestComputeBalance_OrderIndependent(t *testing.T) {
	type entry struct {
		kind   model.MovementKind
		amount string
		method model.PaymentMethod
	}
	entries := []entry{
		{model.MovementIncome, "500", model.PaymentCash},
		{model.MovementExpense, "200", model.PaymentCash},
		{model.MovementDeposit, "100", model.PaymentCard},
		{model.MovementDeposit, "75.25", model.PaymentCash},
		{model.MovementWithdrawal, "40.10", model.PaymentCash},
		{model.MovementIncome, "999", model.PaymentQR},
	}
	want := dec("1335.15") // 1000 + 500 - 200 + 75.25 - 40.10

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 3; round++ {
		e := newEnv(t)
		s := e.open(t, e.h.Sales, "1000")
		perm := rng.Perm(len(entries))
		for _, i := range perm {
			e.record(t, s.ID, entries[i].kind, entries[i].amount, entries[i].method)
		}
		assert.True(t, e.balance(t, s.ID).Equal(want), "order %v", perm)
	}
}

func TestListMovements(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.h.Sales, "0")
	e.record(t, s.ID, model.MovementIncome, "1", model.PaymentCash)
	e.record(t, s.ID, model.MovementIncome, "2", model.PaymentCard)

	movs, err := e.movements.ListMovements(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, movs, 2)

	_, err = e.movements.ListMovements(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrShiftNotFound)
}
