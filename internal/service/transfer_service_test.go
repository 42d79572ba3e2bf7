package service_test

import (
	"context"
	"errors"
	"testing"

	"restopos/internal/model"
	"restopos/internal/service"
	"restopos/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func transferIn(src *model.CashRegister, dst *model.CashRegister, amount string) service.TransferInput {
	in := service.TransferInput{
		SourceRegisterID: src.ID,
		Amount:           dec(amount),
		ActorID:          uuid.New(),
	}
	if dst != nil {
		in.DestinationRegisterID = &dst.ID
	}
	return in
}

func TestTransfer_SalesToReliefMovesExactAmount(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "1000")
	relief := e.open(t, e.h.Relief, "0")

	in := transferIn(e.h.Sales, e.h.Relief, "400")
	in.Concept = "cambio de turno"
	res, err := e.transfers.Transfer(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, service.TransferToRelief, res.Kind)
	assert.True(t, res.SourceBalance.Equal(dec("600")))
	require.NotNil(t, res.DestinationBalance)
	assert.True(t, res.DestinationBalance.Equal(dec("400")))
	assert.True(t, e.balance(t, sales.ID).Equal(dec("600")))
	assert.True(t, e.balance(t, relief.ID).Equal(dec("400")))

	require.NotNil(t, res.Source)
	require.NotNil(t, res.Destination)
	assert.Equal(t, model.MovementWithdrawal, res.Source.Kind)
	assert.Equal(t, model.MovementDeposit, res.Destination.Kind)
	assert.Equal(t, *res.Source.TransferID, *res.Destination.TransferID)
	assert.Equal(t, model.LegSource, *res.Source.TransferLeg)
	assert.Equal(t, model.LegDestination, *res.Destination.TransferLeg)
	assert.Equal(t, "alivio: cambio de turno", res.Source.Concept)
	assert.Equal(t, res.Source.Concept, res.Destination.Concept)
}

func TestTransfer_ReliefToVault(t *testing.T) {
	e := newEnv(t)
	e.open(t, e.h.Relief, "300")
	e.open(t, e.h.Vault, "0")

	res, err := e.transfers.Transfer(context.Background(), transferIn(e.h.Relief, e.h.Vault, "300"))
	require.NoError(t, err)
	assert.Equal(t, service.TransferToVault, res.Kind)
	assert.True(t, res.SourceBalance.IsZero())
	assert.Equal(t, "fuerte", res.Source.Concept)
}

func TestTransfer_FinalWithdrawalIsSingleLeg(t *testing.T) {
	e := newEnv(t)
	vault := e.open(t, e.h.Vault, "5000")

	res, err := e.transfers.Transfer(context.Background(), transferIn(e.h.Vault, nil, "4500"))
	require.NoError(t, err)
	assert.Equal(t, service.TransferFinal, res.Kind)
	assert.Nil(t, res.Destination)
	assert.Nil(t, res.DestinationBalance)
	assert.Equal(t, model.LegFinal, *res.Source.TransferLeg)
	assert.Equal(t, "retiro final", res.Source.Concept)
	assert.True(t, e.balance(t, vault.ID).Equal(dec("500")))
	assert.Equal(t, int64(1), e.count(t, &model.CashMovement{}))
}

func TestTransfer_InvalidRoutes(t *testing.T) {
	e := newEnv(t)
	other := testutil.SeedRegister(t, e.db, uuid.New(), "Alivio otra sucursal", model.RegisterRelief)

	cases := []struct {
		name     string
		src, dst *model.CashRegister
	}{
		{"sales to vault skips a tier", e.h.Sales, e.h.Vault},
		{"relief back to sales", e.h.Relief, e.h.Sales},
		{"vault with destination", e.h.Vault, e.h.Relief},
		{"sales without destination", e.h.Sales, nil},
		{"relief without destination", e.h.Relief, nil},
		{"same register", e.h.Relief, e.h.Relief},
		{"cross branch", e.h.Sales, other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.transfers.Transfer(context.Background(), transferIn(tc.src, tc.dst, "1"))
			assert.ErrorIs(t, err, service.ErrInvalidTransferRoute)
		})
	}
}

func TestTransfer_InsufficientFundsWritesNothing(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "100")
	e.record(t, sales.ID, model.MovementIncome, "50", model.PaymentCash)
	e.record(t, sales.ID, model.MovementIncome, "500", model.PaymentCard) // not in the till
	relief := e.open(t, e.h.Relief, "0")

	_, err := e.transfers.Transfer(context.Background(), transferIn(e.h.Sales, e.h.Relief, "150.01"))
	require.ErrorIs(t, err, service.ErrInsufficientFunds)

	var insufficient *service.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Available.Equal(dec("150")))

	assert.True(t, e.balance(t, sales.ID).Equal(dec("150")))
	assert.True(t, e.balance(t, relief.ID).IsZero())
	assert.Equal(t, int64(2), e.count(t, &model.CashMovement{}))
}

func TestTransfer_ShiftsMustBeOpen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.transfers.Transfer(ctx, transferIn(e.h.Sales, e.h.Relief, "10"))
	assert.ErrorIs(t, err, service.ErrShiftNotOpen)

	sales := e.open(t, e.h.Sales, "100")
	_, err = e.transfers.Transfer(ctx, transferIn(e.h.Sales, e.h.Relief, "10"))
	assert.ErrorIs(t, err, service.ErrDestinationShiftNotOpen)

	assert.True(t, e.balance(t, sales.ID).Equal(dec("100")))
	assert.Equal(t, int64(0), e.count(t, &model.CashMovement{}))
}

func TestTransfer_InactiveRegister(t *testing.T) {
	e := newEnv(t)
	e.open(t, e.h.Sales, "100")
	require.NoError(t, e.db.Model(e.h.Relief).Update("active", false).Error)

	_, err := e.transfers.Transfer(context.Background(), transferIn(e.h.Sales, e.h.Relief, "10"))
	assert.ErrorIs(t, err, service.ErrRegisterInactive)
}

func TestTransfer_DepositFailureRollsBackWithdrawal(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "1000")
	relief := e.open(t, e.h.Relief, "0")

	require.NoError(t, e.db.Callback().Create().Before("gorm:create").Register("test:fail_deposit", func(tx *gorm.DB) {
		if m, ok := tx.Statement.Dest.(*model.CashMovement); ok && m.Kind == model.MovementDeposit {
			_ = tx.AddError(errors.New("storage fault"))
		}
	}))

	_, err := e.transfers.Transfer(context.Background(), transferIn(e.h.Sales, e.h.Relief, "250"))
	require.Error(t, err)

	assert.True(t, e.balance(t, sales.ID).Equal(dec("1000")))
	assert.True(t, e.balance(t, relief.ID).IsZero())
	assert.Equal(t, int64(0), e.count(t, &model.CashMovement{}))
}

func TestTransfer_RequestIDReplaysWithoutWriting(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "1000")
	e.open(t, e.h.Relief, "0")
	ctx := context.Background()

	key := "alivio-2025-06-15-1"
	in := transferIn(e.h.Sales, e.h.Relief, "200")
	in.RequestID = &key

	first, err := e.transfers.Transfer(ctx, in)
	require.NoError(t, err)
	second, err := e.transfers.Transfer(ctx, in)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransferID, second.TransferID)
	assert.Equal(t, service.TransferToRelief, second.Kind)
	require.NotNil(t, second.Destination)
	assert.Equal(t, first.Destination.ID, second.Destination.ID)
	assert.Equal(t, int64(2), e.count(t, &model.CashMovement{}))
	assert.True(t, e.balance(t, sales.ID).Equal(dec("800")))
}

func TestTransfer_RequestIDReusedWithOtherContents(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "1000")
	relief := e.open(t, e.h.Relief, "0")
	e.open(t, e.h.Vault, "5000")
	sales2 := testutil.SeedRegister(t, e.db, e.h.BranchID, "Caja 2", model.RegisterSales)
	e.open(t, sales2, "1000")
	ctx := context.Background()

	key := "k-1"
	in := transferIn(e.h.Sales, e.h.Relief, "200")
	in.RequestID = &key
	_, err := e.transfers.Transfer(ctx, in)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   service.TransferInput
	}{
		{"other amount", transferIn(e.h.Sales, e.h.Relief, "700")},
		{"other source", transferIn(sales2, e.h.Relief, "200")},
		{"other hop", transferIn(e.h.Vault, nil, "200")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.RequestID = &key
			_, err := e.transfers.Transfer(ctx, tc.in)
			assert.ErrorIs(t, err, service.ErrRequestIDConflict)
		})
	}

	// A key first spent on a plain movement cannot replay as a transfer.
	mkey := "m-1"
	_, err = e.movements.RecordMovement(ctx, service.RecordMovementInput{
		ShiftID:       sales.ID,
		Kind:          model.MovementIncome,
		Amount:        dec("50"),
		PaymentMethod: model.PaymentCash,
		ActorID:       uuid.New(),
		RequestID:     &mkey,
	})
	require.NoError(t, err)
	reused := transferIn(e.h.Sales, e.h.Relief, "50")
	reused.RequestID = &mkey
	_, err = e.transfers.Transfer(ctx, reused)
	assert.ErrorIs(t, err, service.ErrRequestIDConflict)

	assert.Equal(t, int64(3), e.count(t, &model.CashMovement{}))
	assert.True(t, e.balance(t, sales.ID).Equal(dec("850")))
	assert.True(t, e.balance(t, relief.ID).Equal(dec("200")))
}

func TestTransfer_ReplayKeepsHop(t *testing.T) {
	e := newEnv(t)
	e.open(t, e.h.Relief, "300")
	e.open(t, e.h.Vault, "1000")
	ctx := context.Background()

	vaultKey := "fuerte-1"
	in := transferIn(e.h.Relief, e.h.Vault, "300")
	in.RequestID = &vaultKey
	_, err := e.transfers.Transfer(ctx, in)
	require.NoError(t, err)
	again, err := e.transfers.Transfer(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, service.TransferToVault, again.Kind)
	require.NotNil(t, again.DestinationBalance)
	assert.True(t, again.DestinationBalance.Equal(dec("1300")))

	finalKey := "retiro-1"
	final := transferIn(e.h.Vault, nil, "1000")
	final.RequestID = &finalKey
	_, err = e.transfers.Transfer(ctx, final)
	require.NoError(t, err)
	again, err = e.transfers.Transfer(ctx, final)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, service.TransferFinal, again.Kind)
	assert.Nil(t, again.Destination)
	assert.True(t, again.SourceBalance.Equal(dec("300")))
}

func TestTransfer_ScopedToCallerBranch(t *testing.T) {
	e := newEnv(t)
	sales := e.open(t, e.h.Sales, "100")
	e.open(t, e.h.Relief, "0")

	in := transferIn(e.h.Sales, e.h.Relief, "10")
	other := uuid.New()
	in.BranchID = &other
	_, err := e.transfers.Transfer(context.Background(), in)
	assert.ErrorIs(t, err, service.ErrForeignBranch)

	in.BranchID = &e.h.BranchID
	_, err = e.transfers.Transfer(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, e.balance(t, sales.ID).Equal(dec("90")))
}
