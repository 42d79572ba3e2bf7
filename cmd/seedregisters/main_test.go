package main

import (
	"context"
	"testing"

	"restopos/internal/model"
	"restopos/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	branch := uuid.New()

	created, err := seed(context.Background(), db, branch, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	created, err = seed(context.Background(), db, branch, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, created, "only Caja 3 is new")

	var regs []model.CashRegister
	require.NoError(t, db.Where("branch_id = ?", branch).Order("display_order").Find(&regs).Error)
	require.Len(t, regs, 5)
	assert.Equal(t, model.RegisterSales, regs[0].Kind)
	assert.Equal(t, "Alivio", regs[2].Name)
	assert.Equal(t, model.RegisterVault, regs[3].Kind)
}
