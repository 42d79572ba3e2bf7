// Package testutil provides an in-memory SQLite database with the engine schema
// for repository, service and handler tests.
package testutil

import (
	"fmt"
	"testing"

	"restopos/internal/infra"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database and migrates it.
// A single connection is used so every statement sees the same memory DB;
// code under test must therefore run queries inside a transaction on the tx handle.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.RunMigrations(db))
	return db
}

// SeedRegister inserts a register into the catalog.
func SeedRegister(t *testing.T, db *gorm.DB, branchID uuid.UUID, name string, kind model.RegisterKind) *model.CashRegister {
	t.Helper()
	r := &model.CashRegister{BranchID: branchID, Name: name, Kind: kind, Active: true}
	require.NoError(t, db.Create(r).Error)
	return r
}

// Hierarchy is one branch with a register per tier.
type Hierarchy struct {
	BranchID uuid.UUID
	Sales    *model.CashRegister
	Relief   *model.CashRegister
	Vault    *model.CashRegister
}

// SeedHierarchy creates a branch with a sales till, relief safe and main safe.
func SeedHierarchy(t *testing.T, db *gorm.DB) Hierarchy {
	t.Helper()
	branch := uuid.New()
	return Hierarchy{
		BranchID: branch,
		Sales:    SeedRegister(t, db, branch, "Caja 1", model.RegisterSales),
		Relief:   SeedRegister(t, db, branch, "Alivio", model.RegisterRelief),
		Vault:    SeedRegister(t, db, branch, "Fuerte", model.RegisterVault),
	}
}
