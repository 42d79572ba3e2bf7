package infra

import (
	"fmt"

	"restopos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the schema
// up to date. Unique violations are translated to gorm.ErrDuplicatedKey so the
// repositories can map them to domain conflicts.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates/updates the four engine tables and then applies the
// constraints GORM tags cannot express. Every statement is idempotent and
// portable between Postgres and SQLite (used by the test suite).
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CashRegister{},
		&model.CashRegisterShift{},
		&model.CashMovement{},
		&model.DiscrepancyRecord{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches holds DDL that must live in the store rather than in
// client code: the single-open-shift rule is a partial unique index, so two
// sessions racing to open the same register cannot both succeed.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"one open shift per register", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_one_open_per_register
    ON cash_register_shifts (register_id)
    WHERE status = 'open'`},
		{"movements by shift and time", `
CREATE INDEX IF NOT EXISTS idx_cash_movements_shift_created
    ON cash_movements (shift_id, created_at)`},
		{"registers by branch and order", `
CREATE INDEX IF NOT EXISTS idx_cash_registers_branch_order
    ON cash_registers (branch_id, display_order)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
