package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShiftStatus: "open" | "closed". Closed is terminal.
type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftOpen, ShiftClosed:
		return true
	}
	return false
}

// CashRegisterShift is one open-to-close session of a register.
// The expected amount is never stored here: it is always recomputed from the
// movement ledger. At most one open shift per register is enforced by the
// partial unique index uq_shifts_one_open_per_register (see infra/database.go).
type CashRegisterShift struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RegisterID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpenedBy      uuid.UUID       `gorm:"type:uuid;not null"`
	OpenedAt      time.Time       `gorm:"not null;index"`
	Status        ShiftStatus     `gorm:"type:varchar(20);not null;default:'open'"`
	OpeningAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	ClosedBy      *uuid.UUID       `gorm:"type:uuid"`
	ClosedAt      *time.Time
	CountedAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// Discrepancy = CountedAmount - expected, fixed at close.
	Discrepancy *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes       *string

	// Version is bumped by every guarded write (movement insert, close) so the
	// conditional UPDATE doubles as a row lock inside the transaction.
	Version int64 `gorm:"not null;default:0"`

	Register *CashRegister `gorm:"foreignKey:RegisterID"`
}

func (s *CashRegisterShift) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *CashRegisterShift) IsOpen() bool { return s.Status == ShiftOpen }
