package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterKind places a register in the cash hierarchy: sales → relief → vault.
type RegisterKind string

const (
	RegisterSales  RegisterKind = "sales"  // caja de ventas
	RegisterRelief RegisterKind = "relief" // caja de alivio
	RegisterVault  RegisterKind = "vault"  // caja fuerte
)

func (k RegisterKind) Valid() bool {
	switch k {
	case RegisterSales, RegisterRelief, RegisterVault:
		return true
	}
	return false
}

// CashRegister is a physical till at a branch. The catalog is owned by branch
// configuration; this service only reads it. Registers are deactivated, never deleted.
type CashRegister struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	BranchID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	Name         string       `gorm:"type:varchar(100);not null"`
	Kind         RegisterKind `gorm:"type:varchar(20);not null"`
	Active       bool         `gorm:"not null;default:true"`
	DisplayOrder int          `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *CashRegister) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
