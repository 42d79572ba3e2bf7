package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscrepancyRecord is the historical fact written once when a shift closes.
// It is a reporting projection of the shift, never updated afterwards.
// ShiftDate is the operational day (YYYY-MM-DD) of the close, not the calendar day.
type DiscrepancyRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ShiftID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_discrepancy_branch_date"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	RegisterID     *uuid.UUID      `gorm:"type:uuid"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ActualAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discrepancy    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShiftDate      string          `gorm:"type:varchar(10);not null;index:idx_discrepancy_branch_date"`
	Notes          *string
	CreatedAt      time.Time
}

func (DiscrepancyRecord) TableName() string { return "discrepancy_history" }

func (d *DiscrepancyRecord) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// IsPerfect reports an exact-zero discrepancy. There is no tolerance band.
func (d DiscrepancyRecord) IsPerfect() bool { return d.Discrepancy.IsZero() }
