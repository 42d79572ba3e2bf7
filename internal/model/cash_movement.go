package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementKind: "income" | "expense" | "deposit" | "withdrawal".
type MovementKind string

const (
	MovementIncome     MovementKind = "income"
	MovementExpense    MovementKind = "expense"
	MovementDeposit    MovementKind = "deposit"
	MovementWithdrawal MovementKind = "withdrawal"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementIncome, MovementExpense, MovementDeposit, MovementWithdrawal:
		return true
	}
	return false
}

// PaymentMethod tags how a movement was settled. Only cash touches the till.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentQR   PaymentMethod = "qr"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentQR:
		return true
	}
	return false
}

// TransferLeg marks a movement written by the transfer protocol.
// "final" is a vault withdrawal that leaves the tracked system on purpose.
type TransferLeg string

const (
	LegSource      TransferLeg = "source"
	LegDestination TransferLeg = "destination"
	LegFinal       TransferLeg = "final"
)

// CashMovement is an immutable ledger entry. Movements are NEVER updated or
// deleted; corrections are compensating movements on an open shift.
type CashMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ShiftID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind          MovementKind    `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_cash_movements_amount,amount > 0"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null"`
	Concept       string          `gorm:"not null"`
	ActorID       uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt     time.Time       `gorm:"not null"`

	// RequestID is the client idempotency key; unique when present.
	RequestID   *string      `gorm:"type:varchar(64);uniqueIndex"`
	TransferID  *uuid.UUID   `gorm:"type:uuid;index"`
	TransferLeg *TransferLeg `gorm:"type:varchar(20)"`
}

func (m *CashMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
