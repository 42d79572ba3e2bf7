package dto

import "github.com/shopspring/decimal"

type RecordMovementRequest struct {
	Kind          string          `json:"kind"           validate:"required,oneof=income expense deposit withdrawal"`
	Amount        decimal.Decimal `json:"amount"         validate:"required,gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card qr"`
	Concept       string          `json:"concept"        validate:"max=255"`
	RequestID     *string         `json:"request_id"     validate:"omitempty,max=64"`
}

type MovementResponse struct {
	ID            string          `json:"id"`
	ShiftID       string          `json:"shift_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Concept       string          `json:"concept"`
	ActorID       string          `json:"actor_id"`
	CreatedAt     string          `json:"created_at"`
	RequestID     *string         `json:"request_id,omitempty"`
	TransferID    *string         `json:"transfer_id,omitempty"`
	TransferLeg   *string         `json:"transfer_leg,omitempty"`
}

type BalanceResponse struct {
	ShiftID   string             `json:"shift_id"`
	Balance   decimal.Decimal    `json:"balance"`
	Movements []MovementResponse `json:"movements"`
}
