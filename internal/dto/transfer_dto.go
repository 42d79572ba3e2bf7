package dto

import "github.com/shopspring/decimal"

type TransferRequest struct {
	SourceRegisterID string `json:"source_register_id" validate:"required,uuid"`
	// Omitted only for a final withdrawal from the vault.
	DestinationRegisterID *string         `json:"destination_register_id" validate:"omitempty,uuid"`
	Amount                decimal.Decimal `json:"amount"                  validate:"required,gt=0"`
	Concept               string          `json:"concept"                 validate:"max=255"`
	RequestID             *string         `json:"request_id"              validate:"omitempty,max=64"`
}

type TransferResponse struct {
	TransferID         string            `json:"transfer_id"`
	Kind               string            `json:"kind"` // relief | vault | final
	Amount             decimal.Decimal   `json:"amount"`
	Source             MovementResponse  `json:"source"`
	Destination        *MovementResponse `json:"destination"`
	SourceBalance      decimal.Decimal   `json:"source_balance"`
	DestinationBalance *decimal.Decimal  `json:"destination_balance"`
	Replayed           bool              `json:"replayed"`
}
