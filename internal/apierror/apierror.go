// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	// Code is a stable machine-readable identifier for state conflicts.
	Code string `json:"code,omitempty"`
	// Available is set on insufficient-funds rejections.
	Available *decimal.Decimal `json:"available,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func NewWithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// NewInsufficientFunds carries the cash available on the source register.
func NewInsufficientFunds(msg string, available decimal.Decimal) *APIError {
	return &APIError{Detail: msg, Code: "insufficient_funds", Available: &available}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
