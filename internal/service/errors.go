package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors: rejected before any write.
var (
	ErrInvalidAmount        = errors.New("el monto debe ser mayor a cero y con hasta dos decimales")
	ErrInvalidOpeningAmount = errors.New("el monto inicial no puede ser negativo y admite hasta dos decimales")
	ErrInvalidCountedAmount = errors.New("el monto contado no puede ser negativo y admite hasta dos decimales")
	ErrInvalidMovementKind  = errors.New("tipo de movimiento inválido")
	ErrInvalidPaymentMethod = errors.New("método de pago inválido")
	ErrInvalidDateRange     = errors.New("rango de fechas inválido")
	ErrInvalidTransferRoute = errors.New("traspaso no permitido entre estas cajas")
)

// Not-found errors.
var (
	ErrRegisterNotFound = errors.New("caja no encontrada")
	ErrShiftNotFound    = errors.New("turno de caja no encontrado")
)

// ErrForeignBranch rejects a caller scoped to one branch acting on a register of another.
var ErrForeignBranch = errors.New("la caja pertenece a otra sucursal")

// State-conflict errors: the caller must re-fetch state before retrying.
var (
	ErrRegisterInactive        = errors.New("la caja está desactivada")
	ErrRegisterAlreadyOpen     = errors.New("ya existe un turno abierto en esta caja")
	ErrShiftNotOpen            = errors.New("el turno de caja no está abierto")
	ErrDestinationShiftNotOpen = errors.New("la caja de destino no tiene un turno abierto")
	ErrOperationInProgress     = errors.New("otra operación sobre esta caja está en curso")
	ErrRequestIDConflict       = errors.New("el identificador de solicitud ya fue utilizado por otra operación")
)

// ErrInsufficientFunds is the sentinel matched by InsufficientFundsError.
var ErrInsufficientFunds = errors.New("fondos insuficientes en la caja de origen")

// InsufficientFundsError is a business rejection that carries the cash available
// on the source shift so it can be shown to the user.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: disponible %s, solicitado %s",
		ErrInsufficientFunds.Error(), e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }
