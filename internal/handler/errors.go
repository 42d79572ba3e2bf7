package handler

import (
	"errors"
	"net/http"

	"restopos/internal/apierror"
	"restopos/internal/middleware"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// conflictCodes maps state conflicts to the stable code clients switch on.
var conflictCodes = []struct {
	err  error
	code string
}{
	{service.ErrRegisterAlreadyOpen, "register_already_open"},
	{service.ErrRegisterInactive, "register_inactive"},
	{service.ErrShiftNotOpen, "shift_not_open"},
	{service.ErrDestinationShiftNotOpen, "destination_shift_not_open"},
	{service.ErrOperationInProgress, "operation_in_progress"},
	{service.ErrRequestIDConflict, "request_id_conflict"},
}

var validationErrors = []error{
	service.ErrInvalidAmount,
	service.ErrInvalidOpeningAmount,
	service.ErrInvalidCountedAmount,
	service.ErrInvalidMovementKind,
	service.ErrInvalidPaymentMethod,
	service.ErrInvalidDateRange,
	service.ErrInvalidTransferRoute,
}

// respondError translates a service error into the API envelope.
// Unknown errors are logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var funds *service.InsufficientFundsError
	if errors.As(err, &funds) {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewInsufficientFunds(service.ErrInsufficientFunds.Error(), funds.Available))
		return
	}
	if errors.Is(err, service.ErrForeignBranch) {
		c.JSON(http.StatusForbidden, apierror.NewWithCode("branch_forbidden", service.ErrForeignBranch.Error()))
		return
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(v.Error()))
			return
		}
	}
	if errors.Is(err, service.ErrRegisterNotFound) || errors.Is(err, service.ErrShiftNotFound) {
		c.JSON(http.StatusNotFound, apierror.New(rootMessage(err)))
		return
	}
	for _, cc := range conflictCodes {
		if errors.Is(err, cc.err) {
			c.JSON(http.StatusConflict, apierror.NewWithCode(cc.code, cc.err.Error()))
			return
		}
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("unhandled service error")
	c.JSON(http.StatusInternalServerError, apierror.New("Error interno, intente nuevamente"))
}

func rootMessage(err error) string {
	if errors.Is(err, service.ErrRegisterNotFound) {
		return service.ErrRegisterNotFound.Error()
	}
	return service.ErrShiftNotFound.Error()
}
