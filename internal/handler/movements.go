package handler

import (
	"net/http"
	"time"

	"restopos/internal/dto"
	"restopos/internal/middleware"
	"restopos/internal/model"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type MovementHandler struct {
	svc service.MovementService
	mapper
}

func NewMovementHandler(svc service.MovementService, loc *time.Location) *MovementHandler {
	return &MovementHandler{svc: svc, mapper: mapper{loc: loc}}
}

// Record godoc
// @Summary Registra un movimiento en un turno abierto
// @Description payment_method es "cash" si se omite. Con request_id el registro es idempotente: repetir la misma solicitud devuelve 200 con el movimiento original.
// @Tags movimientos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de turno"
// @Param body body dto.RecordMovementRequest true "Movimiento"
// @Success 201 {object} dto.MovementResponse
// @Success 200 {object} dto.MovementResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts/{id}/movements [post]
func (h *MovementHandler) Record(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	method := model.PaymentCash
	if req.PaymentMethod != "" {
		method = model.PaymentMethod(req.PaymentMethod)
	}
	rec, err := h.svc.RecordMovement(c.Request.Context(), service.RecordMovementInput{
		ShiftID:       id,
		Kind:          model.MovementKind(req.Kind),
		Amount:        req.Amount,
		PaymentMethod: method,
		Concept:       req.Concept,
		ActorID:       middleware.ActorID(c),
		RequestID:     req.RequestID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if rec.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, h.movement(rec.CashMovement))
}

// List godoc
// @Summary Movimientos y saldo esperado de un turno
// @Tags movimientos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de turno"
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts/{id}/movements [get]
func (h *MovementHandler) List(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	movements, err := h.svc.ListMovements(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	balance, err := h.svc.ComputeBalance(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{
		ShiftID:   id.String(),
		Balance:   balance,
		Movements: h.movements(movements),
	})
}
