package handler

import (
	"fmt"
	"net/http"
	"time"

	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/middleware"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShiftHandler struct {
	svc service.ShiftService
	mapper
}

func NewShiftHandler(svc service.ShiftService, loc *time.Location) *ShiftHandler {
	return &ShiftHandler{svc: svc, mapper: mapper{loc: loc}}
}

// Open godoc
// @Summary Abre un turno en una caja
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Datos de apertura"
// @Success 201 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts [post]
func (h *ShiftHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	shift, err := h.svc.OpenShift(c.Request.Context(), service.OpenShiftInput{
		RegisterID:    uuid.MustParse(req.RegisterID),
		OpenerID:      middleware.ActorID(c),
		OpeningAmount: req.OpeningAmount,
		BranchID:      middleware.BranchScope(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.shift(shift))
}

// Close godoc
// @Summary Cierra el turno con el arqueo ciego
// @Tags turnos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de turno"
// @Param body body dto.CloseShiftRequest true "Efectivo contado"
// @Success 200 {object} dto.CloseShiftResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.CloseShift(c.Request.Context(), service.CloseShiftInput{
		ShiftID:       id,
		CloserID:      middleware.ActorID(c),
		CountedAmount: *req.CountedAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.closeResult(res))
}

// Get godoc
// @Summary Detalle de un turno con movimientos y totales
// @Tags turnos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de turno"
// @Success 200 {object} dto.ShiftReportResponse
// @Failure 404 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts/{id} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.svc.GetShiftReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.report(report))
}

// SummaryPDF godoc
// @Summary Resumen imprimible del turno
// @Tags turnos
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID de turno"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/shifts/{id}/summary.pdf [get]
func (h *ShiftHandler) SummaryPDF(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.svc.GetShiftReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := infra.ShiftSummaryPDF(report, h.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="turno_%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", data)
}

// OpenShift godoc
// @Summary Turno abierto de una caja
// @Tags turnos
// @Produce json
// @Security BearerAuth
// @Param register_id path string true "ID de caja"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/registers/{register_id}/open-shift [get]
func (h *ShiftHandler) OpenShift(c *gin.Context) {
	id, ok := uuidParam(c, "register_id")
	if !ok {
		return
	}
	shift, err := h.svc.GetOpenShift(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.shift(shift))
}

// List godoc
// @Summary Turnos de una caja por rango de días operativos
// @Tags turnos
// @Produce json
// @Security BearerAuth
// @Param register_id path string true "ID de caja"
// @Param from query string false "Desde (YYYY-MM-DD)"
// @Param to query string false "Hasta (YYYY-MM-DD)"
// @Success 200 {array} dto.ShiftResponse
// @Failure 422 {object} apierror.ValidationError
// @Failure 403 {object} apierror.APIError
// @Router /v1/registers/{register_id}/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	id, ok := uuidParam(c, "register_id")
	if !ok {
		return
	}
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	shifts, err := h.svc.ListShifts(c.Request.Context(), id, service.DateRange{From: q.From, To: q.To})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.shifts(shifts))
}

// CashStatus godoc
// @Summary Estado de todas las cajas de una sucursal
// @Description Pensado para polling; refresh_after_seconds indica el intervalo sugerido.
// @Tags sucursales
// @Produce json
// @Security BearerAuth
// @Param branch_id path string true "ID de sucursal"
// @Success 200 {object} dto.BranchCashStatusResponse
// @Router /v1/branches/{branch_id}/cash-status [get]
func (h *ShiftHandler) CashStatus(c *gin.Context) {
	id, ok := uuidParam(c, "branch_id")
	if !ok {
		return
	}
	status, err := h.svc.BranchCashStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.branchStatus(status))
}
