package handler

import (
	"fmt"
	"net/http"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/middleware"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct{ svc service.ReconciliationService }

func NewReportHandler(svc service.ReconciliationService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

type statisticsQuery struct {
	BranchID string `form:"branch_id" validate:"omitempty,uuid"`
}

type reportQuery struct {
	dto.DateRangeQuery
	Format string `form:"format" validate:"omitempty,oneof=json xlsx"`
}

// Statistics godoc
// @Summary Precisión histórica de un cajero
// @Description Un cajero solo puede consultar sus propias estadísticas.
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "ID de usuario"
// @Param branch_id query string false "Limitar a una sucursal"
// @Success 200 {object} dto.CashierStatisticsResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/cashiers/{user_id}/statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	if claims.Rol == middleware.RoleCajero && userID != middleware.ActorID(c) {
		c.JSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
		return
	}
	var q statisticsQuery
	if !bindQuery(c, &q) {
		return
	}
	var branchID *uuid.UUID
	if q.BranchID != "" {
		id := uuid.MustParse(q.BranchID)
		branchID = &id
	}

	stats, err := h.svc.CashierStatistics(c.Request.Context(), userID, branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statistics(stats))
}

// Discrepancies godoc
// @Summary Cierres de una sucursal por rango de días operativos
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Param branch_id path string true "ID de sucursal"
// @Param from query string false "Desde (YYYY-MM-DD)"
// @Param to query string false "Hasta (YYYY-MM-DD)"
// @Success 200 {array} dto.DiscrepancyRecordResponse
// @Router /v1/branches/{branch_id}/discrepancies [get]
func (h *ReportHandler) Discrepancies(c *gin.Context) {
	branchID, ok := uuidParam(c, "branch_id")
	if !ok {
		return
	}
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	records, err := h.svc.ListDiscrepancies(c.Request.Context(), branchID, service.DateRange{From: q.From, To: q.To})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, discrepancyRecords(records))
}

// Report godoc
// @Summary Ranking de diferencias por cajero
// @Description Ordenado de peor a mejor. format=xlsx descarga la planilla.
// @Tags reportes
// @Produce json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param branch_id path string true "ID de sucursal"
// @Param from query string false "Desde (YYYY-MM-DD)"
// @Param to query string false "Hasta (YYYY-MM-DD)"
// @Param format query string false "json | xlsx"
// @Success 200 {object} dto.BranchDiscrepancyReportResponse
// @Router /v1/branches/{branch_id}/discrepancies/report [get]
func (h *ReportHandler) Report(c *gin.Context) {
	branchID, ok := uuidParam(c, "branch_id")
	if !ok {
		return
	}
	var q reportQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	r := service.DateRange{From: q.From, To: q.To}

	report, err := h.svc.BranchDiscrepancyReport(ctx, branchID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	if q.Format != "xlsx" {
		c.JSON(http.StatusOK, branchReport(report))
		return
	}

	records, err := h.svc.ListDiscrepancies(ctx, branchID, r)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := infra.DiscrepancyWorkbook(report, records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="diferencias_%s_%s.xlsx"`, report.From, report.To))
	c.Data(http.StatusOK, xlsxContentType, data)
}
