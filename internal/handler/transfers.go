package handler

import (
	"net/http"
	"time"

	"restopos/internal/dto"
	"restopos/internal/middleware"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransferHandler struct {
	svc service.TransferService
	mapper
}

func NewTransferHandler(svc service.TransferService, loc *time.Location) *TransferHandler {
	return &TransferHandler{svc: svc, mapper: mapper{loc: loc}}
}

// Create godoc
// @Summary Traspaso de efectivo entre cajas
// @Description ventas → alivio → fuerte. Sin destino desde la caja fuerte es un retiro final.
// @Tags traspasos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferRequest true "Traspaso"
// @Success 201 {object} dto.TransferResponse
// @Success 200 {object} dto.TransferResponse "Reintento con el mismo request_id"
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	in := service.TransferInput{
		SourceRegisterID: uuid.MustParse(req.SourceRegisterID),
		Amount:           req.Amount,
		Concept:          req.Concept,
		ActorID:          middleware.ActorID(c),
		RequestID:        req.RequestID,
		BranchID:         middleware.BranchScope(c),
	}
	if req.DestinationRegisterID != nil {
		dst := uuid.MustParse(*req.DestinationRegisterID)
		in.DestinationRegisterID = &dst
	}

	res, err := h.svc.Transfer(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, h.transfer(res))
}
