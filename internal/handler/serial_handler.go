package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/models"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
	"github.com/noah-isme/gd-diary-api/pkg/response"
)

type serialService interface {
	LockSerialNumber(ctx context.Context, req dto.LockSerialRequest, actor *models.JWTClaims) (*dto.LockSerialResult, error)
}

// SerialHandler exposes the page serial lock.
type SerialHandler struct {
	service serialService
}

// NewSerialHandler constructs the handler.
func NewSerialHandler(service serialService) *SerialHandler {
	return &SerialHandler{service: service}
}

// Lock godoc
// @Summary Lock the page serial number of a station diary
// @Description The number can be set once; later attempts fail with ALREADY_LOCKED.
// @Tags Serials
// @Accept json
// @Produce json
// @Param payload body dto.LockSerialRequest true "Serial payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /serials/lock [post]
func (h *SerialHandler) Lock(c *gin.Context) {
	var req dto.LockSerialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid serial lock payload"))
		return
	}
	result, err := h.service.LockSerialNumber(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Serial number locked", result)
}
