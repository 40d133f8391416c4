package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/models"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
	"github.com/noah-isme/gd-diary-api/pkg/response"
)

type correctionService interface {
	SubmitDirectEdit(ctx context.Context, req dto.CorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error)
	SubmitAmendmentRequest(ctx context.Context, req dto.CorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error)
	ResolveRequest(ctx context.Context, req dto.ResolveCorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error)
	GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error)
	GetLedgerByDiary(ctx context.Context, diaryID string) (*models.CorrectionLedger, error)
	ListLogs(ctx context.Context, query dto.CorrectionQuery, actor *models.JWTClaims) ([]models.CorrectionLog, error)
}

// CorrectionHandler exposes the amendment workflow.
type CorrectionHandler struct {
	service correctionService
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(service correctionService) *CorrectionHandler {
	return &CorrectionHandler{service: service}
}

// DirectEdit godoc
// @Summary Correct an entry immediately
// @Description Administrators only. Applies the change and records it in the correction ledger as approved.
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.CorrectionRequest true "Correction payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /corrections/direct [post]
func (h *CorrectionHandler) DirectEdit(c *gin.Context) {
	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	result, err := h.service.SubmitDirectEdit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Entry corrected and logged", result)
}

// RequestAmendment godoc
// @Summary Propose a correction for admin review
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.CorrectionRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /corrections/requests [post]
func (h *CorrectionHandler) RequestAmendment(c *gin.Context) {
	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	result, err := h.service.SubmitAmendmentRequest(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Amendment request submitted", result)
}

// Resolve godoc
// @Summary Approve or reject a pending request
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.ResolveCorrectionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /corrections/resolve [post]
func (h *CorrectionHandler) Resolve(c *gin.Context) {
	var req dto.ResolveCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolve payload"))
		return
	}
	req.Action = models.CorrectionDecision(strings.ToUpper(strings.TrimSpace(string(req.Action))))
	result, err := h.service.ResolveRequest(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "Correction request approved"
	if result.Status == models.CorrectionStatusRejected {
		message = "Correction request rejected"
	}
	response.Message(c, http.StatusOK, message, result)
}

// List godoc
// @Summary List correction logs
// @Tags Corrections
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param requestedBy query string false "Requester ID (admins only)"
// @Param stationId query string false "Station ID"
// @Param diaryId query string false "Diary ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /corrections [get]
func (h *CorrectionHandler) List(c *gin.Context) {
	query := dto.CorrectionQuery{
		RequestedBy: c.Query("requestedBy"),
		StationID:   c.Query("stationId"),
		DiaryID:     c.Query("diaryId"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			status := models.CorrectionStatus(strings.ToUpper(strings.TrimSpace(part)))
			switch status {
			case "":
				continue
			case models.CorrectionStatusPending, models.CorrectionStatusApproved, models.CorrectionStatusRejected:
				query.Status = append(query.Status, status)
			default:
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status)))
				return
			}
		}
	}
	var err error
	if query.Limit, err = intQuery(c, "limit"); err != nil {
		response.Error(c, err)
		return
	}
	if query.Offset, err = intQuery(c, "offset"); err != nil {
		response.Error(c, err)
		return
	}

	logs, err := h.service.ListLogs(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, map[string]interface{}{"count": len(logs)})
}

// GetLedger godoc
// @Summary Get a correction ledger with its history
// @Tags Corrections
// @Produce json
// @Param id path string true "Ledger ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/ledgers/{id} [get]
func (h *CorrectionHandler) GetLedger(c *gin.Context) {
	ledger, err := h.service.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger)
}

// GetDiaryLedger godoc
// @Summary Get the correction ledger of a diary
// @Tags Corrections
// @Produce json
// @Param id path string true "Diary ID"
// @Success 200 {object} response.Envelope
// @Router /diaries/{id}/corrections [get]
func (h *CorrectionHandler) GetDiaryLedger(c *gin.Context) {
	ledger, err := h.service.GetLedgerByDiary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return value, nil
}
