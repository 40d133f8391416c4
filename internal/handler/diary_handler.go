package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/middleware"
	"github.com/noah-isme/gd-diary-api/internal/models"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
	"github.com/noah-isme/gd-diary-api/pkg/response"
)

type diaryService interface {
	Create(ctx context.Context, req dto.CreateDiaryRequest, actor *models.JWTClaims) (*models.DiaryDocument, error)
	AddEntry(ctx context.Context, diaryID string, req dto.AddEntryRequest, actor *models.JWTClaims) (*models.Entry, error)
	Get(ctx context.Context, id string) (*models.DiaryDocument, bool, error)
	FindByStationDate(ctx context.Context, query dto.DiaryQuery) (*models.DiaryDocument, error)
}

// DiaryHandler exposes General Diary endpoints.
type DiaryHandler struct {
	service diaryService
}

// NewDiaryHandler constructs the handler.
func NewDiaryHandler(service diaryService) *DiaryHandler {
	return &DiaryHandler{service: service}
}

// Create godoc
// @Summary Open the diary of a station for a day
// @Tags Diaries
// @Accept json
// @Produce json
// @Param payload body dto.CreateDiaryRequest true "Diary payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /diaries [post]
func (h *DiaryHandler) Create(c *gin.Context) {
	var req dto.CreateDiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid diary payload"))
		return
	}
	diary, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, diary)
}

// AddEntry godoc
// @Summary File an occurrence entry
// @Tags Diaries
// @Accept json
// @Produce json
// @Param id path string true "Diary ID"
// @Param payload body dto.AddEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Router /diaries/{id}/entries [post]
func (h *DiaryHandler) AddEntry(c *gin.Context) {
	var req dto.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry payload"))
		return
	}
	entry, err := h.service.AddEntry(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Get godoc
// @Summary Get a diary with its entries
// @Tags Diaries
// @Produce json
// @Param id path string true "Diary ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /diaries/{id} [get]
func (h *DiaryHandler) Get(c *gin.Context) {
	diary, hit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, diary, middleware.ExtractMeta(c))
}

// Find godoc
// @Summary Find the diary of a station for a day
// @Tags Diaries
// @Produce json
// @Param stationId query string true "Station ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /diaries [get]
func (h *DiaryHandler) Find(c *gin.Context) {
	query := dto.DiaryQuery{
		StationID: strings.TrimSpace(c.Query("stationId")),
		Date:      strings.TrimSpace(c.Query("date")),
	}
	diary, err := h.service.FindByStationDate(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diary)
}
