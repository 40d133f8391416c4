package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/models"
	"github.com/noah-isme/gd-diary-api/internal/repository"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
)

type serialStore interface {
	GetByStationDate(ctx context.Context, stationID string, date time.Time) (*models.DiaryDocument, error)
	LockSerial(ctx context.Context, diaryID string, serialNo int) error
}

// SerialService sets the one-time page serial number of a diary.
type SerialService struct {
	repo      serialStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cache     diaryCacheInvalidator
	location  *time.Location
	now       func() time.Time
}

// SerialServiceOption configures the service.
type SerialServiceOption func(*SerialService)

// WithSerialMetrics counts lock attempts.
func WithSerialMetrics(metrics *MetricsService) SerialServiceOption {
	return func(s *SerialService) {
		s.metrics = metrics
	}
}

// WithSerialCache drops the cached diary view once the serial is locked.
func WithSerialCache(cache diaryCacheInvalidator) SerialServiceOption {
	return func(s *SerialService) {
		s.cache = cache
	}
}

// WithSerialClock overrides the time source used for the default date.
func WithSerialClock(now func() time.Time) SerialServiceOption {
	return func(s *SerialService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSerialService constructs the service.
func NewSerialService(repo serialStore, validate *validator.Validate, logger *zap.Logger, loc *time.Location, opts ...SerialServiceOption) *SerialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	svc := &SerialService{repo: repo, validator: validate, logger: logger, location: loc, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// LockSerialNumber sets the page serial number of the station diary. A second call always fails.
func (s *SerialService) LockSerialNumber(ctx context.Context, req dto.LockSerialRequest, actor *models.JWTClaims) (*dto.LockSerialResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.StationID = strings.TrimSpace(req.StationID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid serial lock payload")
	}
	date, err := parseDiaryDate(req.Date, s.location, s.now)
	if err != nil {
		return nil, err
	}

	diary, err := s.repo.GetByStationDate(ctx, req.StationID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no diary for this station and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load diary")
	}

	if err := s.repo.LockSerial(ctx, diary.ID, req.PageSerialNo); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyLocked):
			s.metrics.ObserveSerialLock(OutcomeRejected)
			return nil, appErrors.ErrAlreadyLocked
		case errors.Is(err, sql.ErrNoRows):
			s.metrics.ObserveSerialLock(OutcomeRejected)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diary not found")
		default:
			s.metrics.ObserveSerialLock(OutcomeFailed)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock serial number")
		}
	}
	s.metrics.ObserveSerialLock(OutcomeCommitted)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, DiaryCacheKey(diary.ID)); err != nil {
			s.logger.Warn("diary cache invalidation failed", zap.String("diary_id", diary.ID), zap.Error(err))
		}
	}
	s.logger.Info("page serial number locked",
		zap.String("diary_id", diary.ID),
		zap.Int("page_serial_no", req.PageSerialNo),
		zap.String("actor_id", actor.UserID),
	)
	return &dto.LockSerialResult{DiaryID: diary.ID, PageSerialNo: req.PageSerialNo}, nil
}
