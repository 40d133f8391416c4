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

type diaryStore interface {
	Create(ctx context.Context, diary *models.DiaryDocument) error
	GetByID(ctx context.Context, id string) (*models.DiaryDocument, error)
	GetByStationDate(ctx context.Context, stationID string, date time.Time) (*models.DiaryDocument, error)
	ListEntries(ctx context.Context, diaryID string) ([]models.Entry, error)
	AppendEntry(ctx context.Context, entry *models.Entry) error
}

type diaryCache interface {
	Generation(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// DiaryService files diaries and entries and serves the diary view.
type DiaryService struct {
	repo      diaryStore
	cache     diaryCache
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// DiaryServiceOption configures the service.
type DiaryServiceOption func(*DiaryService)

// WithDiaryCache enables cache-aside reads of the diary view.
func WithDiaryCache(cache diaryCache) DiaryServiceOption {
	return func(s *DiaryService) {
		s.cache = cache
	}
}

// WithDiaryClock overrides the time source.
func WithDiaryClock(now func() time.Time) DiaryServiceOption {
	return func(s *DiaryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDiaryService constructs the service. loc is the timezone calendar days are counted in.
func NewDiaryService(repo diaryStore, validate *validator.Validate, logger *zap.Logger, loc *time.Location, opts ...DiaryServiceOption) *DiaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	svc := &DiaryService{repo: repo, validator: validate, logger: logger, location: loc, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create opens the diary of a station for one calendar day.
func (s *DiaryService) Create(ctx context.Context, req dto.CreateDiaryRequest, actor *models.JWTClaims) (*models.DiaryDocument, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.StationID = strings.TrimSpace(req.StationID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid diary payload")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	diary := &models.DiaryDocument{
		StationID: req.StationID,
		Division:  strings.TrimSpace(req.Division),
		DiaryDate: date,
		CreatedBy: actor.UserID,
		CreatedAt: s.now().UTC(),
		Entries:   []models.Entry{},
	}
	if err := s.repo.Create(ctx, diary); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicateDiary
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create diary")
	}
	s.logger.Info("diary opened",
		zap.String("diary_id", diary.ID),
		zap.String("station_id", diary.StationID),
		zap.String("date", diary.DiaryDate.Format("2006-01-02")),
	)
	return diary, nil
}

// AddEntry files an entry signed by the actor.
func (s *DiaryService) AddEntry(ctx context.Context, diaryID string, req dto.AddEntryRequest, actor *models.JWTClaims) (*models.Entry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := requireUUID(s.validator, diaryID, "diary id"); err != nil {
		return nil, err
	}
	req.Abstract = strings.TrimSpace(req.Abstract)
	req.Details = strings.TrimSpace(req.Details)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}

	now := s.now().UTC()
	identity := actor.Identity()
	entry := &models.Entry{
		DiaryID:  diaryID,
		Abstract: req.Abstract,
		Details:  req.Details,
		Signature: models.Signature{
			OfficerID:   identity.ID,
			OfficerName: identity.Name,
			Rank:        identity.Rank,
			ForceNumber: identity.ForceNumber,
			Station:     identity.StationID,
			SignedAt:    now,
		},
		CreatedAt: now,
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add diary entry")
	}
	s.invalidate(ctx, diaryID)
	return entry, nil
}

// Get returns a diary with its entries. The boolean reports a cache hit.
func (s *DiaryService) Get(ctx context.Context, id string) (*models.DiaryDocument, bool, error) {
	if err := requireUUID(s.validator, id, "diary id"); err != nil {
		return nil, false, err
	}
	// The generation is read before the load so a concurrent invalidation
	// retires whatever this call ends up caching.
	var key string
	if s.cache != nil {
		if gen, err := s.cache.Generation(ctx, DiaryCacheKey(id)); err == nil {
			key = VersionedKey(DiaryCacheKey(id), gen)
			var cached models.DiaryDocument
			if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
				return &cached, true, nil
			}
		}
	}

	diary, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "diary not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load diary")
	}
	if err := s.loadEntries(ctx, diary); err != nil {
		return nil, false, err
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, diary, 0)
	}
	return diary, false, nil
}

// FindByStationDate returns the diary of a station for a day; an empty date means today.
func (s *DiaryService) FindByStationDate(ctx context.Context, query dto.DiaryQuery) (*models.DiaryDocument, error) {
	query.StationID = strings.TrimSpace(query.StationID)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid diary query")
	}
	date, err := s.resolveDate(query.Date)
	if err != nil {
		return nil, err
	}
	diary, err := s.repo.GetByStationDate(ctx, query.StationID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no diary for this station and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load diary")
	}
	if err := s.loadEntries(ctx, diary); err != nil {
		return nil, err
	}
	return diary, nil
}

func (s *DiaryService) resolveDate(raw string) (time.Time, error) {
	return parseDiaryDate(raw, s.location, s.now)
}

func (s *DiaryService) loadEntries(ctx context.Context, diary *models.DiaryDocument) error {
	entries, err := s.repo.ListEntries(ctx, diary.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load diary entries")
	}
	diary.Entries = entries
	return nil
}

func (s *DiaryService) invalidate(ctx context.Context, diaryID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, DiaryCacheKey(diaryID)); err != nil {
		s.logger.Warn("diary cache invalidation failed", zap.String("diary_id", diaryID), zap.Error(err))
	}
}

// parseDiaryDate reads YYYY-MM-DD in loc; empty input means today in loc.
func parseDiaryDate(raw string, loc *time.Location, now func() time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.NormalizeDiaryDate(now(), loc), nil
	}
	date, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

// requireUUID rejects identifiers the uuid columns would refuse.
func requireUUID(validate *validator.Validate, id, field string) error {
	if err := validate.Var(id, "required,uuid"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, field+" must be a valid UUID")
	}
	return nil
}
