package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/models"
	"github.com/noah-isme/gd-diary-api/internal/repository"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
)

// Correction defaults.
const (
	DefaultCorrectionWindow   = 34 * time.Hour
	DefaultMinReasonLength    = 5
	operationDirectEdit       = "direct_edit"
	operationAmendmentRequest = "amendment_request"
	operationResolve          = "resolve"
)

type correctionUnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CorrectionTx) error) error
}

type correctionReader interface {
	GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error)
	GetLedgerByDiary(ctx context.Context, diaryID string) (*models.CorrectionLedger, error)
	ListLogs(ctx context.Context, filter models.CorrectionLogFilter) ([]models.CorrectionLog, error)
}

type diaryCacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// correctionIntent selects how the shared submission core treats a proposal.
type correctionIntent int

const (
	intentDirectEdit correctionIntent = iota
	intentAmendmentRequest
)

func (i correctionIntent) operation() string {
	if i == intentDirectEdit {
		return operationDirectEdit
	}
	return operationAmendmentRequest
}

// CorrectionConfig bounds the correction workflow.
type CorrectionConfig struct {
	Window          time.Duration
	MinReasonLength int
}

// CorrectionService runs the amendment workflow over diary entries.
type CorrectionService struct {
	uow       correctionUnitOfWork
	reader    correctionReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cache     diaryCacheInvalidator
	now       func() time.Time
	config    CorrectionConfig
}

// CorrectionServiceOption configures the service.
type CorrectionServiceOption func(*CorrectionService)

// WithCorrectionClock overrides the time source.
func WithCorrectionClock(now func() time.Time) CorrectionServiceOption {
	return func(s *CorrectionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCorrectionMetrics records engine outcomes.
func WithCorrectionMetrics(metrics *MetricsService) CorrectionServiceOption {
	return func(s *CorrectionService) {
		s.metrics = metrics
	}
}

// WithCorrectionCache drops cached diary views after a committed correction changes them.
func WithCorrectionCache(cache diaryCacheInvalidator) CorrectionServiceOption {
	return func(s *CorrectionService) {
		s.cache = cache
	}
}

// NewCorrectionService constructs the service with defaults.
func NewCorrectionService(uow correctionUnitOfWork, reader correctionReader, validate *validator.Validate, logger *zap.Logger, config CorrectionConfig, opts ...CorrectionServiceOption) *CorrectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Window <= 0 {
		config.Window = DefaultCorrectionWindow
	}
	if config.MinReasonLength <= 0 {
		config.MinReasonLength = DefaultMinReasonLength
	}
	svc := &CorrectionService{
		uow:       uow,
		reader:    reader,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		config:    config,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// SubmitDirectEdit applies a correction immediately and records it as approved by the actor.
// It fails with CONFLICTING_REQUEST (409) while the entry still has a PENDING request;
// that request must be resolved first.
func (s *CorrectionService) SubmitDirectEdit(ctx context.Context, req dto.CorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "direct edits require an administrator")
	}
	return s.submit(ctx, intentDirectEdit, req, actor.Identity())
}

// SubmitAmendmentRequest records a pending proposal without touching the diary.
func (s *CorrectionService) SubmitAmendmentRequest(ctx context.Context, req dto.CorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.submit(ctx, intentAmendmentRequest, req, actor.Identity())
}

func (s *CorrectionService) submit(ctx context.Context, intent correctionIntent, req dto.CorrectionRequest, actor models.Identity) (*dto.CorrectionResult, error) {
	op := intent.operation()
	start := time.Now()
	if err := s.validateProposal(&req); err != nil {
		s.observe(op, start, err)
		return nil, err
	}

	now := s.now().UTC()
	var result dto.CorrectionResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.CorrectionTx) error {
		diary, err := tx.LockDiary(ctx, req.DailyGDID)
		if err != nil {
			return notFound(err, "diary")
		}
		entry, err := tx.GetEntry(ctx, diary.ID, req.OriginalEntryID)
		if err != nil {
			return notFound(err, "diary entry")
		}
		if err := s.checkWindow(diary, now); err != nil {
			return err
		}
		ledger, err := tx.EnsureLedger(ctx, diary, now)
		if err != nil {
			return err
		}
		pending, err := tx.HasPending(ctx, ledger.ID, entry.ID)
		if err != nil {
			return err
		}
		if pending {
			return appErrors.Clone(appErrors.ErrConflictingRequest, fmt.Sprintf("entry %d already has a pending correction", entry.EntryNo))
		}

		signature, err := json.Marshal(entry.Signature)
		if err != nil {
			return fmt.Errorf("snapshot signature: %w", err)
		}
		log := &models.CorrectionLog{
			LedgerID:          ledger.ID,
			OriginalEntryID:   entry.ID,
			EntryNo:           entry.EntryNo,
			Kind:              req.Kind,
			Status:            models.CorrectionStatusPending,
			PreviousAbstract:  entry.Abstract,
			PreviousDetails:   entry.Details,
			PreviousSignature: types.JSONText(signature),
			NewAbstract:       req.NewData.Abstract,
			NewDetails:        req.NewData.Details,
			Reason:            req.Reason,
			RequestedBy:       actor,
			CreatedAt:         now,
		}
		if intent == intentDirectEdit {
			resolver := actor
			log.Status = models.CorrectionStatusApproved
			log.ResolvedBy = &resolver
			log.ResolvedAt = &now
		}
		if err := tx.AppendLog(ctx, log); err != nil {
			return err
		}
		if intent == intentDirectEdit {
			if err := tx.ApplyCorrection(ctx, diary.ID, entry.ID, log.Proposed(), now); err != nil {
				return notFound(err, "diary entry")
			}
		}
		result = dto.CorrectionResult{CorrectionDocID: ledger.ID, CorrectionLogID: log.ID, Status: log.Status}
		return nil
	})
	if err != nil {
		err = mapCorrectionError(err)
		s.observe(op, start, err)
		return nil, err
	}

	if intent == intentDirectEdit {
		s.invalidateDiary(ctx, req.DailyGDID)
	}
	s.observe(op, start, nil)
	s.logger.Info("correction committed",
		zap.String("operation", op),
		zap.String("diary_id", req.DailyGDID),
		zap.String("entry_id", req.OriginalEntryID),
		zap.String("log_id", result.CorrectionLogID),
		zap.String("actor_id", actor.ID),
	)
	return &result, nil
}

// ResolveRequest approves or rejects a pending amendment request.
func (s *CorrectionService) ResolveRequest(ctx context.Context, req dto.ResolveCorrectionRequest, actor *models.JWTClaims) (*dto.CorrectionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may resolve correction requests")
	}
	start := time.Now()
	if err := s.validator.Struct(req); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve payload")
		s.observe(operationResolve, start, err)
		return nil, err
	}
	outcome, ok := req.Action.Outcome()
	if !ok {
		err := appErrors.Clone(appErrors.ErrValidation, "action must be APPROVE or REJECT")
		s.observe(operationResolve, start, err)
		return nil, err
	}

	resolver := actor.Identity()
	now := s.now().UTC()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.CorrectionTx) error {
		// Diary before log keeps lock order aligned with submissions.
		diary, err := tx.LockDiary(ctx, req.DailyGDID)
		if err != nil {
			return notFound(err, "diary")
		}
		log, err := tx.LockLog(ctx, req.LogID)
		if err != nil {
			return notFound(err, "correction log")
		}
		if log.LedgerID != req.ContainerID || log.OriginalEntryID != req.OriginalEntryID {
			return appErrors.Clone(appErrors.ErrValidation, "correction log does not belong to the given ledger and entry")
		}
		ledger, err := tx.GetLedger(ctx, req.ContainerID)
		if err != nil {
			return notFound(err, "correction ledger")
		}
		if ledger.DiaryID != diary.ID {
			return appErrors.Clone(appErrors.ErrValidation, "correction ledger does not belong to the given diary")
		}
		if log.Status != models.CorrectionStatusPending {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, fmt.Sprintf("correction request already %s", strings.ToLower(string(log.Status))))
		}

		if outcome == models.CorrectionStatusApproved {
			if _, err := tx.GetEntry(ctx, diary.ID, log.OriginalEntryID); err != nil {
				return notFound(err, "diary entry")
			}
			if err := tx.ApplyCorrection(ctx, diary.ID, log.OriginalEntryID, log.Proposed(), now); err != nil {
				return notFound(err, "diary entry")
			}
		}
		if err := tx.ResolveLog(ctx, repository.ResolveLogParams{
			LogID:      log.ID,
			Status:     outcome,
			ResolvedBy: resolver,
			ResolvedAt: now,
		}); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrAlreadyProcessed
			}
			return err
		}
		return nil
	})
	if err != nil {
		err = mapCorrectionError(err)
		s.observe(operationResolve, start, err)
		return nil, err
	}

	if outcome == models.CorrectionStatusApproved {
		s.invalidateDiary(ctx, req.DailyGDID)
	}
	s.observe(operationResolve, start, nil)
	s.logger.Info("correction request resolved",
		zap.String("log_id", req.LogID),
		zap.String("status", string(outcome)),
		zap.String("actor_id", resolver.ID),
	)
	return &dto.CorrectionResult{CorrectionDocID: req.ContainerID, CorrectionLogID: req.LogID, Status: outcome}, nil
}

// GetLedger returns a ledger with its full history.
func (s *CorrectionService) GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error) {
	if err := requireUUID(s.validator, ledgerID, "ledger id"); err != nil {
		return nil, err
	}
	ledger, err := s.reader.GetLedger(ctx, ledgerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "correction ledger not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction ledger")
	}
	return ledger, nil
}

// GetLedgerByDiary returns the ledger of a diary.
func (s *CorrectionService) GetLedgerByDiary(ctx context.Context, diaryID string) (*models.CorrectionLedger, error) {
	if err := requireUUID(s.validator, diaryID, "diary id"); err != nil {
		return nil, err
	}
	ledger, err := s.reader.GetLedgerByDiary(ctx, diaryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diary has no corrections")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction ledger")
	}
	return ledger, nil
}

// ListLogs returns correction logs visible to the actor. Officers only see their own requests.
func (s *CorrectionService) ListLogs(ctx context.Context, query dto.CorrectionQuery, actor *models.JWTClaims) ([]models.CorrectionLog, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.CorrectionLogFilter{
		Status:      query.Status,
		RequestedBy: strings.TrimSpace(query.RequestedBy),
		StationID:   strings.TrimSpace(query.StationID),
		DiaryID:     strings.TrimSpace(query.DiaryID),
		Limit:       query.Limit,
		Offset:      query.Offset,
	}
	if filter.DiaryID != "" {
		if err := requireUUID(s.validator, filter.DiaryID, "diaryId"); err != nil {
			return nil, err
		}
	}
	switch {
	case actor.Role.IsAdmin():
	case actor.Role == models.RoleOfficer:
		filter.RequestedBy = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	logs, err := s.reader.ListLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list corrections")
	}
	return logs, nil
}

func (s *CorrectionService) validateProposal(req *dto.CorrectionRequest) error {
	req.Reason = strings.TrimSpace(req.Reason)
	req.NewData.Abstract = strings.TrimSpace(req.NewData.Abstract)
	req.NewData.Details = strings.TrimSpace(req.NewData.Details)
	if req.Kind == "" {
		req.Kind = models.CorrectionKindEdit
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	if !req.Kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "kind must be EDIT, DELETE or LATE_ENTRY")
	}
	if utf8.RuneCountInString(req.Reason) < s.config.MinReasonLength {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reason must be at least %d characters", s.config.MinReasonLength))
	}
	return nil
}

// checkWindow is the single authority window rule for every proposal.
func (s *CorrectionService) checkWindow(diary *models.DiaryDocument, now time.Time) error {
	if now.Sub(diary.CreatedAt) > s.config.Window {
		return appErrors.Clone(appErrors.ErrWindowExpired,
			fmt.Sprintf("correction window of %s has expired for this diary", s.config.Window))
	}
	return nil
}

func (s *CorrectionService) invalidateDiary(ctx context.Context, diaryID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, DiaryCacheKey(diaryID)); err != nil {
		s.logger.Warn("diary cache invalidation failed", zap.String("diary_id", diaryID), zap.Error(err))
	}
}

func (s *CorrectionService) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	duration := time.Since(start)
	if err == nil {
		s.metrics.ObserveCorrection(op, OutcomeCommitted, "", duration)
		return
	}
	appErr := appErrors.FromError(err)
	outcome := OutcomeRejected
	if appErr.Status >= 500 {
		outcome = OutcomeFailed
		s.logger.Warn("correction transaction failed", zap.String("operation", op), zap.Error(err))
	}
	s.metrics.ObserveCorrection(op, outcome, appErr.Code, duration)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return err
}

// mapCorrectionError keeps business errors and turns every infrastructure failure into a retryable abort.
func mapCorrectionError(err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrPendingExists):
		return appErrors.Wrap(err, appErrors.ErrConflictingRequest.Code, appErrors.ErrConflictingRequest.Status, appErrors.ErrConflictingRequest.Message)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrNotFound
	default:
		return appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, appErrors.ErrTransactionFailed.Message)
	}
}
