package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gd-diary-api/internal/dto"
	"github.com/noah-isme/gd-diary-api/internal/models"
	"github.com/noah-isme/gd-diary-api/internal/repository"
	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
)

// memCorrectionStore is an in-memory unit of work; a failed fn or commit restores the prior state.
type memCorrectionStore struct {
	mu         sync.Mutex
	diaries    map[string]models.DiaryDocument
	entries    map[string]models.Entry
	ledgers    map[string]models.CorrectionLedger
	logs       map[string]models.CorrectionLog
	failCommit error
	appendErr  error
}

func newMemCorrectionStore() *memCorrectionStore {
	return &memCorrectionStore{
		diaries: make(map[string]models.DiaryDocument),
		entries: make(map[string]models.Entry),
		ledgers: make(map[string]models.CorrectionLedger),
		logs:    make(map[string]models.CorrectionLog),
	}
}

type memSnapshot struct {
	diaries map[string]models.DiaryDocument
	entries map[string]models.Entry
	ledgers map[string]models.CorrectionLedger
	logs    map[string]models.CorrectionLog
}

func (m *memCorrectionStore) snapshot() memSnapshot {
	s := memSnapshot{
		diaries: make(map[string]models.DiaryDocument, len(m.diaries)),
		entries: make(map[string]models.Entry, len(m.entries)),
		ledgers: make(map[string]models.CorrectionLedger, len(m.ledgers)),
		logs:    make(map[string]models.CorrectionLog, len(m.logs)),
	}
	for k, v := range m.diaries {
		s.diaries[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = v
	}
	for k, v := range m.ledgers {
		s.ledgers[k] = v
	}
	for k, v := range m.logs {
		s.logs[k] = v
	}
	return s
}

func (m *memCorrectionStore) restore(s memSnapshot) {
	m.diaries, m.entries, m.ledgers, m.logs = s.diaries, s.entries, s.ledgers, s.logs
}

func (m *memCorrectionStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CorrectionTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(before)
		return err
	}
	if m.failCommit != nil {
		m.restore(before)
		return m.failCommit
	}
	return nil
}

func (m *memCorrectionStore) LockDiary(ctx context.Context, diaryID string) (*models.DiaryDocument, error) {
	diary, ok := m.diaries[diaryID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &diary, nil
}

func (m *memCorrectionStore) GetEntry(ctx context.Context, diaryID, entryID string) (*models.Entry, error) {
	entry, ok := m.entries[entryID]
	if !ok || entry.DiaryID != diaryID {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

func (m *memCorrectionStore) EnsureLedger(ctx context.Context, diary *models.DiaryDocument, at time.Time) (*models.CorrectionLedger, error) {
	for _, ledger := range m.ledgers {
		if ledger.DiaryID == diary.ID {
			l := ledger
			return &l, nil
		}
	}
	ledger := models.CorrectionLedger{ID: uuid.NewString(), DiaryID: diary.ID, StationID: diary.StationID, DiaryDate: diary.DiaryDate, CreatedAt: at}
	m.ledgers[ledger.ID] = ledger
	return &ledger, nil
}

func (m *memCorrectionStore) GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error) {
	ledger, ok := m.ledgers[ledgerID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ledger, nil
}

func (m *memCorrectionStore) HasPending(ctx context.Context, ledgerID, entryID string) (bool, error) {
	for _, log := range m.logs {
		if log.LedgerID == ledgerID && log.OriginalEntryID == entryID && log.Status == models.CorrectionStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCorrectionStore) AppendLog(ctx context.Context, log *models.CorrectionLog) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	seq := 0
	for _, existing := range m.logs {
		if existing.LedgerID == log.LedgerID && existing.Sequence > seq {
			seq = existing.Sequence
		}
	}
	log.Sequence = seq + 1
	log.ID = uuid.NewString()
	log.RequestedByID = log.RequestedBy.ID
	m.logs[log.ID] = *log
	return nil
}

func (m *memCorrectionStore) LockLog(ctx context.Context, logID string) (*models.CorrectionLog, error) {
	log, ok := m.logs[logID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &log, nil
}

func (m *memCorrectionStore) ResolveLog(ctx context.Context, params repository.ResolveLogParams) error {
	log, ok := m.logs[params.LogID]
	if !ok || log.Status != models.CorrectionStatusPending {
		return sql.ErrNoRows
	}
	resolver := params.ResolvedBy
	at := params.ResolvedAt
	log.Status = params.Status
	log.ResolvedBy = &resolver
	log.ResolvedAt = &at
	m.logs[log.ID] = log
	return nil
}

func (m *memCorrectionStore) ApplyCorrection(ctx context.Context, diaryID, entryID string, content models.EntryContent, at time.Time) error {
	entry, ok := m.entries[entryID]
	if !ok || entry.DiaryID != diaryID {
		return sql.ErrNoRows
	}
	entry.Abstract = content.Abstract
	entry.Details = content.Details
	entry.IsCorrected = true
	m.entries[entryID] = entry
	diary := m.diaries[diaryID]
	diary.HasCorrections = true
	diary.CorrectionCount++
	diary.UpdatedAt = at
	m.diaries[diaryID] = diary
	return nil
}

func (m *memCorrectionStore) history(ledgerID string) []models.CorrectionLog {
	out := make([]models.CorrectionLog, 0)
	for _, log := range m.logs {
		if log.LedgerID == ledgerID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

type ledgerReaderStub struct {
	store  *memCorrectionStore
	filter models.CorrectionLogFilter
}

func (r *ledgerReaderStub) GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error) {
	ledger, ok := r.store.ledgers[ledgerID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	ledger.History = r.store.history(ledgerID)
	return &ledger, nil
}

func (r *ledgerReaderStub) GetLedgerByDiary(ctx context.Context, diaryID string) (*models.CorrectionLedger, error) {
	for id, ledger := range r.store.ledgers {
		if ledger.DiaryID == diaryID {
			return r.GetLedger(ctx, id)
		}
	}
	return nil, sql.ErrNoRows
}

func (r *ledgerReaderStub) ListLogs(ctx context.Context, filter models.CorrectionLogFilter) ([]models.CorrectionLog, error) {
	r.filter = filter
	out := make([]models.CorrectionLog, 0)
	for _, log := range r.store.logs {
		if filter.RequestedBy != "" && log.RequestedByID != filter.RequestedBy {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

type invalidatorStub struct {
	keys []string
}

func (c *invalidatorStub) Invalidate(ctx context.Context, keys ...string) error {
	c.keys = append(c.keys, keys...)
	return nil
}

type correctionFixture struct {
	store   *memCorrectionStore
	reader  *ledgerReaderStub
	cache   *invalidatorStub
	metrics *MetricsService
	svc     *CorrectionService
	now     time.Time
	diaryID string
	entryID string
	officer *models.JWTClaims
	admin   *models.JWTClaims
}

var diaryCreatedAt = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

func newCorrectionFixture(t *testing.T) *correctionFixture {
	t.Helper()
	f := &correctionFixture{
		store:   newMemCorrectionStore(),
		cache:   &invalidatorStub{},
		metrics: NewMetricsService(),
		now:     diaryCreatedAt.Add(2 * time.Hour),
		diaryID: uuid.NewString(),
		entryID: uuid.NewString(),
		officer: &models.JWTClaims{UserID: "officer-1", Role: models.RoleOfficer, Name: "SI Rao", Rank: "SI", StationID: "PS-01"},
		admin:   &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Name: "Insp Das", Rank: "Inspector", StationID: "PS-01"},
	}
	f.reader = &ledgerReaderStub{store: f.store}
	f.store.diaries[f.diaryID] = models.DiaryDocument{
		ID:          f.diaryID,
		StationID:   "PS-01",
		DiaryDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		LastEntryNo: 1,
		CreatedBy:   "officer-1",
		CreatedAt:   diaryCreatedAt,
	}
	f.store.entries[f.entryID] = models.Entry{
		ID:       f.entryID,
		DiaryID:  f.diaryID,
		EntryNo:  1,
		Abstract: "Patrol",
		Details:  "No incident",
		Signature: models.Signature{
			OfficerID:   "officer-1",
			OfficerName: "SI Rao",
			Rank:        "SI",
			Station:     "PS-01",
			SignedAt:    diaryCreatedAt.Add(time.Hour),
		},
	}
	f.svc = NewCorrectionService(f.store, f.reader, nil, nil, CorrectionConfig{},
		WithCorrectionClock(func() time.Time { return f.now }),
		WithCorrectionMetrics(f.metrics),
		WithCorrectionCache(f.cache),
	)
	return f
}

func (f *correctionFixture) proposal(reason string) dto.CorrectionRequest {
	return dto.CorrectionRequest{
		OriginalEntryID: f.entryID,
		DailyGDID:       f.diaryID,
		NewData:         dto.CorrectionData{Abstract: "Patrol Report", Details: "Minor incident noted"},
		Reason:          reason,
	}
}

func (f *correctionFixture) resolve(result *dto.CorrectionResult, action models.CorrectionDecision) dto.ResolveCorrectionRequest {
	return dto.ResolveCorrectionRequest{
		ContainerID:     result.CorrectionDocID,
		LogID:           result.CorrectionLogID,
		DailyGDID:       f.diaryID,
		OriginalEntryID: f.entryID,
		Action:          action,
	}
}

func TestCorrectionServiceAmendmentLifecycle(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	requested, err := f.svc.SubmitAmendmentRequest(ctx, f.proposal("typo in abstract"), f.officer)
	require.NoError(t, err)
	assert.Equal(t, models.CorrectionStatusPending, requested.Status)
	assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
	assert.Empty(t, f.cache.keys)

	_, err = f.svc.SubmitAmendmentRequest(ctx, f.proposal("another attempt"), f.officer)
	require.ErrorIs(t, err, appErrors.ErrConflictingRequest)
	assert.Len(t, f.store.logs, 1)

	resolved, err := f.svc.ResolveRequest(ctx, f.resolve(requested, models.DecisionApprove), f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.CorrectionStatusApproved, resolved.Status)

	entry := f.store.entries[f.entryID]
	assert.Equal(t, "Patrol Report", entry.Abstract)
	assert.Equal(t, "Minor incident noted", entry.Details)
	assert.True(t, entry.IsCorrected)
	assert.Equal(t, "officer-1", entry.Signature.OfficerID)
	diary := f.store.diaries[f.diaryID]
	assert.True(t, diary.HasCorrections)
	assert.Equal(t, 1, diary.CorrectionCount)
	assert.Equal(t, []string{DiaryCacheKey(f.diaryID)}, f.cache.keys)

	_, err = f.svc.ResolveRequest(ctx, f.resolve(requested, models.DecisionApprove), f.admin)
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
	assert.Equal(t, 1, f.store.diaries[f.diaryID].CorrectionCount)

	ledger, err := f.svc.GetLedgerByDiary(ctx, f.diaryID)
	require.NoError(t, err)
	require.Len(t, ledger.History, 1)
	log := ledger.History[0]
	assert.Equal(t, models.CorrectionStatusApproved, log.Status)
	require.NotNil(t, log.ResolvedBy)
	assert.Equal(t, "admin-1", log.ResolvedBy.ID)
	assert.Equal(t, "officer-1", log.RequestedBy.ID)
	assert.Equal(t, "Patrol", log.Previous().Abstract)
	assert.Equal(t, "No incident", log.Previous().Details)

	var signature models.Signature
	require.NoError(t, json.Unmarshal(log.PreviousSignature, &signature))
	assert.Equal(t, "SI Rao", signature.OfficerName)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.corrections.WithLabelValues(operationResolve, OutcomeCommitted, "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.corrections.WithLabelValues(operationAmendmentRequest, OutcomeRejected, appErrors.ErrConflictingRequest.Code)))
}

func TestCorrectionServiceRejectLeavesDiaryUntouched(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	requested, err := f.svc.SubmitAmendmentRequest(ctx, f.proposal("typo in abstract"), f.officer)
	require.NoError(t, err)

	resolved, err := f.svc.ResolveRequest(ctx, f.resolve(requested, models.DecisionReject), f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.CorrectionStatusRejected, resolved.Status)
	assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
	assert.False(t, f.store.entries[f.entryID].IsCorrected)
	assert.Equal(t, 0, f.store.diaries[f.diaryID].CorrectionCount)
	assert.Empty(t, f.cache.keys)

	// A fresh request is allowed once the previous one is terminal.
	_, err = f.svc.SubmitAmendmentRequest(ctx, f.proposal("second try"), f.officer)
	require.NoError(t, err)
}

func TestCorrectionServiceDirectEdit(t *testing.T) {
	f := newCorrectionFixture(t)

	result, err := f.svc.SubmitDirectEdit(context.Background(), f.proposal("officer misfiled details"), f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.CorrectionStatusApproved, result.Status)
	assert.NotEmpty(t, result.CorrectionDocID)

	entry := f.store.entries[f.entryID]
	assert.Equal(t, "Patrol Report", entry.Abstract)
	assert.True(t, entry.IsCorrected)

	log := f.store.logs[result.CorrectionLogID]
	assert.Equal(t, 1, log.Sequence)
	assert.Equal(t, models.CorrectionKindEdit, log.Kind)
	require.NotNil(t, log.ResolvedBy)
	assert.Equal(t, "admin-1", log.ResolvedBy.ID)
	require.NotNil(t, log.ResolvedAt)
	assert.Equal(t, f.now, *log.ResolvedAt)
	assert.Equal(t, []string{DiaryCacheKey(f.diaryID)}, f.cache.keys)
}

func TestCorrectionServiceDirectEditRequiresAdmin(t *testing.T) {
	f := newCorrectionFixture(t)

	_, err := f.svc.SubmitDirectEdit(context.Background(), f.proposal("officer misfiled details"), f.officer)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.SubmitDirectEdit(context.Background(), f.proposal("officer misfiled details"), nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCorrectionServiceDirectEditBlockedByPendingRequest(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitAmendmentRequest(ctx, f.proposal("typo in abstract"), f.officer)
	require.NoError(t, err)

	_, err = f.svc.SubmitDirectEdit(ctx, f.proposal("admin override"), f.admin)
	require.ErrorIs(t, err, appErrors.ErrConflictingRequest)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
}

func TestCorrectionServiceWindowBoundary(t *testing.T) {
	cases := []struct {
		name    string
		age     time.Duration
		expired bool
	}{
		{name: "just inside", age: 33*time.Hour + 59*time.Minute},
		{name: "exactly at window", age: 34 * time.Hour},
		{name: "just outside", age: 34*time.Hour + time.Minute, expired: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCorrectionFixture(t)
			f.now = diaryCreatedAt.Add(tc.age)

			_, directErr := f.svc.SubmitDirectEdit(context.Background(), f.proposal("late correction"), f.admin)
			g := newCorrectionFixture(t)
			g.now = diaryCreatedAt.Add(tc.age)
			_, requestErr := g.svc.SubmitAmendmentRequest(context.Background(), g.proposal("late correction"), g.officer)

			if tc.expired {
				require.ErrorIs(t, directErr, appErrors.ErrWindowExpired)
				require.ErrorIs(t, requestErr, appErrors.ErrWindowExpired)
				assert.Empty(t, f.store.ledgers)
				assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
				return
			}
			require.NoError(t, directErr)
			require.NoError(t, requestErr)
		})
	}
}

func TestCorrectionServiceApproveAfterWindowStillApplies(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	requested, err := f.svc.SubmitAmendmentRequest(ctx, f.proposal("typo in abstract"), f.officer)
	require.NoError(t, err)

	f.now = diaryCreatedAt.Add(72 * time.Hour)
	_, err = f.svc.ResolveRequest(ctx, f.resolve(requested, models.DecisionApprove), f.admin)
	require.NoError(t, err)
	assert.Equal(t, "Patrol Report", f.store.entries[f.entryID].Abstract)
}

func TestCorrectionServiceValidation(t *testing.T) {
	f := newCorrectionFixture(t)

	cases := map[string]func(req *dto.CorrectionRequest){
		"short reason":      func(req *dto.CorrectionRequest) { req.Reason = " fix " },
		"blank abstract":    func(req *dto.CorrectionRequest) { req.NewData.Abstract = "   " },
		"missing details":   func(req *dto.CorrectionRequest) { req.NewData.Details = "" },
		"unknown kind":      func(req *dto.CorrectionRequest) { req.Kind = "RENUMBER" },
		"malformed diary":   func(req *dto.CorrectionRequest) { req.DailyGDID = "diary-1" },
		"missing entry ref": func(req *dto.CorrectionRequest) { req.OriginalEntryID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := f.proposal("typo in abstract")
			mutate(&req)
			_, err := f.svc.SubmitAmendmentRequest(context.Background(), req, f.officer)
			require.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, f.store.logs)
}

func TestCorrectionServiceNotFound(t *testing.T) {
	f := newCorrectionFixture(t)

	req := f.proposal("typo in abstract")
	req.DailyGDID = uuid.NewString()
	_, err := f.svc.SubmitAmendmentRequest(context.Background(), req, f.officer)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	req = f.proposal("typo in abstract")
	req.OriginalEntryID = uuid.NewString()
	_, err = f.svc.SubmitAmendmentRequest(context.Background(), req, f.officer)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, f.store.ledgers)
}

func TestCorrectionServiceTransactionFailureIsAtomic(t *testing.T) {
	f := newCorrectionFixture(t)
	f.store.failCommit = repository.ErrSerialization

	_, err := f.svc.SubmitDirectEdit(context.Background(), f.proposal("officer misfiled details"), f.admin)
	require.ErrorIs(t, err, appErrors.ErrTransactionFailed)
	assert.True(t, appErrors.IsRetryable(err))
	assert.ErrorIs(t, err, repository.ErrSerialization)

	assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
	assert.Empty(t, f.store.ledgers)
	assert.Empty(t, f.store.logs)
	assert.Equal(t, 0, f.store.diaries[f.diaryID].CorrectionCount)
	assert.Empty(t, f.cache.keys)
}

func TestCorrectionServiceResolveRejectsMismatchedIdentifiers(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	requested, err := f.svc.SubmitAmendmentRequest(ctx, f.proposal("typo in abstract"), f.officer)
	require.NoError(t, err)

	req := f.resolve(requested, models.DecisionApprove)
	req.OriginalEntryID = uuid.NewString()
	_, err = f.svc.ResolveRequest(ctx, req, f.admin)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	req = f.resolve(requested, models.DecisionApprove)
	req.LogID = uuid.NewString()
	_, err = f.svc.ResolveRequest(ctx, req, f.admin)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.ResolveRequest(ctx, f.resolve(requested, models.DecisionApprove), f.officer)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.Equal(t, models.CorrectionStatusPending, f.store.logs[requested.CorrectionLogID].Status)
}

func TestCorrectionServiceSequencesAreDense(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.SubmitDirectEdit(ctx, f.proposal("successive fixes"), f.admin)
		require.NoError(t, err)
	}
	ledger, err := f.svc.GetLedgerByDiary(ctx, f.diaryID)
	require.NoError(t, err)
	require.Len(t, ledger.History, 3)
	for i, log := range ledger.History {
		assert.Equal(t, i+1, log.Sequence)
	}
	assert.Equal(t, 3, f.store.diaries[f.diaryID].CorrectionCount)
}

func TestCorrectionServiceListLogsScopesOfficers(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListLogs(ctx, dto.CorrectionQuery{RequestedBy: "someone-else"}, f.officer)
	require.NoError(t, err)
	assert.Equal(t, "officer-1", f.reader.filter.RequestedBy)

	_, err = f.svc.ListLogs(ctx, dto.CorrectionQuery{RequestedBy: "someone-else", StationID: " PS-01 "}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", f.reader.filter.RequestedBy)
	assert.Equal(t, "PS-01", f.reader.filter.StationID)

	_, err = f.svc.GetLedger(ctx, uuid.NewString())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCorrectionServiceRejectsMalformedIdentifiers(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetLedger(ctx, "abc")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.GetLedgerByDiary(ctx, "abc")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.ListLogs(ctx, dto.CorrectionQuery{DiaryID: "abc"}, f.admin)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	_, err = f.svc.ListLogs(ctx, dto.CorrectionQuery{DiaryID: f.diaryID}, f.admin)
	require.NoError(t, err)
}

func TestCorrectionServiceUniqueViolationOnAppendIsConflict(t *testing.T) {
	f := newCorrectionFixture(t)
	f.store.appendErr = fmt.Errorf("append correction log: %w", repository.ErrPendingExists)

	_, err := f.svc.SubmitDirectEdit(context.Background(), f.proposal("officer misfiled details"), f.admin)
	require.ErrorIs(t, err, appErrors.ErrConflictingRequest)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.False(t, appErrors.IsRetryable(err))

	assert.Equal(t, "Patrol", f.store.entries[f.entryID].Abstract)
	assert.Empty(t, f.store.logs)
	assert.Equal(t, 0, f.store.diaries[f.diaryID].CorrectionCount)
	assert.Empty(t, f.cache.keys)
}
