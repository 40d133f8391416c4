package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gd-diary-api/internal/models"
)

const ledgerColumns = `id, diary_id, station_id, diary_date, created_at`

const logColumns = `id, ledger_id, sequence, original_entry_id, entry_no, kind, status,
       previous_abstract, previous_details, previous_signature, new_abstract, new_details, reason,
       requested_by, requested_by_id, resolved_by, resolved_by_id, resolved_at, created_at`

// DefaultTxTimeout bounds a correction transaction when no timeout is configured.
const DefaultTxTimeout = 10 * time.Second

// CorrectionTx is the set of reads and writes a correction may perform atomically.
type CorrectionTx interface {
	LockDiary(ctx context.Context, diaryID string) (*models.DiaryDocument, error)
	GetEntry(ctx context.Context, diaryID, entryID string) (*models.Entry, error)
	EnsureLedger(ctx context.Context, diary *models.DiaryDocument, at time.Time) (*models.CorrectionLedger, error)
	GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error)
	HasPending(ctx context.Context, ledgerID, entryID string) (bool, error)
	AppendLog(ctx context.Context, log *models.CorrectionLog) error
	LockLog(ctx context.Context, logID string) (*models.CorrectionLog, error)
	ResolveLog(ctx context.Context, params ResolveLogParams) error
	ApplyCorrection(ctx context.Context, diaryID, entryID string, content models.EntryContent, at time.Time) error
}

// ResolveLogParams groups the columns written when a pending request is decided.
type ResolveLogParams struct {
	LogID      string
	Status     models.CorrectionStatus
	ResolvedBy models.Identity
	ResolvedAt time.Time
}

// UnitOfWork runs correction steps inside one serializable transaction.
type UnitOfWork struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUnitOfWork constructs a unit of work bounded by timeout.
func NewUnitOfWork(db *sqlx.DB, timeout time.Duration) *UnitOfWork {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return &UnitOfWork{db: db, timeout: timeout}
}

// WithinTx commits when fn succeeds and rolls back otherwise. Nothing fn wrote survives a failure.
// fn must issue every statement on the ctx it is given; that ctx carries the transaction deadline.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx CorrectionTx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin correction tx: %w", classifyPQError(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &sqlCorrectionTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit correction tx: %w", classifyPQError(err))
	}
	return nil
}

type sqlCorrectionTx struct {
	tx *sqlx.Tx
}

func (t *sqlCorrectionTx) LockDiary(ctx context.Context, diaryID string) (*models.DiaryDocument, error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE id = $1 FOR UPDATE`
	var diary models.DiaryDocument
	if err := t.tx.GetContext(ctx, &diary, query, diaryID); err != nil {
		return nil, passNoRows(err, "lock diary")
	}
	return &diary, nil
}

func (t *sqlCorrectionTx) GetEntry(ctx context.Context, diaryID, entryID string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM diary_entries WHERE id = $1 AND diary_id = $2`
	var entry models.Entry
	if err := t.tx.GetContext(ctx, &entry, query, entryID, diaryID); err != nil {
		return nil, passNoRows(err, "load entry")
	}
	return &entry, nil
}

// EnsureLedger creates the ledger of a diary on first use and returns it.
func (t *sqlCorrectionTx) EnsureLedger(ctx context.Context, diary *models.DiaryDocument, at time.Time) (*models.CorrectionLedger, error) {
	const insert = `INSERT INTO correction_ledgers (id, diary_id, station_id, diary_date, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (diary_id) DO NOTHING`
	if _, err := t.tx.ExecContext(ctx, insert,
		uuid.NewString(),
		diary.ID,
		diary.StationID,
		diary.DiaryDate.Format(diaryDateLayout),
		at,
	); err != nil {
		return nil, fmt.Errorf("ensure ledger: %w", classifyPQError(err))
	}

	query := `SELECT ` + ledgerColumns + ` FROM correction_ledgers WHERE diary_id = $1`
	var ledger models.CorrectionLedger
	if err := t.tx.GetContext(ctx, &ledger, query, diary.ID); err != nil {
		return nil, fmt.Errorf("load ledger: %w", classifyPQError(err))
	}
	return &ledger, nil
}

func (t *sqlCorrectionTx) GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM correction_ledgers WHERE id = $1`
	var ledger models.CorrectionLedger
	if err := t.tx.GetContext(ctx, &ledger, query, ledgerID); err != nil {
		return nil, passNoRows(err, "load ledger")
	}
	return &ledger, nil
}

func (t *sqlCorrectionTx) HasPending(ctx context.Context, ledgerID, entryID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM correction_logs WHERE ledger_id = $1 AND original_entry_id = $2 AND status = $3
)`
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, ledgerID, entryID, models.CorrectionStatusPending); err != nil {
		return false, fmt.Errorf("check pending corrections: %w", classifyPQError(err))
	}
	return exists, nil
}

// AppendLog inserts the next log of a ledger. Sequence numbers are dense per ledger.
func (t *sqlCorrectionTx) AppendLog(ctx context.Context, log *models.CorrectionLog) error {
	const nextSeq = `SELECT COALESCE(MAX(sequence), 0) + 1 FROM correction_logs WHERE ledger_id = $1`
	if err := t.tx.GetContext(ctx, &log.Sequence, nextSeq, log.LedgerID); err != nil {
		return fmt.Errorf("next log sequence: %w", classifyPQError(err))
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	log.RequestedByID = log.RequestedBy.ID
	if log.ResolvedBy != nil {
		id := log.ResolvedBy.ID
		log.ResolvedByID = &id
	}
	if len(log.PreviousSignature) == 0 {
		log.PreviousSignature = []byte("{}")
	}

	const insert = `INSERT INTO correction_logs
	(id, ledger_id, sequence, original_entry_id, entry_no, kind, status, previous_abstract, previous_details, previous_signature,
	 new_abstract, new_details, reason, requested_by, requested_by_id, resolved_by, resolved_by_id, resolved_at, created_at)
	VALUES (:id, :ledger_id, :sequence, :original_entry_id, :entry_no, :kind, :status, :previous_abstract, :previous_details, :previous_signature,
	 :new_abstract, :new_details, :reason, :requested_by, :requested_by_id, :resolved_by, :resolved_by_id, :resolved_at, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, insert, log); err != nil {
		return fmt.Errorf("append correction log: %w", classifyPQError(err))
	}
	return nil
}

func (t *sqlCorrectionTx) LockLog(ctx context.Context, logID string) (*models.CorrectionLog, error) {
	query := `SELECT ` + logColumns + ` FROM correction_logs WHERE id = $1 FOR UPDATE`
	var log models.CorrectionLog
	if err := t.tx.GetContext(ctx, &log, query, logID); err != nil {
		return nil, passNoRows(err, "lock correction log")
	}
	return &log, nil
}

// ResolveLog moves a PENDING log to its final status. It returns sql.ErrNoRows when the log is no longer pending.
func (t *sqlCorrectionTx) ResolveLog(ctx context.Context, params ResolveLogParams) error {
	const query = `UPDATE correction_logs
	SET status = $1, resolved_by = $2, resolved_by_id = $3, resolved_at = $4
	WHERE id = $5 AND status = $6`
	result, err := t.tx.ExecContext(ctx, query,
		params.Status,
		params.ResolvedBy,
		params.ResolvedBy.ID,
		params.ResolvedAt,
		params.LogID,
		models.CorrectionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("resolve correction log: %w", classifyPQError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyCorrection overwrites entry content and bumps the diary correction counters.
// Signature columns are left untouched.
func (t *sqlCorrectionTx) ApplyCorrection(ctx context.Context, diaryID, entryID string, content models.EntryContent, at time.Time) error {
	const entryQuery = `UPDATE diary_entries SET abstract = $1, details = $2, is_corrected = TRUE
	WHERE id = $3 AND diary_id = $4`
	result, err := t.tx.ExecContext(ctx, entryQuery, content.Abstract, content.Details, entryID, diaryID)
	if err != nil {
		return fmt.Errorf("apply correction to entry: %w", classifyPQError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check entry rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	const diaryQuery = `UPDATE diaries SET has_corrections = TRUE, correction_count = correction_count + 1, updated_at = $1
	WHERE id = $2`
	if _, err := t.tx.ExecContext(ctx, diaryQuery, at, diaryID); err != nil {
		return fmt.Errorf("bump diary corrections: %w", classifyPQError(err))
	}
	return nil
}

func passNoRows(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return fmt.Errorf("%s: %w", op, classifyPQError(err))
}
