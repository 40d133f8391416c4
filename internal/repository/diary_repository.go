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

const diaryDateLayout = "2006-01-02"

const diaryColumns = `id, station_id, division, diary_date, last_entry_no, page_serial_no,
       has_corrections, correction_count, created_by, created_at, updated_at`

const entryColumns = `id, diary_id, entry_no, abstract, details, is_corrected,
       signed_by_id, signed_by_name, signed_rank, signed_force_no, signed_station, signed_at, created_at`

// DiaryRepository persists diary documents and their entries.
type DiaryRepository struct {
	db *sqlx.DB
}

// NewDiaryRepository constructs the repository.
func NewDiaryRepository(db *sqlx.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// Create inserts a new diary. A second diary for the same station and date fails with ErrDuplicate.
func (r *DiaryRepository) Create(ctx context.Context, diary *models.DiaryDocument) error {
	if diary.ID == "" {
		diary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if diary.CreatedAt.IsZero() {
		diary.CreatedAt = now
	}
	diary.UpdatedAt = diary.CreatedAt
	const query = `INSERT INTO diaries
	(id, station_id, division, diary_date, last_entry_no, page_serial_no, has_corrections, correction_count, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, 0, 0, FALSE, 0, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		diary.ID,
		diary.StationID,
		diary.Division,
		diary.DiaryDate.Format(diaryDateLayout),
		diary.CreatedBy,
		diary.CreatedAt,
		diary.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create diary: %w", classifyPQError(err))
	}
	return nil
}

// GetByID fetches a diary without its entries.
func (r *DiaryRepository) GetByID(ctx context.Context, id string) (*models.DiaryDocument, error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE id = $1`
	var diary models.DiaryDocument
	if err := r.db.GetContext(ctx, &diary, query, id); err != nil {
		return nil, err
	}
	return &diary, nil
}

// GetByStationDate fetches the diary of a station for a calendar day.
func (r *DiaryRepository) GetByStationDate(ctx context.Context, stationID string, date time.Time) (*models.DiaryDocument, error) {
	query := `SELECT ` + diaryColumns + ` FROM diaries WHERE station_id = $1 AND diary_date = $2`
	var diary models.DiaryDocument
	if err := r.db.GetContext(ctx, &diary, query, stationID, date.Format(diaryDateLayout)); err != nil {
		return nil, err
	}
	return &diary, nil
}

// ListEntries returns the entries of a diary in filing order.
func (r *DiaryRepository) ListEntries(ctx context.Context, diaryID string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM diary_entries WHERE diary_id = $1 ORDER BY entry_no ASC`
	entries := make([]models.Entry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, diaryID); err != nil {
		return nil, fmt.Errorf("list diary entries: %w", err)
	}
	return entries, nil
}

// AppendEntry files a new entry, numbering it from the diary counter under a row lock.
func (r *DiaryRepository) AppendEntry(ctx context.Context, entry *models.Entry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lastEntryNo int
	const lockQuery = `SELECT last_entry_no FROM diaries WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &lastEntryNo, lockQuery, entry.DiaryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock diary counter: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.EntryNo = lastEntryNo + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const counterQuery = `UPDATE diaries SET last_entry_no = $1, updated_at = $2 WHERE id = $3`
	if _, err = tx.ExecContext(ctx, counterQuery, entry.EntryNo, entry.CreatedAt, entry.DiaryID); err != nil {
		return fmt.Errorf("advance diary counter: %w", err)
	}

	const insertQuery = `INSERT INTO diary_entries
	(id, diary_id, entry_no, abstract, details, is_corrected, signed_by_id, signed_by_name, signed_rank, signed_force_no, signed_station, signed_at, created_at)
	VALUES (:id, :diary_id, :entry_no, :abstract, :details, :is_corrected, :signed_by_id, :signed_by_name, :signed_rank, :signed_force_no, :signed_station, :signed_at, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, entry); err != nil {
		return fmt.Errorf("insert diary entry: %w", classifyPQError(err))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append entry: %w", err)
	}
	return nil
}

// LockSerial sets the page serial number only while it is still unset.
// It returns sql.ErrNoRows for an unknown diary and ErrAlreadyLocked once a value is present.
func (r *DiaryRepository) LockSerial(ctx context.Context, diaryID string, serialNo int) error {
	const query = `UPDATE diaries SET page_serial_no = $1, updated_at = $2 WHERE id = $3 AND page_serial_no = $4`
	result, err := r.db.ExecContext(ctx, query, serialNo, time.Now().UTC(), diaryID, models.UnsetPageSerialNo)
	if err != nil {
		return fmt.Errorf("lock serial number: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check serial lock rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM diaries WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, existsQuery, diaryID); err != nil {
		return fmt.Errorf("check diary exists: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrAlreadyLocked
}
