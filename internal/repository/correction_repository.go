package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gd-diary-api/internal/models"
)

// CorrectionRepository serves audit reads over correction ledgers. Writes go through UnitOfWork.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// GetLedger returns a ledger with its history ordered by sequence.
func (r *CorrectionRepository) GetLedger(ctx context.Context, ledgerID string) (*models.CorrectionLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM correction_ledgers WHERE id = $1`
	var ledger models.CorrectionLedger
	if err := r.db.GetContext(ctx, &ledger, query, ledgerID); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

// GetLedgerByDiary returns the ledger of a diary, or sql.ErrNoRows if it was never corrected.
func (r *CorrectionRepository) GetLedgerByDiary(ctx context.Context, diaryID string) (*models.CorrectionLedger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM correction_ledgers WHERE diary_id = $1`
	var ledger models.CorrectionLedger
	if err := r.db.GetContext(ctx, &ledger, query, diaryID); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, &ledger); err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *CorrectionRepository) loadHistory(ctx context.Context, ledger *models.CorrectionLedger) error {
	query := `SELECT ` + logColumns + ` FROM correction_logs WHERE ledger_id = $1 ORDER BY sequence ASC`
	history := make([]models.CorrectionLog, 0)
	if err := r.db.SelectContext(ctx, &history, query, ledger.ID); err != nil {
		return fmt.Errorf("load ledger history: %w", err)
	}
	ledger.History = history
	return nil
}

// ListLogs returns correction logs matching the filter, latest first.
func (r *CorrectionRepository) ListLogs(ctx context.Context, filter models.CorrectionLogFilter) ([]models.CorrectionLog, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT l.id, l.ledger_id, l.sequence, l.original_entry_id, l.entry_no, l.kind, l.status,
       l.previous_abstract, l.previous_details, l.previous_signature, l.new_abstract, l.new_details, l.reason,
       l.requested_by, l.requested_by_id, l.resolved_by, l.resolved_by_id, l.resolved_at, l.created_at
	FROM correction_logs l
	JOIN correction_ledgers g ON g.id = l.ledger_id`)

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("l.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("l.requested_by_id = $%d", len(args)))
	}
	if filter.StationID != "" {
		args = append(args, filter.StationID)
		conditions = append(conditions, fmt.Sprintf("g.station_id = $%d", len(args)))
	}
	if filter.DiaryID != "" {
		args = append(args, filter.DiaryID)
		conditions = append(conditions, fmt.Sprintf("g.diary_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY l.created_at DESC, l.sequence DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	logs := make([]models.CorrectionLog, 0)
	if err := r.db.SelectContext(ctx, &logs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list correction logs: %w", err)
	}
	return logs, nil
}
