package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gd-diary-api/internal/models"
)

var logRowColumns = []string{"id", "ledger_id", "sequence", "original_entry_id", "entry_no", "kind", "status",
	"previous_abstract", "previous_details", "previous_signature", "new_abstract", "new_details", "reason",
	"requested_by", "requested_by_id", "resolved_by", "resolved_by_id", "resolved_at", "created_at"}

func TestCorrectionRepositoryGetLedgerWithHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM correction_ledgers WHERE id = $1")).
		WithArgs("ledger-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "diary_id", "station_id", "diary_date", "created_at"}).
			AddRow("ledger-1", "diary-1", "PS-01", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM correction_logs WHERE ledger_id = $1 ORDER BY sequence ASC")).
		WithArgs("ledger-1").
		WillReturnRows(sqlmock.NewRows(logRowColumns).
			AddRow("log-1", "ledger-1", 1, "entry-1", 1, "EDIT", "REJECTED", "Patrol", "No incident", []byte(`{"officerId":"officer-1"}`),
				"Patrol Report", "Minor", "typo fix", []byte(`{"id":"officer-1","name":"SI Rao"}`), "officer-1",
				[]byte(`{"id":"admin-1","name":"Insp Das"}`), "admin-1", now, now).
			AddRow("log-2", "ledger-1", 2, "entry-1", 1, "EDIT", "PENDING", "Patrol", "No incident", []byte(`{}`),
				"Patrol Report", "Minor incident noted", "second try", []byte(`{"id":"officer-1","name":"SI Rao"}`), "officer-1",
				nil, nil, nil, now))

	ledger, err := repo.GetLedger(context.Background(), "ledger-1")
	require.NoError(t, err)
	require.Len(t, ledger.History, 2)
	first, second := ledger.History[0], ledger.History[1]
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, "SI Rao", first.RequestedBy.Name)
	require.NotNil(t, first.ResolvedBy)
	assert.Equal(t, "admin-1", first.ResolvedBy.ID)
	assert.Equal(t, models.CorrectionStatusPending, second.Status)
	assert.Nil(t, second.ResolvedBy)
	assert.Nil(t, second.ResolvedAt)
}

func TestCorrectionRepositoryGetLedgerByDiaryMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM correction_ledgers WHERE diary_id = $1")).
		WithArgs("diary-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetLedgerByDiary(context.Background(), "diary-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCorrectionRepositoryListLogsFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectionRepository(db)

	mock.ExpectQuery(`l\.status IN \(\$1,\$2\) AND l\.requested_by_id = \$3 AND g\.station_id = \$4 .* LIMIT 50 OFFSET 0`).
		WithArgs("PENDING", "APPROVED", "officer-1", "PS-01").
		WillReturnRows(sqlmock.NewRows(logRowColumns))

	logs, err := repo.ListLogs(context.Background(), models.CorrectionLogFilter{
		Status:      []models.CorrectionStatus{models.CorrectionStatusPending, models.CorrectionStatusApproved},
		RequestedBy: "officer-1",
		StationID:   "PS-01",
		Limit:       500,
	})
	require.NoError(t, err)
	assert.Empty(t, logs)
	require.NoError(t, mock.ExpectationsWereMet())
}
