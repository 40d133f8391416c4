package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CorrectionKind classifies what a correction does to an entry.
type CorrectionKind string

const (
	CorrectionKindEdit      CorrectionKind = "EDIT"
	CorrectionKindDelete    CorrectionKind = "DELETE"
	CorrectionKindLateEntry CorrectionKind = "LATE_ENTRY"
)

// Valid reports whether k is a known kind.
func (k CorrectionKind) Valid() bool {
	switch k {
	case CorrectionKindEdit, CorrectionKindDelete, CorrectionKindLateEntry:
		return true
	}
	return false
}

// CorrectionStatus captures the lifecycle of a correction log entry.
type CorrectionStatus string

const (
	CorrectionStatusPending  CorrectionStatus = "PENDING"
	CorrectionStatusApproved CorrectionStatus = "APPROVED"
	CorrectionStatusRejected CorrectionStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s CorrectionStatus) Terminal() bool {
	return s == CorrectionStatusApproved || s == CorrectionStatusRejected
}

// CorrectionDecision is the admin verdict on a pending request.
type CorrectionDecision string

const (
	DecisionApprove CorrectionDecision = "APPROVE"
	DecisionReject  CorrectionDecision = "REJECT"
)

// Outcome maps a decision onto the status it produces.
func (d CorrectionDecision) Outcome() (CorrectionStatus, bool) {
	switch d {
	case DecisionApprove:
		return CorrectionStatusApproved, true
	case DecisionReject:
		return CorrectionStatusRejected, true
	}
	return "", false
}

// CorrectionLedger is the audit container of one diary. Exactly one exists per diary once corrected.
type CorrectionLedger struct {
	ID        string          `db:"id" json:"id"`
	DiaryID   string          `db:"diary_id" json:"diaryId"`
	StationID string          `db:"station_id" json:"stationId"`
	DiaryDate time.Time       `db:"diary_date" json:"diaryDate"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	History   []CorrectionLog `db:"-" json:"history"`
}

// CorrectionLog records one correction attempt and its outcome.
type CorrectionLog struct {
	ID                string           `db:"id" json:"id"`
	LedgerID          string           `db:"ledger_id" json:"ledgerId"`
	Sequence          int              `db:"sequence" json:"sequence"`
	OriginalEntryID   string           `db:"original_entry_id" json:"originalEntryId"`
	EntryNo           int              `db:"entry_no" json:"entryNo"`
	Kind              CorrectionKind   `db:"kind" json:"kind"`
	Status            CorrectionStatus `db:"status" json:"status"`
	PreviousAbstract  string           `db:"previous_abstract" json:"-"`
	PreviousDetails   string           `db:"previous_details" json:"-"`
	PreviousSignature types.JSONText   `db:"previous_signature" json:"-"`
	NewAbstract       string           `db:"new_abstract" json:"-"`
	NewDetails        string           `db:"new_details" json:"-"`
	Reason            string           `db:"reason" json:"reason"`
	RequestedBy       Identity         `db:"requested_by" json:"requestedBy"`
	RequestedByID     string           `db:"requested_by_id" json:"-"`
	ResolvedBy        *Identity        `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedByID      *string          `db:"resolved_by_id" json:"-"`
	ResolvedAt        *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
}

// PreviousData is the entry state captured before the correction.
type PreviousData struct {
	Abstract  string         `json:"abstract"`
	Details   string         `json:"details"`
	Signature types.JSONText `json:"signature"`
}

// Previous returns the before snapshot.
func (l *CorrectionLog) Previous() PreviousData {
	return PreviousData{Abstract: l.PreviousAbstract, Details: l.PreviousDetails, Signature: l.PreviousSignature}
}

// Proposed returns the content the correction writes into the entry.
func (l *CorrectionLog) Proposed() EntryContent {
	return EntryContent{Abstract: l.NewAbstract, Details: l.NewDetails}
}

// MarshalJSON nests the snapshots as previousData/newData.
func (l CorrectionLog) MarshalJSON() ([]byte, error) {
	type alias CorrectionLog
	return json.Marshal(struct {
		alias
		PreviousData PreviousData `json:"previousData"`
		NewData      EntryContent `json:"newData"`
	}{alias: alias(l), PreviousData: l.Previous(), NewData: l.Proposed()})
}

// CorrectionLogFilter constrains audit queries over the ledger.
type CorrectionLogFilter struct {
	Status      []CorrectionStatus
	RequestedBy string
	StationID   string
	DiaryID     string
	Limit       int
	Offset      int
}
