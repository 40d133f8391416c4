package dto

import "github.com/noah-isme/gd-diary-api/internal/models"

// CorrectionData is the proposed replacement content of an entry.
type CorrectionData struct {
	Abstract string `json:"abstract" validate:"required,max=512"`
	Details  string `json:"details" validate:"required"`
}

// CorrectionRequest is shared by the direct edit and amendment request endpoints.
type CorrectionRequest struct {
	OriginalEntryID string                `json:"originalEntryId" validate:"required,uuid"`
	DailyGDID       string                `json:"dailyGDId" validate:"required,uuid"`
	NewData         CorrectionData        `json:"newData"`
	Reason          string                `json:"reason" validate:"required"`
	Kind            models.CorrectionKind `json:"kind" validate:"omitempty,oneof=EDIT DELETE LATE_ENTRY"`
}

// ResolveCorrectionRequest carries an admin decision on a pending request.
type ResolveCorrectionRequest struct {
	ContainerID     string                    `json:"containerId" validate:"required,uuid"`
	LogID           string                    `json:"logId" validate:"required,uuid"`
	DailyGDID       string                    `json:"dailyGDId" validate:"required,uuid"`
	OriginalEntryID string                    `json:"originalEntryId" validate:"required,uuid"`
	Action          models.CorrectionDecision `json:"action" validate:"required,oneof=APPROVE REJECT"`
}

// CorrectionResult identifies the ledger records written or resolved by an engine call.
type CorrectionResult struct {
	CorrectionDocID string                  `json:"correctionDocId"`
	CorrectionLogID string                  `json:"correctionLogId"`
	Status          models.CorrectionStatus `json:"status"`
}

// CorrectionQuery mirrors supported listing filters.
type CorrectionQuery struct {
	Status      []models.CorrectionStatus
	RequestedBy string
	StationID   string
	DiaryID     string
	Limit       int
	Offset      int
}
