package models

import "time"

// DiaryDocument is the General Diary of one station for one calendar day.
type DiaryDocument struct {
	ID              string    `db:"id" json:"id"`
	StationID       string    `db:"station_id" json:"stationId"`
	Division        string    `db:"division" json:"division"`
	DiaryDate       time.Time `db:"diary_date" json:"diaryDate"`
	LastEntryNo     int       `db:"last_entry_no" json:"lastEntryNo"`
	PageSerialNo    int       `db:"page_serial_no" json:"pageSerialNo"`
	HasCorrections  bool      `db:"has_corrections" json:"hasCorrections"`
	CorrectionCount int       `db:"correction_count" json:"correctionCount"`
	CreatedBy       string    `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
	Entries         []Entry   `db:"-" json:"entries"`
}

// SerialLocked reports whether the one-time page serial number has been set.
func (d *DiaryDocument) SerialLocked() bool {
	return d.PageSerialNo != UnsetPageSerialNo
}

// UnsetPageSerialNo marks a diary whose page serial number has not been locked yet.
const UnsetPageSerialNo = 0

// Signature is the signing officer captured when an entry is filed. It is never rewritten.
type Signature struct {
	OfficerID   string    `db:"signed_by_id" json:"officerId"`
	OfficerName string    `db:"signed_by_name" json:"officerName"`
	Rank        string    `db:"signed_rank" json:"rank"`
	ForceNumber string    `db:"signed_force_no" json:"forceNumber"`
	Station     string    `db:"signed_station" json:"station"`
	SignedAt    time.Time `db:"signed_at" json:"signedAt"`
}

// Entry is one occurrence record within a diary.
type Entry struct {
	ID          string    `db:"id" json:"id"`
	DiaryID     string    `db:"diary_id" json:"diaryId"`
	EntryNo     int       `db:"entry_no" json:"entryNo"`
	Abstract    string    `db:"abstract" json:"abstract"`
	Details     string    `db:"details" json:"details"`
	IsCorrected bool      `db:"is_corrected" json:"isCorrected"`
	Signature   `json:"signature"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Content returns the correctable part of the entry.
func (e *Entry) Content() EntryContent {
	return EntryContent{Abstract: e.Abstract, Details: e.Details}
}

// EntryContent is the text of an entry that corrections may replace.
type EntryContent struct {
	Abstract string `json:"abstract"`
	Details  string `json:"details"`
}

// NormalizeDiaryDate maps an instant to midnight of its calendar day in loc.
func NormalizeDiaryDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
