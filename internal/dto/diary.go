package dto

// CreateDiaryRequest opens the diary of a station for one day.
type CreateDiaryRequest struct {
	StationID string `json:"stationId" validate:"required,max=64"`
	Division  string `json:"division" validate:"max=128"`
	// Date is YYYY-MM-DD in the diary timezone; empty means today.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// AddEntryRequest files a new occurrence entry.
type AddEntryRequest struct {
	Abstract string `json:"abstract" validate:"required,max=512"`
	Details  string `json:"details" validate:"required"`
}

// DiaryQuery looks a diary up by its natural key.
type DiaryQuery struct {
	StationID string `form:"stationId" validate:"required"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}
