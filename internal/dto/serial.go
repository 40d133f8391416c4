package dto

// LockSerialRequest sets the page serial number of a station diary once.
type LockSerialRequest struct {
	StationID    string `json:"stationId" validate:"required,max=64"`
	PageSerialNo int    `json:"pageSerialNo" validate:"required,gt=0"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// LockSerialResult echoes the locked serial number.
type LockSerialResult struct {
	DiaryID      string `json:"diaryId"`
	PageSerialNo int    `json:"pageSerialNo"`
}
