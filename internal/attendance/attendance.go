package attendance

import (
	"errors"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	attendanceDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/attendance"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
	StatusLate      Status = "late"
	StatusHalfDay   Status = "half-day"
	StatusNotMarked Status = "not-marked"
)

// Valid reports whether s may be stored on a record. StatusNotMarked is
// display-only.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusHalfDay:
		return true
	}
	return false
}

// Attended reports whether the status counts towards the present headcount.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

var (
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrNoActiveCheckIn  = errors.New("please check in first")
	ErrInvalidCheckOut  = errors.New("check-out time is before check-in time")

	// store-level errors
	ErrDuplicateRecord  = errors.New("attendance record already exists for user and date")
	ErrNotFound         = errors.New("attendance record not found")
	ErrSessionClosed    = errors.New("attendance session already closed")
	ErrStoreUnavailable = errors.New("attendance store unavailable")
)

const (
	DefaultLateCutoffHour   = 9
	DefaultHalfDayThreshold = 4 * time.Hour
)

// Rules are the business rules used to derive a record's status.
type Rules struct {
	// LateCutoffHour is exclusive: a check-in during this hour is on time.
	LateCutoffHour   int
	HalfDayThreshold time.Duration
	Location         *time.Location
}

func DefaultRules() Rules {
	return Rules{
		LateCutoffHour:   DefaultLateCutoffHour,
		HalfDayThreshold: DefaultHalfDayThreshold,
		Location:         time.Local,
	}
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// DateOf returns the business day now falls on.
func (r Rules) DateOf(now time.Time) calendar.Day {
	return calendar.DayOf(now, r.location())
}

func (r Rules) CheckInStatus(now time.Time) Status {
	if now.In(r.location()).Hour() > r.LateCutoffHour {
		return StatusLate
	}
	return StatusPresent
}

// CheckOutStatus revises the check-in status once the session length is known.
// Short sessions become half days; anything else keeps its check-in status.
func (r Rules) CheckOutStatus(checkIn Status, elapsedHours float64) Status {
	if elapsedHours < r.HalfDayThreshold.Hours() {
		return StatusHalfDay
	}
	return checkIn
}

// ElapsedHours is the untruncated number of hours between in and out.
func ElapsedHours(in, out time.Time) float64 {
	return out.Sub(in).Hours()
}

type Record struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Date         calendar.Day `json:"date"`
	CheckInTime  *time.Time   `json:"check_in_time"`
	CheckOutTime *time.Time   `json:"check_out_time"`
	Status       Status       `json:"status"`
	TotalHours   float64      `json:"total_hours"`
	Notes        *string      `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RecordWithProfile is a record joined with its owner. Profile is nil when the
// owner has no profile row.
type RecordWithProfile struct {
	*Record
	Profile *profile.Profile `json:"profile"`
}

// NewCheckIn builds the record created by a check-in at now.
func NewCheckIn(userID string, now time.Time, rules Rules) *Record {
	checkIn := now
	return &Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        rules.DateOf(now),
		CheckInTime: &checkIn,
		Status:      rules.CheckInStatus(now),
		TotalHours:  0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOpen reports whether the record has a check-in awaiting its check-out.
func (r *Record) IsOpen() bool {
	return r.CheckInTime != nil && r.CheckOutTime == nil
}

func ToDataModel(r *Record) *attendanceDatamodel.Attendance {
	return &attendanceDatamodel.Attendance{
		ID:           r.ID,
		UserID:       r.UserID,
		Date:         r.Date,
		CheckInTime:  r.CheckInTime,
		CheckOutTime: r.CheckOutTime,
		Status:       string(r.Status),
		TotalHours:   r.TotalHours,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func FromDataModel(a *attendanceDatamodel.Attendance) *Record {
	if a == nil {
		return nil
	}
	return &Record{
		ID:           a.ID,
		UserID:       a.UserID,
		Date:         a.Date,
		CheckInTime:  a.CheckInTime,
		CheckOutTime: a.CheckOutTime,
		Status:       Status(a.Status),
		TotalHours:   a.TotalHours,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*attendanceDatamodel.Attendance) []*Record {
	result := make([]*Record, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

// FromDataModelWithProfile keeps the preloaded owner of each row.
func FromDataModelWithProfile(rows []*attendanceDatamodel.Attendance) []*RecordWithProfile {
	result := make([]*RecordWithProfile, len(rows))
	for i, row := range rows {
		result[i] = &RecordWithProfile{
			Record:  FromDataModel(row),
			Profile: profile.FromDataModel(row.Profile),
		}
	}
	return result
}
