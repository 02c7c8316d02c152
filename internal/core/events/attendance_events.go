package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAttendanceCheckedIn  = "attendance.checked_in"
	EventTypeAttendanceCheckedOut = "attendance.checked_out"
)

type AttendanceCheckedInEvent struct {
	BaseEvent
	RecordID string    `json:"record_id"`
	UserID   string    `json:"user_id"`
	Date     string    `json:"date"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

func NewAttendanceCheckedInEvent(recordID, userID, date, status string, at time.Time) *AttendanceCheckedInEvent {
	return &AttendanceCheckedInEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAttendanceCheckedIn,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"record_id": recordID,
				"user_id":   userID,
				"date":      date,
				"status":    status,
			},
		},
		RecordID: recordID,
		UserID:   userID,
		Date:     date,
		Status:   status,
		At:       at,
	}
}

type AttendanceCheckedOutEvent struct {
	BaseEvent
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	TotalHours float64   `json:"total_hours"`
	At         time.Time `json:"at"`
}

func NewAttendanceCheckedOutEvent(recordID, userID, date, status string, totalHours float64, at time.Time) *AttendanceCheckedOutEvent {
	return &AttendanceCheckedOutEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAttendanceCheckedOut,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"record_id":   recordID,
				"user_id":     userID,
				"date":        date,
				"status":      status,
				"total_hours": totalHours,
			},
		},
		RecordID:   recordID,
		UserID:     userID,
		Date:       date,
		Status:     status,
		TotalHours: totalHours,
		At:         at,
	}
}
