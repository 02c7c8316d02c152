package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeProfileCreated = "profile.created"

type ProfileCreatedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	EmployeeID string `json:"employee_id"`
	Role       string `json:"role"`
}

func NewProfileCreatedEvent(userID, employeeID, role string) *ProfileCreatedEvent {
	return &ProfileCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeProfileCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":     userID,
				"employee_id": employeeID,
				"role":        role,
			},
		},
		UserID:     userID,
		EmployeeID: employeeID,
		Role:       role,
	}
}
