package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeSessionChanged = "identity.session_changed"

// SessionChangedEvent is emitted by the identity provider whenever the signed-in
// user changes. Seq increases monotonically per provider.
type SessionChangedEvent struct {
	BaseEvent
	Seq    uint64 `json:"seq"`
	Kind   string `json:"kind"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func NewSessionChangedEvent(seq uint64, kind, userID, email string) *SessionChangedEvent {
	return &SessionChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"seq":     seq,
				"kind":    kind,
				"user_id": userID,
			},
		},
		Seq:    seq,
		Kind:   kind,
		UserID: userID,
		Email:  email,
	}
}
