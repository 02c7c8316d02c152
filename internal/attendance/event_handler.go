package attendance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	"github.com/frahmantamala/employee-attendance/internal/core/events"
)

type Invalidator interface {
	InvalidateDay(ctx context.Context, date calendar.Day) error
	InvalidateRoster(ctx context.Context) error
}

// EventHandler keeps cached manager aggregates in step with attendance and
// profile writes.
type EventHandler struct {
	invalidator Invalidator
	logger      *slog.Logger
}

func NewEventHandler(invalidator Invalidator, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		invalidator: invalidator,
		logger:      logger,
	}
}

func (h *EventHandler) HandleAttendanceChanged(ctx context.Context, event events.Event) error {
	var date string
	switch e := event.(type) {
	case *events.AttendanceCheckedInEvent:
		date = e.Date
	case *events.AttendanceCheckedOutEvent:
		date = e.Date
	default:
		h.logger.Error("invalid event type for attendance handler", "event_type", event.EventType())
		return fmt.Errorf("expected attendance event, got %T", event)
	}

	day, err := calendar.ParseDay(date)
	if err != nil {
		return err
	}

	if err := h.invalidator.InvalidateDay(ctx, day); err != nil {
		h.logger.Warn("failed to invalidate cached aggregates", "error", err, "date", date,
			"event_id", event.EventID(), "trace_id", internal.TraceIDFromContext(ctx))
		return err
	}

	h.logger.Debug("cached aggregates invalidated", "date", date, "event_type", event.EventType(),
		"user_id", internal.UserIDFromContext(ctx), "trace_id", internal.TraceIDFromContext(ctx))
	return nil
}

func (h *EventHandler) HandleProfileCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ProfileCreatedEvent)
	if !ok {
		h.logger.Error("invalid event type for profile handler", "event_type", event.EventType())
		return fmt.Errorf("expected profile event, got %T", event)
	}

	if err := h.invalidator.InvalidateRoster(ctx); err != nil {
		h.logger.Warn("failed to invalidate cached org days", "error", err,
			"user_id", e.UserID, "trace_id", internal.TraceIDFromContext(ctx))
		return err
	}

	h.logger.Debug("cached org days invalidated", "user_id", e.UserID)
	return nil
}

// RegisterEventHandlers subscribes to attendance and profile events and
// returns a func that removes the subscriptions.
func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) func() {
	unsubIn := eventBus.Subscribe(events.EventTypeAttendanceCheckedIn, h.HandleAttendanceChanged)
	unsubOut := eventBus.Subscribe(events.EventTypeAttendanceCheckedOut, h.HandleAttendanceChanged)
	unsubProfile := eventBus.Subscribe(events.EventTypeProfileCreated, h.HandleProfileCreated)

	h.logger.Info("attendance event handlers registered",
		"handlers", []string{events.EventTypeAttendanceCheckedIn, events.EventTypeAttendanceCheckedOut, events.EventTypeProfileCreated})

	return func() {
		unsubIn()
		unsubOut()
		unsubProfile()
	}
}
