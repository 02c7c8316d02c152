package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	attendanceDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/events"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/go-playground/validator/v10"
)

// SessionPatch is written by CheckOut.
type SessionPatch struct {
	CheckOutTime time.Time
	TotalHours   float64
	Status       Status
}

// RepositoryAPI is the record store. Date ranges are half-open [from, to).
type RepositoryAPI interface {
	// Insert returns ErrDuplicateRecord when (user, date) already exists.
	Insert(ctx context.Context, row *attendanceDatamodel.Attendance) error
	// CloseSession applies patch only while the row has no check-out. It
	// returns ErrSessionClosed when the row is already closed and ErrNotFound
	// when it is gone.
	CloseSession(ctx context.Context, id string, patch SessionPatch) (*attendanceDatamodel.Attendance, error)
	GetByUserAndDate(ctx context.Context, userID string, date calendar.Day) (*attendanceDatamodel.Attendance, error)
	ListByUserAndDateRange(ctx context.Context, userID string, from, to calendar.Day) ([]*attendanceDatamodel.Attendance, error)
	ListByDate(ctx context.Context, date calendar.Day) ([]*attendanceDatamodel.Attendance, error)
	ListByDateRange(ctx context.Context, from, to calendar.Day) ([]*attendanceDatamodel.Attendance, error)
	// ListByUser orders by date descending; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*attendanceDatamodel.Attendance, error)
	// ListWithProfiles returns every record with its owner, date descending.
	ListWithProfiles(ctx context.Context) ([]*attendanceDatamodel.Attendance, error)
}

type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]*profile.Profile, error)
}

// SummaryCache stores manager aggregates. Get reports false on a miss.
type SummaryCache interface {
	Get(ctx context.Context, key string, target interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type EventPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	profiles  ProfileLister
	rules     Rules
	cache     SummaryCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *slog.Logger

	// generation advances on every invalidation. A fill computed under an
	// older generation is removed again after it is written.
	generation atomic.Uint64
}

func NewService(repo RepositoryAPI, profiles ProfileLister, rules Rules, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		rules:    rules,
		validate: validator.New(),
		logger:   logger,
	}
}

// UseCache enables caching of manager aggregates.
func (s *Service) UseCache(cache SummaryCache) {
	s.cache = cache
}

// UsePublisher makes the service announce successful check-ins and check-outs.
func (s *Service) UsePublisher(publisher EventPublisher) {
	s.publisher = publisher
}

func (s *Service) Rules() Rules {
	return s.rules
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}

func (s *Service) CheckIn(ctx context.Context, userID string, now time.Time) (*Record, error) {
	rec := NewCheckIn(userID, now, s.rules)

	existing, err := s.repo.GetByUserAndDate(ctx, userID, rec.Date)
	switch {
	case err == nil && existing != nil:
		return nil, ErrAlreadyCheckedIn
	case err != nil && !errors.Is(err, ErrNotFound):
		s.logger.Error("failed to look up today's record", "error", err, "user_id", userID, "date", rec.Date)
		return nil, storeError("check in", err)
	}

	if err := s.repo.Insert(ctx, ToDataModel(rec)); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			s.logger.Info("concurrent check-in lost the insert", "user_id", userID, "date", rec.Date)
			return nil, ErrAlreadyCheckedIn
		}
		s.logger.Error("failed to insert attendance record", "error", err, "user_id", userID, "date", rec.Date)
		return nil, storeError("check in", err)
	}

	s.logger.Info("checked in", "user_id", userID, "date", rec.Date, "status", rec.Status)
	s.publish(ctx, events.NewAttendanceCheckedInEvent(rec.ID, userID, rec.Date.String(), string(rec.Status), now))
	return rec, nil
}

func (s *Service) CheckOut(ctx context.Context, userID string, now time.Time) (*Record, error) {
	date := s.rules.DateOf(now)

	row, err := s.repo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoActiveCheckIn
		}
		s.logger.Error("failed to look up today's record", "error", err, "user_id", userID, "date", date)
		return nil, storeError("check out", err)
	}

	rec := FromDataModel(row)
	if !rec.IsOpen() {
		return nil, ErrNoActiveCheckIn
	}
	if now.Before(*rec.CheckInTime) {
		return nil, ErrInvalidCheckOut
	}

	elapsed := ElapsedHours(*rec.CheckInTime, now)
	patch := SessionPatch{
		CheckOutTime: now,
		TotalHours:   elapsed,
		Status:       s.rules.CheckOutStatus(rec.Status, elapsed),
	}

	updated, err := s.repo.CloseSession(ctx, rec.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionClosed):
			return nil, ErrNoActiveCheckIn
		case errors.Is(err, ErrNotFound):
			return nil, err
		}
		s.logger.Error("failed to close attendance session", "error", err, "user_id", userID, "record_id", rec.ID)
		return nil, storeError("check out", err)
	}

	rec = FromDataModel(updated)
	s.logger.Info("checked out", "user_id", userID, "date", rec.Date, "status", rec.Status, "total_hours", rec.TotalHours)
	s.publish(ctx, events.NewAttendanceCheckedOutEvent(rec.ID, userID, rec.Date.String(), string(rec.Status), rec.TotalHours, now))
	return rec, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	// the write already succeeded; subscribers failing must not undo it
	if err := s.publisher.PublishSync(ctx, event); err != nil {
		s.logger.Warn("attendance event handler failed", "error", err, "event_type", event.EventType())
	}
}

func (s *Service) ClassifyToday(ctx context.Context, userID string, today calendar.Day) (*TodayStatus, error) {
	row, err := s.repo.GetByUserAndDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &TodayStatus{Date: today, Status: StatusNotMarked}, nil
		}
		s.logger.Error("failed to classify today", "error", err, "user_id", userID, "date", today)
		return nil, storeError("classify today", err)
	}

	return &TodayStatus{
		Date:         today,
		Status:       Status(row.Status),
		CheckInTime:  row.CheckInTime,
		CheckOutTime: row.CheckOutTime,
		TotalHours:   row.TotalHours,
	}, nil
}

// MonthlySummary summarizes the month containing day.
func (s *Service) MonthlySummary(ctx context.Context, userID string, day calendar.Day) (*MonthlySummaryResponse, error) {
	start, end := day.MonthBounds()

	rows, err := s.repo.ListByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		s.logger.Error("failed to list month records", "error", err, "user_id", userID, "month_start", start)
		return nil, storeError("monthly summary", err)
	}

	return &MonthlySummaryResponse{
		Month:          start.String()[:7],
		MonthStart:     start,
		MonthEnd:       end,
		MonthlySummary: SummarizeMonth(FromDataModelSlice(rows), start, end),
	}, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]*Record, error) {
	if err := s.validate.Struct(HistoryQuery{Limit: limit}); err != nil {
		return nil, fmt.Errorf("invalid history query: %w", err)
	}

	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err, "user_id", userID)
		return nil, storeError("history", err)
	}
	return FromDataModelSlice(rows), nil
}

const orgDayPrefix = "attendance:orgday:"

func orgDayKey(date calendar.Day) string {
	return orgDayPrefix + date.String()
}

func trendKey(today calendar.Day) string {
	return "attendance:trend:" + today.String()
}

// OrgDay summarizes the whole organization for date.
func (s *Service) OrgDay(ctx context.Context, date calendar.Day) (*OrgDaySummary, error) {
	var cached OrgDaySummary
	if s.cacheGet(ctx, orgDayKey(date), &cached) {
		return &cached, nil
	}
	gen := s.generation.Load()

	rows, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("failed to list records for date", "error", err, "date", date)
		return nil, storeError("org day", err)
	}

	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to list profiles for org day", "error", err, "date", date)
		return nil, storeError("org day", err)
	}

	summary := SummarizeOrgDay(date, FromDataModelSlice(rows), profiles)
	s.cacheSet(ctx, orgDayKey(date), summary, gen)
	return &summary, nil
}

// Trend returns the TrendDays days ending at today, oldest first.
func (s *Service) Trend(ctx context.Context, today calendar.Day) ([]TrendPoint, error) {
	var cached []TrendPoint
	if s.cacheGet(ctx, trendKey(today), &cached) {
		return cached, nil
	}
	gen := s.generation.Load()

	dates := calendar.TrailingDays(today, TrendDays)
	rows, err := s.repo.ListByDateRange(ctx, dates[0], today.AddDays(1))
	if err != nil {
		s.logger.Error("failed to list records for trend", "error", err, "from", dates[0], "to", today)
		return nil, storeError("trend", err)
	}

	points := WeeklyTrend(dates, GroupByDate(FromDataModelSlice(rows)))
	s.cacheSet(ctx, trendKey(today), points, gen)
	return points, nil
}

func (s *Service) ListAttendance(ctx context.Context, filter ListFilter) ([]*RecordWithProfile, error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("invalid attendance filter: %w", err)
	}

	rows, err := s.repo.ListWithProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to list attendance", "error", err)
		return nil, storeError("list attendance", err)
	}
	return FilterRecords(FromDataModelWithProfile(rows), filter), nil
}

// InvalidateDay drops every cached aggregate that includes date.
func (s *Service) InvalidateDay(ctx context.Context, date calendar.Day) error {
	s.generation.Add(1)
	if s.cache == nil {
		return nil
	}
	keys := []string{orgDayKey(date)}
	for i := 0; i < TrendDays; i++ {
		keys = append(keys, trendKey(date.AddDays(i)))
	}
	return s.cache.Delete(ctx, keys...)
}

// InvalidateRoster drops every cached org day, since each one counts the
// whole staff list.
func (s *Service) InvalidateRoster(ctx context.Context) error {
	s.generation.Add(1)
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePrefix(ctx, orgDayPrefix)
}

func (s *Service) cacheGet(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, target)
	if err != nil {
		s.logger.Warn("cache read failed", "error", err, "key", key)
		return false
	}
	return hit
}

// cacheSet stores value computed under generation gen. An entry that raced
// an invalidation is deleted again.
func (s *Service) cacheSet(ctx context.Context, key string, value interface{}, gen uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("cache write failed", "error", err, "key", key)
		return
	}
	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to drop stale cache entry", "error", err, "key", key)
		}
	}
}
