package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/auth"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	"github.com/frahmantamala/employee-attendance/internal/core/common/validation"
	"github.com/frahmantamala/employee-attendance/internal/transport"
	"github.com/frahmantamala/employee-attendance/pkg/logger"
)

type ServiceAPI interface {
	Rules() Rules
	CheckIn(ctx context.Context, userID string, now time.Time) (*Record, error)
	CheckOut(ctx context.Context, userID string, now time.Time) (*Record, error)
	ClassifyToday(ctx context.Context, userID string, today calendar.Day) (*TodayStatus, error)
	MonthlySummary(ctx context.Context, userID string, day calendar.Day) (*MonthlySummaryResponse, error)
	History(ctx context.Context, userID string, limit int) ([]*Record, error)
	OrgDay(ctx context.Context, date calendar.Day) (*OrgDaySummary, error)
	Trend(ctx context.Context, today calendar.Day) ([]TrendPoint, error)
	ListAttendance(ctx context.Context, filter ListFilter) ([]*RecordWithProfile, error)
	Export(ctx context.Context, w io.Writer, format ExportFormat) (int, error)
}

const maxHistoryLimit = 366

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	// Now is the handler's clock; tests replace it.
	Now     func() time.Time
	Timeout time.Duration
}

func NewHandler(service ServiceAPI, timeout time.Duration) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Now:         time.Now,
		Timeout:     timeout,
	}
}

func (h *Handler) today() calendar.Day {
	return h.Service.Rules().DateOf(h.Now())
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request, op string) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error(op + ": user not found in context")
		h.WriteAppError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeUnauthorizedAccess))
		return nil, false
	}
	return user, true
}

// ToAppError maps engine errors onto API errors.
func ToAppError(err error) *internal.AppError {
	switch {
	case errors.Is(err, ErrAlreadyCheckedIn):
		return internal.ErrAlreadyCheckedIn().WithCause(err)
	case errors.Is(err, ErrNoActiveCheckIn):
		return internal.ErrNoActiveCheckIn().WithCause(err)
	case errors.Is(err, ErrInvalidCheckOut):
		return internal.ErrInvalidCheckOut().WithCause(err)
	case errors.Is(err, ErrNotFound):
		return internal.ErrAttendanceNotFound().WithCause(err)
	case errors.Is(err, ErrStoreUnavailable):
		return internal.ErrStoreUnavailable().WithCause(err)
	}

	if appErr := validation.FromValidator(err); appErr != nil {
		return appErr.WithCause(err)
	}

	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	return internal.NewInternalError("internal server error", err)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, args ...any) {
	h.Logger.Warn(op+": service error", append([]any{"error", err}, args...)...)
	h.WriteAppError(w, ToAppError(err))
}

// CheckIn handles POST /attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "CheckIn")
	if !ok {
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rec, err := h.Service.CheckIn(ctx, user.ID, h.Now())
	if err != nil {
		h.fail(w, "CheckIn", err, "user_id", user.ID)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rec)
}

// CheckOut handles POST /attendance/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "CheckOut")
	if !ok {
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rec, err := h.Service.CheckOut(ctx, user.ID, h.Now())
	if err != nil {
		h.fail(w, "CheckOut", err, "user_id", user.ID)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

// GetToday handles GET /attendance/today
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "GetToday")
	if !ok {
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status, err := h.Service.ClassifyToday(ctx, user.ID, h.today())
	if err != nil {
		h.fail(w, "GetToday", err, "user_id", user.ID)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}

// GetMonthlySummary handles GET /attendance/summary?month=YYYY-MM
func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "GetMonthlySummary")
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	v := validation.NewValidator()
	v.Field("month", month).Month(internal.ErrCodeInvalidMonth)
	if appErr := v.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	day := h.today()
	if month != "" {
		day = calendar.Day(month + "-01")
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Service.MonthlySummary(ctx, user.ID, day)
	if err != nil {
		h.fail(w, "GetMonthlySummary", err, "user_id", user.ID)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// GetHistory handles GET /attendance/history?limit=N
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "GetHistory")
	if !ok {
		return
	}

	limitStr := r.URL.Query().Get("limit")
	v := validation.NewValidator()
	v.Field("limit", limitStr).IntRange(0, maxHistoryLimit)
	if appErr := v.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	limit := 0
	if limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	records, err := h.Service.History(ctx, user.ID, limit)
	if err != nil {
		h.fail(w, "GetHistory", err, "user_id", user.ID)
		return
	}

	h.WriteJSON(w, http.StatusOK, HistoryResponse{Records: records, Limit: limit})
}

// GetDashboard handles GET /manager/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d := r.URL.Query().Get("date")
	v := validation.NewValidator()
	v.Field("date", d).Date(internal.ErrCodeInvalidDate)
	if appErr := v.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	date := h.today()
	if d != "" {
		date = calendar.Day(d)
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Service.OrgDay(ctx, date)
	if err != nil {
		h.fail(w, "GetDashboard", err, "date", date)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// GetTrend handles GET /manager/trend
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	points, err := h.Service.Trend(ctx, h.today())
	if err != nil {
		h.fail(w, "GetTrend", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, TrendResponse{Days: points})
}

// ListAttendance handles GET /manager/attendance?search=&status=
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	records, err := h.Service.ListAttendance(ctx, filter)
	if err != nil {
		h.fail(w, "ListAttendance", err, "search", filter.Search, "status", filter.Status)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{Records: records, Total: len(records)})
}

// Export handles GET /manager/attendance/export?format=csv|xlsx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	v := validation.NewValidator()
	v.Field("format", raw).OneOf(internal.ErrCodeInvalidFormat, string(ExportCSV), string(ExportXLSX))
	if appErr := v.Validate(); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	format := ExportFormat(strings.ToLower(raw))
	if format == "" {
		format = ExportCSV
	}

	ctx, cancel := internal.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	// buffered so a failure midway still produces a clean error response
	var buf bytes.Buffer
	rows, err := h.Service.Export(ctx, &buf, format)
	if err != nil {
		h.fail(w, "Export", err, "format", format)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(h.today())))
	w.Header().Set("X-Total-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("Export: failed to write response", "error", err)
	}
}
