package attendance

import (
	"time"

	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	"github.com/frahmantamala/employee-attendance/internal/profile"
)

// TodayStatus is what an employee sees for the current day.
type TodayStatus struct {
	Date         calendar.Day `json:"date"`
	Status       Status       `json:"status"`
	CheckInTime  *time.Time   `json:"check_in_time"`
	CheckOutTime *time.Time   `json:"check_out_time"`
	TotalHours   float64      `json:"total_hours"`
}

type MonthlySummary struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	HalfDay    int     `json:"half_day"`
	TotalHours float64 `json:"total_hours"`
}

type MonthlySummaryResponse struct {
	Month      string       `json:"month"`
	MonthStart calendar.Day `json:"month_start"`
	MonthEnd   calendar.Day `json:"month_end"`
	MonthlySummary
}

type OrgDaySummary struct {
	Date            calendar.Day         `json:"date"`
	TotalEmployees  int                  `json:"total_employees"`
	PresentCount    int                  `json:"present_count"`
	AbsentCount     int                  `json:"absent_count"`
	AbsentEmployees []*profile.Profile   `json:"absent_employees"`
	LateArrivals    []*RecordWithProfile `json:"late_arrivals"`
}

type TrendPoint struct {
	Date    calendar.Day `json:"date"`
	Label   string       `json:"label"`
	Present int          `json:"present"`
	Late    int          `json:"late"`
	Absent  int          `json:"absent"`
}

type TrendResponse struct {
	Days []TrendPoint `json:"days"`
}

type HistoryResponse struct {
	Records []*Record `json:"records"`
	Limit   int       `json:"limit"`
}

type ListResponse struct {
	Records []*RecordWithProfile `json:"records"`
	Total   int                  `json:"total"`
}

// ListFilter narrows the manager's attendance listing. Search matches name,
// employee id or department case-insensitively.
type ListFilter struct {
	Search string `json:"search" validate:"max=100"`
	Status string `json:"status" validate:"omitempty,oneof=all present absent late half-day"`
}

type HistoryQuery struct {
	Limit int `validate:"min=0,max=366"`
}

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (f ExportFormat) Valid() bool {
	return f == ExportCSV || f == ExportXLSX
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename is attendance_<day>.<ext>.
func (f ExportFormat) Filename(day calendar.Day) string {
	return "attendance_" + day.String() + "." + string(f)
}
