package attendance

import (
	"strings"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	"github.com/frahmantamala/employee-attendance/internal/profile"
)

const TrendDays = 7

// SummarizeMonth counts statuses and sums hours for records dated in
// [monthStart, monthEnd). Input order does not matter.
func SummarizeMonth(records []*Record, monthStart, monthEnd calendar.Day) MonthlySummary {
	var s MonthlySummary
	for _, r := range records {
		if r == nil || r.Date.Before(monthStart) || !r.Date.Before(monthEnd) {
			continue
		}
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusHalfDay:
			s.HalfDay++
		}
		s.TotalHours += r.TotalHours
	}
	return s
}

// SummarizeOrgDay aggregates one day across the organization.
//
// AbsentCount is every profile not present or late, half days and explicit
// absences included. AbsentEmployees lists only profiles with no record for
// the day, so neither of those shows up in the list.
func SummarizeOrgDay(date calendar.Day, records []*Record, profiles []*profile.Profile) OrgDaySummary {
	byID := make(map[string]*profile.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	summary := OrgDaySummary{
		Date:            date,
		TotalEmployees:  len(profiles),
		AbsentEmployees: []*profile.Profile{},
		LateArrivals:    []*RecordWithProfile{},
	}

	recorded := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		recorded[r.UserID] = struct{}{}
		if r.Status.Attended() {
			summary.PresentCount++
		}
		if r.Status == StatusLate {
			summary.LateArrivals = append(summary.LateArrivals, &RecordWithProfile{Record: r, Profile: byID[r.UserID]})
		}
	}
	summary.AbsentCount = len(profiles) - summary.PresentCount

	for _, p := range profiles {
		if _, ok := recorded[p.ID]; !ok {
			summary.AbsentEmployees = append(summary.AbsentEmployees, p)
		}
	}

	return summary
}

// WeeklyTrend emits one point per date in the given order. Each day is counted
// on its own.
func WeeklyTrend(dates []calendar.Day, recordsByDate map[calendar.Day][]*Record) []TrendPoint {
	points := make([]TrendPoint, 0, len(dates))
	for _, d := range dates {
		point := TrendPoint{Date: d, Label: trendLabel(d)}
		for _, r := range recordsByDate[d] {
			switch r.Status {
			case StatusPresent:
				point.Present++
			case StatusLate:
				point.Late++
			case StatusAbsent:
				point.Absent++
			}
		}
		points = append(points, point)
	}
	return points
}

func trendLabel(d calendar.Day) string {
	t, err := time.Parse(calendar.Layout, d.String())
	if err != nil {
		return d.String()
	}
	return t.Format("Jan 2")
}

func GroupByDate(records []*Record) map[calendar.Day][]*Record {
	grouped := make(map[calendar.Day][]*Record)
	for _, r := range records {
		grouped[r.Date] = append(grouped[r.Date], r)
	}
	return grouped
}

// FilterRecords applies the manager listing filter, keeping input order.
func FilterRecords(rows []*RecordWithProfile, f ListFilter) []*RecordWithProfile {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := Status(f.Status)
	if status == "all" {
		status = ""
	}

	filtered := make([]*RecordWithProfile, 0, len(rows))
	for _, row := range rows {
		if status != "" && row.Status != status {
			continue
		}
		if search != "" && !matchesSearch(row.Profile, search) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func matchesSearch(p *profile.Profile, search string) bool {
	if p == nil {
		return false
	}
	return strings.Contains(strings.ToLower(p.Name), search) ||
		strings.Contains(strings.ToLower(p.EmployeeID), search) ||
		strings.Contains(strings.ToLower(p.Department), search)
}
