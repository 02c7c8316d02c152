package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout is the wire and storage format of a Day.
const Layout = "2006-01-02"

// Day is a calendar date without a time component, stored as a SQL DATE.
type Day string

// DayOf returns the calendar day of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return Day(t.In(loc).Format(Layout))
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day(t.Format(Layout)), nil
}

// Start returns midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays moves the day by n calendar days.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(Layout))
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d < other
}

func (d Day) IsZero() bool {
	return d == ""
}

func (d Day) String() string {
	return string(d)
}

// MonthBounds returns the first day of d's month and the first day of the next month.
func (d Day) MonthBounds() (Day, Day) {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return d, d
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Day(start.Format(Layout)), Day(start.AddDate(0, 1, 0).Format(Layout))
}

// TrailingDays returns the n days ending at today, oldest first.
func TrailingDays(today Day, n int) []Day {
	days := make([]Day, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDays(-i))
	}
	return days
}

// Value implements driver.Valuer.
func (d Day) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

// Scan implements sql.Scanner. Drivers hand DATE columns back either as
// time.Time or as text.
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Day(v.Format(Layout))
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("calendar: cannot scan %T into Day", src)
	}
	return nil
}

func (d *Day) scanText(s string) error {
	if len(s) < len(Layout) {
		return fmt.Errorf("calendar: invalid day %q", s)
	}
	parsed, err := ParseDay(s[:len(Layout)])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
