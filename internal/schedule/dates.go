package schedule

import (
	"fmt"
	"time"
)

// Date is a timezone-free calendar date. Weekday math runs against a fixed
// UTC reference so the stored date never shifts with the server timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("parse calendar date %q: %w", value, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday returns weekday.
func (d Date) Weekday() time.Weekday {
	return d.ref().Weekday()
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	t := d.ref().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.ref().Before(other.ref())
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) ref() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// SlotPreferences holds the purchaser's weekday-dependent time slots.
type SlotPreferences struct {
	MonFri   string
	Saturday string
}

// Session is one generated occurrence.
type Session struct {
	Date     Date
	TimeSlot string
}

// GenerateSessionDates walks forward from start (inclusive), skipping Sundays,
// until count dates are collected. The returned dates are strictly increasing.
func GenerateSessionDates(start Date, count int) []Date {
	if count <= 0 {
		return nil
	}
	dates := make([]Date, 0, count)
	current := start
	for len(dates) < count {
		if current.Weekday() != time.Sunday {
			dates = append(dates, current)
		}
		current = current.AddDays(1)
	}
	return dates
}

// SlotForDate picks the slot for one date. Saturday gets its own slot, every
// other (non-Sunday) weekday gets the Mon-Fri slot.
func SlotForDate(d Date, prefs SlotPreferences) string {
	if d.Weekday() == time.Saturday {
		return prefs.Saturday
	}
	return prefs.MonFri
}

// GenerateSessions expands a start date and count into dated sessions with
// per-date slot assignment.
func GenerateSessions(start Date, count int, prefs SlotPreferences) []Session {
	dates := GenerateSessionDates(start, count)
	sessions := make([]Session, 0, len(dates))
	for _, d := range dates {
		sessions = append(sessions, Session{Date: d, TimeSlot: SlotForDate(d, prefs)})
	}
	return sessions
}
