// Package remind holds the schedule arithmetic for task reminders:
// resolving a task's raw date/time fields into an absolute due instant
// and deciding which day-offsets fire on a given day.
package remind

import (
	"regexp"
	"strings"
	"time"
)

const (
	DefaultTime      = "09:00"
	DefaultTimezone  = "Asia/Colombo"
	DefaultUTCOffset = "+05:30"
)

// DefaultOffsets are days-before-due; 0 means "due today".
var DefaultOffsets = []int{3, 2, 1, 0}

var (
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeTime validates an HH:MM wall time. Anything malformed,
// missing or out of range falls back to the default: a bad time is a
// data-quality issue, not a reason to drop the reminder.
func NormalizeTime(raw, def string) string {
	s := strings.TrimSpace(raw)
	if timeRe.MatchString(s) {
		return s
	}
	return def
}

// NormalizeDate truncates a raw date value to its YYYY-MM-DD part.
// Returns "" when the value cannot be a calendar date.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 10 {
		s = s[:10]
	}
	if !dateRe.MatchString(s) {
		return ""
	}
	// Reject impossible dates like 2026-02-31.
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}

// Resolver turns task schedule fields into absolute instants in one
// configured timezone. It never mutates the task record.
type Resolver struct {
	loc         *time.Location
	offset      string
	defaultTime string
}

// NewResolver loads the zone for calendar-day comparisons and keeps the
// fixed UTC offset used for instant construction. An unknown zone name
// falls back to a fixed zone derived from the offset.
func NewResolver(timezone, utcOffset, defaultTime string) *Resolver {
	if strings.TrimSpace(timezone) == "" {
		timezone = DefaultTimezone
	}
	if strings.TrimSpace(utcOffset) == "" {
		utcOffset = DefaultUTCOffset
	}
	if strings.TrimSpace(defaultTime) == "" {
		defaultTime = DefaultTime
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = fixedZone(timezone, utcOffset)
	}
	return &Resolver{loc: loc, offset: utcOffset, defaultTime: defaultTime}
}

func fixedZone(name, offset string) *time.Location {
	t, err := time.Parse("2006-01-02T15:04:05-07:00", "2000-01-01T00:00:00"+offset)
	if err != nil {
		return time.UTC
	}
	_, secs := t.Zone()
	return time.FixedZone(name, secs)
}

func (r *Resolver) Location() *time.Location { return r.loc }

// DueAt resolves rawDate+rawTime to the task's due instant. ok=false
// means the date is unparsable and the task is excluded from reminder
// evaluation; the caller skips it silently.
func (r *Resolver) DueAt(rawDate, rawTime string) (time.Time, bool) {
	datePart := NormalizeDate(rawDate)
	if datePart == "" {
		return time.Time{}, false
	}
	timePart := NormalizeTime(rawTime, r.defaultTime)
	due, err := time.Parse("2006-01-02T15:04:05-07:00", datePart+"T"+timePart+":00"+r.offset)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// NormalizedTime exposes the time fallback used for key construction so
// the stored snapshot matches what was evaluated.
func (r *Resolver) NormalizedTime(rawTime string) string {
	return NormalizeTime(rawTime, r.defaultTime)
}

// DateKey formats an instant as the calendar date in the target zone.
func (r *Resolver) DateKey(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}
