package timecalc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// placeholders shown when a value can not be derived
const (
	NoClockTime = "--:--"
	NoDuration  = "00 hrs 00 min"
)

// layouts accepted for timestamps coming from the HRM API. The API sends local
// date-times without a zone most of the time, RFC3339 sometimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an API timestamp. Zone-less values are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate reads the date part of an API date or date-time ("2006-01-02" or "2006-01-02T...")
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, s[:len(time.DateOnly)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatClockTime returns the 24h wall clock "HH:MM" of ts in loc, or "--:--" for nil
func FormatClockTime(ts *time.Time, loc *time.Location) string {
	if ts == nil || ts.IsZero() {
		return NoClockTime
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format("15:04")
}

// ElapsedMinutes is the whole number of minutes from start to end.
// A negative span (clock skew, bad data) is reported as zero.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatDuration renders minutes as "HH hrs MM min"
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d hrs %02d min", minutes/60, minutes%60)
}

// FormatHHMM renders minutes as "HH:MM", the format of a stored workedTime
func FormatHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseHHMM reads a "HH:MM" (or "HH:MM:SS") worked time into minutes
func ParseHHMM(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatWorkedTime renders a "HH:MM" worked time as "HH hrs MM min"
func FormatWorkedTime(hhmm string) string {
	minutes, ok := ParseHHMM(hhmm)
	if !ok {
		return NoDuration
	}
	return FormatDuration(minutes)
}

// FormatTimer renders d as "HH:MM:SS" for the running work timer
func FormatTimer(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ShiftCompletionPercent is worked/shift as a percentage, saturating at 100
func ShiftCompletionPercent(worked, shift int) float64 {
	if shift <= 0 || worked <= 0 {
		return 0
	}
	if worked >= shift {
		return 100
	}
	return float64(worked) / float64(shift) * 100
}

// IsLate reports whether checkIn's wall clock is strictly after hour:minute
func IsLate(checkIn time.Time, hour, minute int) bool {
	h, m := checkIn.Hour(), checkIn.Minute()
	return h > hour || (h == hour && m > minute)
}

// WeekdayIndex maps a date to its column in a Monday first week, Monday=0 ... Sunday=6
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekStartFor returns midnight of the Monday on or before t, in t's location
func WeekStartFor(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -WeekdayIndex(day))
}

// WeekStartISO normalizes an ISO date to the ISO date of its week's Monday
func WeekStartISO(date string) (string, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return WeekStartFor(t).Format(time.DateOnly), nil
}

// SameDay reports whether a and b fall on the same calendar day in a's location
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ClockMinutes is the number of minutes since midnight of t's wall clock
func ClockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ShiftWindow is the configured daily work period, in minutes since midnight
type ShiftWindow struct {
	Start int
	End   int
}

// ParseShiftWindow reads "09:00-18:00"
func ParseShiftWindow(s string) (ShiftWindow, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return ShiftWindow{}, fmt.Errorf("shift window %q must look like 09:00-18:00", s)
	}
	start, ok1 := ParseHHMM(from)
	end, ok2 := ParseHHMM(to)
	if !ok1 || !ok2 || end <= start {
		return ShiftWindow{}, fmt.Errorf("shift window %q must look like 09:00-18:00", s)
	}
	return ShiftWindow{Start: start, End: end}, nil
}

// Minutes is the length of the window
func (w ShiftWindow) Minutes() int {
	return w.End - w.Start
}

// TimeToPercent places t's wall clock inside the window, clamped to [0,100]
func (w ShiftWindow) TimeToPercent(t time.Time) float64 {
	if w.End <= w.Start {
		return 0
	}
	p := float64(ClockMinutes(t)-w.Start) / float64(w.End-w.Start) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
