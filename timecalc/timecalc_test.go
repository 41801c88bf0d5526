package timecalc

import (
	"regexp"
	"testing"
	"time"
)

func TestFormatClockTime(t *testing.T) {
	ts := time.Date(2024, 5, 6, 9, 5, 0, 0, time.UTC)

	if got := FormatClockTime(&ts, time.UTC); got != "09:05" {
		t.Errorf("FormatClockTime() = %q, want 09:05", got)
	}
	if got := FormatClockTime(nil, time.UTC); got != NoClockTime {
		t.Errorf("FormatClockTime(nil) = %q, want %q", got, NoClockTime)
	}

	kolkata := time.FixedZone("IST", 5*3600+1800)
	if got := FormatClockTime(&ts, kolkata); got != "14:35" {
		t.Errorf("FormatClockTime() in IST = %q, want 14:35", got)
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2024, 5, 6, 10, 15, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same instant", start, 0},
		{"floor partial minute", start.Add(90 * time.Second), 1},
		{"eight hours", start.Add(8 * time.Hour), 480},
		{"end before start", start.Add(-time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedMinutes(start, tt.end); got != tt.want {
				t.Errorf("ElapsedMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestElapsedNonNegativeAndFormatShape(t *testing.T) {
	shape := regexp.MustCompile(`^\d{2} hrs \d{2} min$`)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []time.Duration{0, time.Second, 59 * time.Minute, 7*time.Hour + 42*time.Minute, 99 * time.Hour} {
		m := ElapsedMinutes(base, base.Add(d))
		if m < 0 {
			t.Fatalf("ElapsedMinutes(%v) = %d, want >= 0", d, m)
		}
		if got := FormatDuration(m); !shape.MatchString(got) {
			t.Errorf("FormatDuration(%d) = %q does not match %s", m, got, shape)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00 hrs 00 min"},
		{5, "00 hrs 05 min"},
		{125, "02 hrs 05 min"},
		{-3, "00 hrs 00 min"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestWorkedTimeHelpers(t *testing.T) {
	if got := FormatHHMM(485); got != "08:05" {
		t.Errorf("FormatHHMM(485) = %q, want 08:05", got)
	}
	if m, ok := ParseHHMM("08:05"); !ok || m != 485 {
		t.Errorf("ParseHHMM(08:05) = %d, %v", m, ok)
	}
	if m, ok := ParseHHMM("07:30:12"); !ok || m != 450 {
		t.Errorf("ParseHHMM(07:30:12) = %d, %v", m, ok)
	}
	for _, bad := range []string{"", "abc", "1", "10:75", "-1:00"} {
		if _, ok := ParseHHMM(bad); ok {
			t.Errorf("ParseHHMM(%q) should fail", bad)
		}
	}
	if got := FormatWorkedTime("garbage"); got != NoDuration {
		t.Errorf("FormatWorkedTime(garbage) = %q, want placeholder", got)
	}
	if got := FormatWorkedTime("09:01"); got != "09 hrs 01 min" {
		t.Errorf("FormatWorkedTime(09:01) = %q", got)
	}
	if got := FormatTimer(3*time.Hour + 4*time.Minute + 5*time.Second); got != "03:04:05" {
		t.Errorf("FormatTimer() = %q", got)
	}
}

func TestShiftCompletionPercent(t *testing.T) {
	shift := 480
	prev := -1.0
	for worked := 0; worked <= 2*shift; worked += 15 {
		p := ShiftCompletionPercent(worked, shift)
		if p < prev {
			t.Fatalf("not monotonic at %d: %v < %v", worked, p, prev)
		}
		if p < 0 || p > 100 {
			t.Fatalf("out of range at %d: %v", worked, p)
		}
		if worked >= shift && p != 100 {
			t.Fatalf("does not saturate at %d: %v", worked, p)
		}
		prev = p
	}
	if got := ShiftCompletionPercent(240, 480); got != 50 {
		t.Errorf("ShiftCompletionPercent(240, 480) = %v, want 50", got)
	}
	if got := ShiftCompletionPercent(10, 0); got != 0 {
		t.Errorf("ShiftCompletionPercent with zero shift = %v, want 0", got)
	}
}

func TestIsLate(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 5, 6, h, m, 30, 0, time.UTC) }

	tests := []struct {
		name string
		in   time.Time
		want bool
	}{
		{"early", at(9, 59), false},
		{"exact threshold", at(10, 0), false},
		{"one minute after", at(10, 1), true},
		{"quarter past", at(10, 15), true},
		{"next hour", at(11, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLate(tt.in, 10, 0); got != tt.want {
				t.Errorf("IsLate(%s) = %v, want %v", tt.in.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestWeekStartFor(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-05-06", "2024-05-06"}, // Monday
		{"2024-05-08", "2024-05-06"},
		{"2024-05-12", "2024-05-06"}, // Sunday
		{"2024-05-13", "2024-05-13"},
		{"2024-01-03", "2024-01-01"},
		{"2023-01-01", "2022-12-26"}, // Sunday across a year boundary
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := WeekStartISO(tt.date)
			if err != nil {
				t.Fatalf("WeekStartISO() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("WeekStartISO(%s) = %s, want %s", tt.date, got, tt.want)
			}
			again, _ := WeekStartISO(got)
			if again != got {
				t.Errorf("WeekStartISO not idempotent: %s -> %s", got, again)
			}
		})
	}

	start := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		d := start.AddDate(0, 0, i).Add(17 * time.Hour)
		ws := WeekStartFor(d)
		if ws.Weekday() != time.Monday {
			t.Fatalf("WeekStartFor(%s) = %s, not a Monday", d, ws)
		}
		if !WeekStartFor(ws).Equal(ws) {
			t.Fatalf("WeekStartFor not idempotent for %s", d)
		}
	}

	if _, err := WeekStartISO("not-a-date"); err == nil {
		t.Error("WeekStartISO(not-a-date) should fail")
	}
}

func TestWeekdayIndex(t *testing.T) {
	monday := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekdayIndex(monday.AddDate(0, 0, i)); got != i {
			t.Errorf("WeekdayIndex(+%d) = %d", i, got)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	got, ok := ParseTimestamp("2024-05-06T10:15:00", loc)
	if !ok || got.Hour() != 10 || got.Location() != loc {
		t.Errorf("zone-less timestamp parsed as %v, %v", got, ok)
	}
	got, ok = ParseTimestamp("2024-05-06T10:15:00.123456", loc)
	if !ok || got.Minute() != 15 {
		t.Errorf("fractional timestamp parsed as %v, %v", got, ok)
	}
	got, ok = ParseTimestamp("2024-05-06T08:15:00Z", loc)
	if !ok || !got.Equal(time.Date(2024, 5, 6, 8, 15, 0, 0, time.UTC)) {
		t.Errorf("RFC3339 timestamp parsed as %v, %v", got, ok)
	}
	for _, bad := range []string{"", "yesterday", "2024-13-45T99:00:00"} {
		if _, ok := ParseTimestamp(bad, loc); ok {
			t.Errorf("ParseTimestamp(%q) should fail", bad)
		}
	}

	d, ok := ParseDate("2024-05-06T00:00:00", loc)
	if !ok || d.Day() != 6 {
		t.Errorf("ParseDate() = %v, %v", d, ok)
	}
	if _, ok := ParseDate("2024", loc); ok {
		t.Error("ParseDate(2024) should fail")
	}
}

func TestShiftWindow(t *testing.T) {
	w, err := ParseShiftWindow("09:00-18:00")
	if err != nil {
		t.Fatalf("ParseShiftWindow() error = %v", err)
	}
	if w.Minutes() != 540 {
		t.Errorf("Minutes() = %d, want 540", w.Minutes())
	}
	at := func(h, m int) time.Time { return time.Date(2024, 5, 6, h, m, 0, 0, time.UTC) }
	if got := w.TimeToPercent(at(13, 30)); got != 50 {
		t.Errorf("TimeToPercent(13:30) = %v, want 50", got)
	}
	if got := w.TimeToPercent(at(7, 0)); got != 0 {
		t.Errorf("TimeToPercent(07:00) = %v, want 0", got)
	}
	if got := w.TimeToPercent(at(21, 0)); got != 100 {
		t.Errorf("TimeToPercent(21:00) = %v, want 100", got)
	}

	for _, bad := range []string{"", "09:00", "18:00-09:00", "aa-bb"} {
		if _, err := ParseShiftWindow(bad); err == nil {
			t.Errorf("ParseShiftWindow(%q) should fail", bad)
		}
	}
}
