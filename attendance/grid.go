package attendance

import (
	"log/slog"
	"strings"
	"time"

	"github.com/raynx/hrm-portal/structs"
	"github.com/raynx/hrm-portal/timecalc"
)

// Config holds the office rules the display state is derived from
type Config struct {
	Location          *time.Location
	OfficeStartHour   int
	OfficeStartMinute int
	ShiftMinutes      int
	Window            timecalc.ShiftWindow
	// AutoCheckoutMinute is the minute of the day the auto checkout runs at
	AutoCheckoutMinute int
}

// DefaultConfig is a 10:00 office start, an 8 hour shift inside 09:00-18:00 and auto checkout at 18:00
func DefaultConfig() Config {
	return Config{
		Location:           time.Local,
		OfficeStartHour:    10,
		OfficeStartMinute:  0,
		ShiftMinutes:       8 * 60,
		Window:             timecalc.ShiftWindow{Start: 9 * 60, End: 18 * 60},
		AutoCheckoutMinute: 18 * 60,
	}
}

// Loc is the zone the grid is drawn in, time.Local when unset
func (c Config) Loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Status is the badge a day cell shows
type Status string

const (
	StatusUpcoming Status = "Upcoming"
	StatusLeave    Status = "Leave"
	StatusOnline   Status = "Online"
	StatusPresent  Status = "Present"
)

// EmployeeWeek is one row of the weekly grid, Days[0] is Monday
type EmployeeWeek struct {
	EmployeeID int64                      `json:"employeeId"`
	Name       string                     `json:"name"`
	Code       string                     `json:"code,omitempty"`
	Days       [7]*structs.AttendanceRecord `json:"days"`
}

// GroupByEmployeeAndWeekday arranges records into one row per employee, ordered by first appearance.
// The last non-empty name and code of an employee win.
func GroupByEmployeeAndWeekday(records []structs.AttendanceRecord, loc *time.Location) []EmployeeWeek {
	return group(records, loc, nil)
}

// GroupWeek is GroupByEmployeeAndWeekday restricted to the 7 days starting at weekStart
func GroupWeek(weekStart time.Time, records []structs.AttendanceRecord, loc *time.Location) []EmployeeWeek {
	return group(records, loc, &weekStart)
}

func group(records []structs.AttendanceRecord, loc *time.Location, weekStart *time.Time) []EmployeeWeek {
	var start, end time.Time
	if weekStart != nil {
		start = timecalc.WeekStartFor(weekStart.In(loc))
		end = start.AddDate(0, 0, 7)
	}

	index := make(map[int64]int)
	rows := []EmployeeWeek{}
	for i := range records {
		r := records[i]
		day, ok := timecalc.ParseDate(r.Date, loc)
		if !ok {
			slog.Warn("skipping attendance record with a bad date", "id", r.ID, "date", r.Date)
			continue
		}
		if weekStart != nil && (day.Before(start) || !day.Before(end)) {
			continue
		}

		pos, seen := index[r.EmployeeID]
		if !seen {
			pos = len(rows)
			index[r.EmployeeID] = pos
			rows = append(rows, EmployeeWeek{EmployeeID: r.EmployeeID, Name: "Unknown"})
		}
		row := &rows[pos]
		if name := fullName(r.FirstName, r.LastName); name != "" {
			row.Name = name
		}
		if r.EmployeeCode != "" {
			row.Code = r.EmployeeCode
		}
		row.Days[timecalc.WeekdayIndex(day)] = &r
	}
	return rows
}

func fullName(first, last string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Cell is the derived display state of one employee-day
type Cell struct {
	Status   Status `json:"status"`
	Late     bool   `json:"late"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	// Worked is "HH hrs MM min"; the stored worked time once checked out, live otherwise
	Worked        string  `json:"worked"`
	WorkedMinutes int     `json:"workedMinutes"`
	Percent       float64 `json:"percent"`
	InAt          float64 `json:"inAt,omitempty"`
	OutAt         float64 `json:"outAt,omitempty"`
}

// WorkedMinutes is check-in to check-out, or to now while the record is open
func WorkedMinutes(rec *structs.AttendanceRecord, now time.Time, loc *time.Location) int {
	if rec == nil || !rec.CheckedIn() {
		return 0
	}
	in, ok := timecalc.ParseTimestamp(*rec.CheckInTime, loc)
	if !ok {
		return 0
	}
	end := now
	if rec.CheckedOut() {
		if out, ok := timecalc.ParseTimestamp(*rec.CheckOutTime, loc); ok {
			end = out
		}
	}
	return timecalc.ElapsedMinutes(in, end)
}

// CellStatus derives the cell of day for rec (nil when the employee has no record that day).
// A record dated in the future is Upcoming whatever it holds. Today a check-in becomes Present once
// the worked minutes reach the shift length and is Online before that. A past record without a
// check-in, or a record today without one, is Leave.
func CellStatus(rec *structs.AttendanceRecord, day, now time.Time, cfg Config) Cell {
	loc := cfg.Loc()
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if rec != nil {
		if d, ok := timecalc.ParseDate(rec.Date, loc); ok {
			day = d
		}
	}
	day = day.In(loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	cell := Cell{CheckIn: timecalc.NoClockTime, CheckOut: timecalc.NoClockTime, Worked: timecalc.NoDuration}
	if day.After(today) {
		cell.Status = StatusUpcoming
		return cell
	}
	if rec == nil || !rec.CheckedIn() {
		cell.Status = StatusLeave
		return cell
	}

	in, ok := timecalc.ParseTimestamp(*rec.CheckInTime, loc)
	if ok {
		cell.CheckIn = timecalc.FormatClockTime(&in, loc)
		cell.Late = timecalc.IsLate(in.In(loc), cfg.OfficeStartHour, cfg.OfficeStartMinute)
		cell.InAt = cfg.Window.TimeToPercent(in.In(loc))
	}
	if rec.CheckedOut() {
		if out, ok := timecalc.ParseTimestamp(*rec.CheckOutTime, loc); ok {
			cell.CheckOut = timecalc.FormatClockTime(&out, loc)
			cell.OutAt = cfg.Window.TimeToPercent(out.In(loc))
		}
	}

	cell.WorkedMinutes = WorkedMinutes(rec, now, loc)
	if rec.CheckedOut() {
		cell.Worked = timecalc.FormatWorkedTime(rec.WorkedTime)
		if m, ok := timecalc.ParseHHMM(rec.WorkedTime); ok {
			cell.Percent = timecalc.ShiftCompletionPercent(m, cfg.ShiftMinutes)
		}
	} else {
		cell.Worked = timecalc.FormatDuration(cell.WorkedMinutes)
		cell.Percent = timecalc.ShiftCompletionPercent(cell.WorkedMinutes, cfg.ShiftMinutes)
	}

	switch {
	case !day.Equal(today):
		cell.Status = StatusPresent
	case cell.WorkedMinutes >= cfg.ShiftMinutes:
		cell.Status = StatusPresent
	default:
		cell.Status = StatusOnline
	}
	return cell
}

// LiveWorked maps the id of every open record (checked in, not out) to its elapsed "HH:MM"
func LiveWorked(records []structs.AttendanceRecord, now time.Time, loc *time.Location) map[int64]string {
	out := make(map[int64]string)
	for _, r := range records {
		if !r.CheckedIn() || r.CheckedOut() {
			continue
		}
		in, ok := timecalc.ParseTimestamp(*r.CheckInTime, loc)
		if !ok {
			continue
		}
		out[r.ID] = timecalc.FormatHHMM(timecalc.ElapsedMinutes(in, now))
	}
	return out
}

// DisplayWorked is the worked time a row shows. Checked out records always show their stored
// worked time, open ones the live value.
func DisplayWorked(rec structs.AttendanceRecord, live map[int64]string) string {
	if rec.CheckedOut() {
		return timecalc.FormatWorkedTime(rec.WorkedTime)
	}
	if v, ok := live[rec.ID]; ok {
		return timecalc.FormatWorkedTime(v)
	}
	return timecalc.NoDuration
}

// DayRow is one line of the single day table
type DayRow struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employeeId"`
	Name       string `json:"name"`
	Code       string `json:"code,omitempty"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	Late       bool   `json:"late"`
	Online     bool   `json:"online"`
	Worked     string `json:"worked"`
	Status     string `json:"status"`
}

// DayRows renders records for the single day table
func DayRows(records []structs.AttendanceRecord, live map[int64]string, cfg Config) []DayRow {
	loc := cfg.Loc()
	rows := make([]DayRow, 0, len(records))
	for _, r := range records {
		row := DayRow{
			ID:         r.ID,
			EmployeeID: r.EmployeeID,
			Name:       fullName(r.FirstName, r.LastName),
			Code:       r.EmployeeCode,
			CheckIn:    timecalc.NoClockTime,
			CheckOut:   timecalc.NoClockTime,
			Online:     r.CheckedIn() && !r.CheckedOut(),
			Worked:     DisplayWorked(r, live),
			Status:     r.AttendanceStatus,
		}
		if r.CheckedIn() {
			if in, ok := timecalc.ParseTimestamp(*r.CheckInTime, loc); ok {
				row.CheckIn = timecalc.FormatClockTime(&in, loc)
				row.Late = timecalc.IsLate(in.In(loc), cfg.OfficeStartHour, cfg.OfficeStartMinute)
			}
		}
		if r.CheckedOut() {
			if out, ok := timecalc.ParseTimestamp(*r.CheckOutTime, loc); ok {
				row.CheckOut = timecalc.FormatClockTime(&out, loc)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WeekRow is an EmployeeWeek with its seven derived cells
type WeekRow struct {
	EmployeeID int64   `json:"employeeId"`
	Name       string  `json:"name"`
	Code       string  `json:"code,omitempty"`
	Cells      [7]Cell `json:"cells"`
}

// WeekRows derives the cells of every row of the week starting weekStart
func WeekRows(weekStart time.Time, groups []EmployeeWeek, now time.Time, cfg Config) []WeekRow {
	start := timecalc.WeekStartFor(weekStart.In(cfg.Loc()))
	rows := make([]WeekRow, 0, len(groups))
	for _, g := range groups {
		row := WeekRow{EmployeeID: g.EmployeeID, Name: g.Name, Code: g.Code}
		for i := 0; i < 7; i++ {
			row.Cells[i] = CellStatus(g.Days[i], start.AddDate(0, 0, i), now, cfg)
		}
		rows = append(rows, row)
	}
	return rows
}
