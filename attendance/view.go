package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raynx/hrm-portal/event"
	"github.com/raynx/hrm-portal/structs"
	"github.com/raynx/hrm-portal/timecalc"
)

// API is the part of the HRM API the view reads from
type API interface {
	ByDate(ctx context.Context, date string) ([]structs.AttendanceRecord, error)
	History(ctx context.Context, employeeID int64) ([]structs.AttendanceRecord, error)
	WeeklyTimeline(ctx context.Context, employeeID int64, weekStart string) (structs.WeeklyTimeline, error)
}

// Scope is whose attendance a view shows
type Scope struct {
	// Admin views see every employee, others only EmployeeID
	Admin      bool
	EmployeeID int64
}

// ScopeFor derives the scope of an identity; admins, HR and managers see everyone
func ScopeFor(id structs.Identity) Scope {
	switch id.Role {
	case structs.RoleAdmin, structs.RoleHR, structs.RoleManager:
		return Scope{Admin: true, EmployeeID: id.EmployeeID}
	default:
		return Scope{EmployeeID: id.EmployeeID}
	}
}

// DayView is the single day table
type DayView struct {
	Date string   `json:"date"`
	Rows []DayRow `json:"rows"`
}

// WeekView is the weekly grid with its summary
type WeekView struct {
	WeekStart string                 `json:"weekStart"`
	Rows      []WeekRow              `json:"rows"`
	Summary   *structs.WeeklySummary `json:"summary"`
}

// View keeps the day and week data of one scope, re-pulls both on the attendance-updated
// signal and ticks the live worked time of the visible day. Close releases both.
type View struct {
	api   API
	cfg   Config
	scope Scope
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe func()
	ticker      *Ticker

	mu        sync.RWMutex
	date      string
	weekStart string
	day       []structs.AttendanceRecord
	week      structs.WeeklyTimeline
	live      map[int64]string
	closed    bool
}

// NewView loads the view for the day of now and its week
func NewView(ctx context.Context, api API, bus *event.Bus, scope Scope, cfg Config) *View {
	ctx, cancel := context.WithCancel(ctx)
	v := &View{
		api:    api,
		cfg:    cfg,
		scope:  scope,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		live:   map[int64]string{},
	}
	v.ticker = NewTicker(time.Second, cfg.Loc(), v.setLive)

	today := v.now().In(cfg.Loc())
	v.date = today.Format(time.DateOnly)
	v.weekStart = timecalc.WeekStartFor(today).Format(time.DateOnly)

	if bus != nil {
		v.unsubscribe = bus.Subscribe(event.AttendanceUpdated, func() {
			slog.Debug("attendance updated, reloading view", "date", v.Date(), "weekStart", v.WeekStart())
			v.Reload()
		})
	}
	v.Reload()
	return v
}

// Reload re-pulls the day and the week. Failures are logged and the old data kept.
func (v *View) Reload() {
	v.loadDay()
	v.loadWeek()
}

// SetDate switches the day table to an ISO date
func (v *View) SetDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	v.mu.Lock()
	changed := v.date != date
	v.date = date
	v.mu.Unlock()

	if changed {
		v.loadDay()
	}
	return nil
}

// SetWeek switches the grid to the week holding date
func (v *View) SetWeek(date string) error {
	ws, err := timecalc.WeekStartISO(date)
	if err != nil {
		return err
	}
	v.mu.Lock()
	changed := v.weekStart != ws
	v.weekStart = ws
	v.mu.Unlock()

	if changed {
		v.loadWeek()
	}
	return nil
}

func (v *View) loadDay() {
	date := v.Date()

	var records []structs.AttendanceRecord
	var err error
	if v.scope.Admin {
		records, err = v.api.ByDate(v.ctx, date)
	} else {
		var history []structs.AttendanceRecord
		history, err = v.api.History(v.ctx, v.scope.EmployeeID)
		for _, r := range history {
			if strings.HasPrefix(r.Date, date) {
				records = append(records, r)
			}
		}
	}
	if err != nil {
		slog.Error("Attendance load failed", "date", date, "error", err)
		return
	}

	v.mu.Lock()
	if v.closed || v.date != date {
		v.mu.Unlock()
		return
	}
	v.day = records
	v.mu.Unlock()

	// the ticker must follow the visible set
	v.ticker.Start(v.ctx, records)
}

func (v *View) loadWeek() {
	ws := v.WeekStart()

	var employeeID int64
	if !v.scope.Admin {
		employeeID = v.scope.EmployeeID
	}
	tl, err := v.api.WeeklyTimeline(v.ctx, employeeID, ws)
	if err != nil {
		slog.Error("Weekly timeline load failed", "weekStart", ws, "error", err)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.weekStart != ws {
		return
	}
	v.week = tl
}

func (v *View) setLive(live map[int64]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = live
}

// Date is the ISO date of the day table
func (v *View) Date() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.date
}

// WeekStart is the ISO Monday of the grid
func (v *View) WeekStart() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.weekStart
}

// Day renders the day table
func (v *View) Day() DayView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return DayView{Date: v.date, Rows: DayRows(v.day, v.live, v.cfg)}
}

// Week renders the weekly grid
func (v *View) Week() WeekView {
	v.mu.RLock()
	defer v.mu.RUnlock()

	loc := v.cfg.Loc()
	start, err := time.ParseInLocation(time.DateOnly, v.weekStart, loc)
	if err != nil {
		return WeekView{WeekStart: v.weekStart, Rows: []WeekRow{}}
	}
	groups := GroupWeek(start, v.week.Records, loc)
	return WeekView{
		WeekStart: v.weekStart,
		Rows:      WeekRows(start, groups, v.now(), v.cfg),
		Summary:   v.week.Summary,
	}
}

// Close stops the ticker and the signal listener. It is safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	if v.unsubscribe != nil {
		v.unsubscribe()
	}
	v.cancel()
	v.ticker.Stop()
}
