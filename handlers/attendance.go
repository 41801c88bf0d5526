package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
	"github.com/raynx/hrm-portal/timecalc"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetDay returns the single day table, for ?date= or the day last asked for
func (h *Handlers) GetDay(c *gin.Context) {
	view := h.attendanceView(current(c))
	if date := c.Query("date"); date != "" {
		if err := view.SetDate(date); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	ok(c, view.Day())
}

// GetWeek returns the weekly grid, for the week of ?weekStart= or the week last asked for
func (h *Handlers) GetWeek(c *gin.Context) {
	view, found := h.weekView(c)
	if !found {
		return
	}
	ok(c, view.Week())
}

// ExportWeek returns the weekly grid as an xlsx download
func (h *Handlers) ExportWeek(c *gin.Context) {
	view, found := h.weekView(c)
	if !found {
		return
	}
	week := view.Week()
	start, err := time.ParseInLocation(time.DateOnly, week.WeekStart, h.cfg.Loc())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := attendance.ExportWeek(&buf, start, week.Rows); err != nil {
		fail(c, http.StatusInternalServerError, "could not build the export")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance-`+week.WeekStart+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) weekView(c *gin.Context) (*attendance.View, bool) {
	view := h.attendanceView(current(c))
	if ws := c.Query("weekStart"); ws != "" {
		if err := view.SetWeek(ws); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return nil, false
		}
	}
	return view, true
}

// targetEmployee is the employee a punch is for: the session's own, or ?employeeId= for admins
func (h *Handlers) targetEmployee(c *gin.Context, sess session.Session) (int64, bool) {
	if q := c.Query("employeeId"); q != "" && attendance.ScopeFor(sess.Identity).Admin {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil || id <= 0 {
			fail(c, http.StatusBadRequest, "employeeId must be a positive number")
			return 0, false
		}
		return id, true
	}
	if sess.Identity.EmployeeID == 0 {
		fail(c, http.StatusBadRequest, "no employee is linked to this account")
		return 0, false
	}
	return sess.Identity.EmployeeID, true
}

// PostCheckIn punches the employee in
func (h *Handlers) PostCheckIn(c *gin.Context) {
	sess := current(c)
	id, found := h.targetEmployee(c, sess)
	if !found {
		return
	}
	rec, err := attendance.CheckIn(c.Request.Context(), h.api, h.bus, id)
	if err != nil {
		apiFail(c, err, "Check-in failed")
		return
	}
	ok(c, rec)
}

// PostCheckOut punches the employee out
func (h *Handlers) PostCheckOut(c *gin.Context) {
	sess := current(c)
	id, found := h.targetEmployee(c, sess)
	if !found {
		return
	}
	rec, err := attendance.CheckOut(c.Request.Context(), h.api, h.bus, id)
	if err != nil {
		apiFail(c, err, "Check-out failed")
		return
	}
	ok(c, rec)
}

type dashboard struct {
	CheckIn      string                   `json:"checkIn"`
	CheckOut     string                   `json:"checkOut"`
	CheckedIn    bool                     `json:"checkedIn"`
	Timer        string                   `json:"timer"`
	ShiftPercent float64                  `json:"shiftPercent"`
	Leave        attendance.LeaveSummary  `json:"leave"`
	TodayTasks   []structs.Task           `json:"todayTasks"`
	Today        *attendance.TodaySummary `json:"today,omitempty"`
	Errors       []string                 `json:"errors,omitempty"`
}

// GetDashboard returns the session's own day: punch state, work timer, leave balance and tasks due.
// Admin scopes also get today's present and on-leave counts. Parts that fail are listed in errors.
func (h *Handlers) GetDashboard(c *gin.Context) {
	sess := current(c)
	ctx := c.Request.Context()
	loc := h.cfg.Loc()
	now := time.Now().In(loc)

	out := dashboard{
		CheckIn:    timecalc.NoClockTime,
		CheckOut:   timecalc.NoClockTime,
		Timer:      timecalc.FormatTimer(0),
		Leave:      attendance.LeaveStats(nil, attendance.DefaultLeaveAllowance),
		TodayTasks: []structs.Task{},
	}

	if id := sess.Identity.EmployeeID; id != 0 {
		rec, err := h.api.TodayByEmployee(ctx, id)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		} else if rec != nil && rec.CheckedIn() {
			if in, parsed := timecalc.ParseTimestamp(*rec.CheckInTime, loc); parsed {
				out.CheckIn = timecalc.FormatClockTime(&in, loc)
				end := now
				if rec.CheckedOut() {
					if o, parsed := timecalc.ParseTimestamp(*rec.CheckOutTime, loc); parsed {
						out.CheckOut = timecalc.FormatClockTime(&o, loc)
						end = o
					}
				}
				out.CheckedIn = !rec.CheckedOut()
				out.Timer = timecalc.FormatTimer(end.Sub(in))
				out.ShiftPercent = timecalc.ShiftCompletionPercent(timecalc.ElapsedMinutes(in, end), h.cfg.ShiftMinutes)
			}
		}

		leaves, err := h.api.LeavesByEmployee(ctx, id)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		} else {
			out.Leave = attendance.LeaveStats(leaves, attendance.DefaultLeaveAllowance)
		}

		tasks, err := h.api.TasksByEmployee(ctx, id)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		} else {
			out.TodayTasks = attendance.TasksDue(tasks, now.Format(time.DateOnly))
		}
	}

	if attendance.ScopeFor(sess.Identity).Admin {
		records, err := h.api.Today(ctx)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		} else {
			stats := attendance.TodayStats(records)
			out.Today = &stats
		}
	}

	ok(c, out)
}
