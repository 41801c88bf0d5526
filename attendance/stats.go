package attendance

import (
	"strings"

	"github.com/raynx/hrm-portal/structs"
)

// DefaultLeaveAllowance is the yearly number of leave days
const DefaultLeaveAllowance = 20

// LeaveSummary counts leave days by status
type LeaveSummary struct {
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Pending   int `json:"pending"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// LeaveStats sums the days of leaves per status against an allowance of total days
func LeaveStats(leaves []structs.Leave, total int) LeaveSummary {
	var s LeaveSummary
	for _, l := range leaves {
		switch l.Status {
		case structs.LeaveApproved:
			s.Approved += l.Days
		case structs.LeaveRejected:
			s.Rejected += l.Days
		case structs.LeavePending:
			s.Pending += l.Days
		}
	}
	s.Used = s.Approved
	s.Total = total
	s.Remaining = total - s.Approved
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	return s
}

// TodaySummary is the admin dashboard's count of today's records
type TodaySummary struct {
	Present int `json:"presentToday"`
	OnLeave int `json:"onLeave"`
}

// TodayStats counts present (including half days) and on-leave records
func TodayStats(records []structs.AttendanceRecord) TodaySummary {
	var s TodaySummary
	for _, r := range records {
		switch r.AttendanceStatus {
		case structs.StatusPresent, structs.StatusHalfDay:
			s.Present++
		case structs.StatusOnLeave:
			s.OnLeave++
		}
	}
	return s
}

// TasksDue returns the tasks due on an ISO date
func TasksDue(tasks []structs.Task, date string) []structs.Task {
	out := []structs.Task{}
	for _, t := range tasks {
		if strings.HasPrefix(t.DueDate, date) {
			out = append(out, t)
		}
	}
	return out
}
