package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raynx/hrm-portal/structs"
	"github.com/raynx/hrm-portal/timecalc"
)

// ErrNoEmployee is returned for accounts that are not linked to an employee
var ErrNoEmployee = errors.New("no employee is linked to this account")

// NewLeaveApplication checks a leave request of the identity's employee.
// The type is matched case-insensitively and the dates come back as ISO dates.
func NewLeaveApplication(id structs.Identity, leaveType, start, end, reason string, loc *time.Location) (structs.LeaveApplication, error) {
	if id.EmployeeID == 0 {
		return structs.LeaveApplication{}, ErrNoEmployee
	}
	leaveType = strings.ToUpper(strings.TrimSpace(leaveType))
	switch leaveType {
	case structs.LeaveSick, structs.LeaveCasual, structs.LeaveAnnual:
	default:
		return structs.LeaveApplication{}, fmt.Errorf("unknown leave type %q, use SICK, CASUAL or ANNUAL", leaveType)
	}
	from, okFrom := timecalc.ParseDate(start, loc)
	to, okTo := timecalc.ParseDate(end, loc)
	if !okFrom || !okTo {
		return structs.LeaveApplication{}, errors.New("select both dates as YYYY-MM-DD")
	}
	if to.Before(from) {
		return structs.LeaveApplication{}, errors.New("the leave can not end before it starts")
	}
	return structs.LeaveApplication{
		EmployeeID: id.EmployeeID,
		LeaveType:  leaveType,
		StartDate:  from.Format(time.DateOnly),
		EndDate:    to.Format(time.DateOnly),
		Reason:     strings.TrimSpace(reason),
	}, nil
}

// NewLeaveAction builds an approve or reject by the identity. An empty comment
// becomes "<ACTION> by <name>".
func NewLeaveAction(id structs.Identity, action, comment string) (structs.LeaveAction, error) {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action != structs.LeaveApprove && action != structs.LeaveReject {
		return structs.LeaveAction{}, fmt.Errorf("action must be APPROVE or REJECT, got %q", action)
	}
	if comment == "" {
		comment = action + " by " + id.DisplayName()
	}
	return structs.LeaveAction{Action: action, Comment: comment, ActorEmployeeID: id.EmployeeID}, nil
}

// TaskStatus normalizes s ("in-progress", "completed", ...) to a task status
func TaskStatus(s string) (string, error) {
	status := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch status {
	case structs.TaskPending, structs.TaskInProgress, structs.TaskCompleted:
		return status, nil
	}
	return "", fmt.Errorf("status must be PENDING, IN_PROGRESS or COMPLETED, got %q", s)
}

// NewEODReport builds today's submitted report of the identity's employee
func NewEODReport(id structs.Identity, summary, blockers string, now time.Time) (structs.EODReport, error) {
	if id.EmployeeID == 0 {
		return structs.EODReport{}, ErrNoEmployee
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return structs.EODReport{}, errors.New("work summary is required")
	}
	r := structs.EODReport{
		EmployeeID: id.EmployeeID,
		Date:       now.Format(time.DateOnly),
		Summary:    summary,
		Blockers:   strings.TrimSpace(blockers),
		Status:     structs.EODSubmitted,
	}
	if id.Employee != nil {
		r.EmployeeCode = id.Employee.EmployeeCode
	}
	return r, nil
}
