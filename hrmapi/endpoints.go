package hrmapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/raynx/hrm-portal/structs"
)

// ---------------------------------------------------------------- auth

// Login exchanges credentials for a bearer token and the identity behind it
func (c *Client) Login(ctx context.Context, email, password string) (structs.LoginResponse, error) {
	var out structs.LoginResponse
	_, err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return out, err
	}
	if out.Token == "" {
		return out, errors.New("login response carried no token")
	}
	return out, nil
}

// ForgotPassword asks for a reset token for email. The API hands the token straight back.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var token string
	m, err := c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, &token)
	if err != nil {
		return "", err
	}
	if !m.success {
		return "", &APIError{Status: http.StatusOK, Message: orDefault(m.message, "Failed to generate reset token")}
	}
	return token, nil
}

// ResetPassword sets a new password using a reset token
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	m, err := c.do(ctx, http.MethodPost, "/auth/reset-password", nil, map[string]string{
		"resetToken":  resetToken,
		"newPassword": newPassword,
	}, nil)
	if err != nil {
		return err
	}
	if !m.success {
		return &APIError{Status: http.StatusOK, Message: orDefault(m.message, "Password reset failed")}
	}
	return nil
}

// ---------------------------------------------------------------- attendance

// CheckIn opens today's attendance record of an employee
func (c *Client) CheckIn(ctx context.Context, employeeID int64) (structs.AttendanceRecord, error) {
	var out structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodPost, "/api/attendance/check-in/"+id(employeeID), nil, nil, &out)
	return out, err
}

// CheckOut closes today's attendance record of an employee
func (c *Client) CheckOut(ctx context.Context, employeeID int64) (structs.AttendanceRecord, error) {
	var out structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodPost, "/api/attendance/check-out/"+id(employeeID), nil, nil, &out)
	return out, err
}

// AutoCheckout closes every record still open at the end of the day
func (c *Client) AutoCheckout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/attendance/auto-checkout", nil, nil, nil)
	return err
}

// TodayByEmployee returns today's record of one employee; nil when there is none yet
func (c *Client) TodayByEmployee(ctx context.Context, employeeID int64) (*structs.AttendanceRecord, error) {
	var out *structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/today/"+id(employeeID), nil, nil, &out)
	return out, err
}

// Today returns today's records of every employee
func (c *Client) Today(ctx context.Context) ([]structs.AttendanceRecord, error) {
	var out []structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/today", nil, nil, &out)
	return out, err
}

// ByDate returns the records of every employee on an ISO date
func (c *Client) ByDate(ctx context.Context, date string) ([]structs.AttendanceRecord, error) {
	var out []structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/by-date", url.Values{"date": {date}}, nil, &out)
	return out, err
}

// History returns every record of one employee
func (c *Client) History(ctx context.Context, employeeID int64) ([]structs.AttendanceRecord, error) {
	var out []structs.AttendanceRecord
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/history/"+id(employeeID), nil, nil, &out)
	return out, err
}

// Monthly returns the records of one employee in a month
func (c *Client) Monthly(ctx context.Context, employeeID int64, year, month int) ([]structs.AttendanceRecord, error) {
	var out []structs.AttendanceRecord
	q := url.Values{"year": {strconv.Itoa(year)}, "month": {strconv.Itoa(month)}}
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/monthly/"+id(employeeID), q, nil, &out)
	return out, err
}

// WeeklyTimeline returns the records and summary of the week starting weekStart.
// employeeID 0 asks for every employee.
func (c *Client) WeeklyTimeline(ctx context.Context, employeeID int64, weekStart string) (structs.WeeklyTimeline, error) {
	var out structs.WeeklyTimeline
	q := url.Values{"weekStart": {weekStart}}
	if employeeID != 0 {
		q.Set("employeeId", id(employeeID))
	}
	_, err := c.do(ctx, http.MethodGet, "/api/attendance/weekly-timeline", q, nil, &out)
	return out, err
}

// ---------------------------------------------------------------- notifications

// Notifications returns every notification of the session's user
func (c *Client) Notifications(ctx context.Context) ([]structs.Notification, error) {
	var out []structs.Notification
	_, err := c.do(ctx, http.MethodGet, "/api/notifications/user", nil, nil, &out)
	return out, err
}

// UnreadNotifications returns the unread notifications of the session's user
func (c *Client) UnreadNotifications(ctx context.Context) ([]structs.Notification, error) {
	var out []structs.Notification
	_, err := c.do(ctx, http.MethodGet, "/api/notifications/unread", nil, nil, &out)
	return out, err
}

// MarkNotificationRead flags one notification as read
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/notifications/"+id(notificationID)+"/read", nil, struct{}{}, nil)
	return err
}

// DeleteNotification removes one notification
func (c *Client) DeleteNotification(ctx context.Context, notificationID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/notifications/"+id(notificationID), nil, nil, nil)
	return err
}

// ---------------------------------------------------------------- leaves, tasks, eod, payroll

// LeavesByEmployee returns the leave requests of one employee
func (c *Client) LeavesByEmployee(ctx context.Context, employeeID int64) ([]structs.Leave, error) {
	var out []structs.Leave
	_, err := c.do(ctx, http.MethodGet, "/api/leaves/employee/"+id(employeeID), nil, nil, &out)
	return out, err
}

// AllLeaves returns the leave requests of every employee
func (c *Client) AllLeaves(ctx context.Context) ([]structs.Leave, error) {
	var out []structs.Leave
	_, err := c.do(ctx, http.MethodGet, "/api/leaves", nil, nil, &out)
	return out, err
}

// PendingLeaves returns the leave requests waiting for a decision
func (c *Client) PendingLeaves(ctx context.Context) ([]structs.Leave, error) {
	var out []structs.Leave
	_, err := c.do(ctx, http.MethodGet, "/api/leaves/pending", nil, nil, &out)
	return out, err
}

// ApplyLeave files a new leave request
func (c *Client) ApplyLeave(ctx context.Context, req structs.LeaveApplication) (structs.Leave, error) {
	var out structs.Leave
	_, err := c.do(ctx, http.MethodPost, "/api/leaves", nil, req, &out)
	return out, err
}

// ActOnLeave approves or rejects a leave request. The API notifies the applicant.
func (c *Client) ActOnLeave(ctx context.Context, leaveID int64, action structs.LeaveAction) (structs.Leave, error) {
	var out structs.Leave
	_, err := c.do(ctx, http.MethodPost, "/api/leaves/"+id(leaveID)+"/action", nil, action, &out)
	return out, err
}

// TasksByEmployee returns the tasks of one employee
func (c *Client) TasksByEmployee(ctx context.Context, employeeID int64) ([]structs.Task, error) {
	var out []structs.Task
	_, err := c.do(ctx, http.MethodGet, "/api/tasks/employee/"+id(employeeID), nil, nil, &out)
	return out, err
}

// UpdateTaskStatus moves a task to status
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status string) (structs.Task, error) {
	var out structs.Task
	_, err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id(taskID)+"/status", nil, map[string]string{"status": status}, &out)
	return out, err
}

// CreateEOD submits an end of the day report
func (c *Client) CreateEOD(ctx context.Context, report structs.EODReport) (structs.EODReport, error) {
	var out structs.EODReport
	_, err := c.do(ctx, http.MethodPost, "/api/eod", nil, report, &out)
	return out, err
}

// EODByEmployee returns the end of the day reports of one employee code
func (c *Client) EODByEmployee(ctx context.Context, employeeCode string) ([]structs.EODReport, error) {
	var out []structs.EODReport
	_, err := c.do(ctx, http.MethodGet, "/api/eod/employee/"+url.PathEscape(employeeCode), nil, nil, &out)
	return out, err
}

// PayrollByMonth returns the payslips of a month as computed upstream
func (c *Client) PayrollByMonth(ctx context.Context, year, month int) ([]structs.Payslip, error) {
	var out []structs.Payslip
	q := url.Values{"year": {strconv.Itoa(year)}, "month": {strconv.Itoa(month)}}
	_, err := c.do(ctx, http.MethodGet, "/api/payroll", q, nil, &out)
	return out, err
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
