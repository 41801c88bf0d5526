package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

// ownEmployee is the employee linked to the session, failing the request when there is none
func ownEmployee(c *gin.Context, sess session.Session) (int64, bool) {
	if sess.Identity.EmployeeID == 0 {
		fail(c, http.StatusBadRequest, attendance.ErrNoEmployee.Error())
		return 0, false
	}
	return sess.Identity.EmployeeID, true
}

// GetLeaves lists the session's own leave requests, or every request for admin scopes
func (h *Handlers) GetLeaves(c *gin.Context) {
	sess := current(c)
	ctx := c.Request.Context()

	var (
		leaves []structs.Leave
		err    error
	)
	if attendance.ScopeFor(sess.Identity).Admin {
		leaves, err = h.api.AllLeaves(ctx)
	} else {
		id, found := ownEmployee(c, sess)
		if !found {
			return
		}
		leaves, err = h.api.LeavesByEmployee(ctx, id)
	}
	if err != nil {
		apiFail(c, err, "Failed to load leaves")
		return
	}
	if leaves == nil {
		leaves = []structs.Leave{}
	}
	ok(c, leaves)
}

// GetPendingLeaves lists the requests waiting for a decision
func (h *Handlers) GetPendingLeaves(c *gin.Context) {
	leaves, err := h.api.PendingLeaves(c.Request.Context())
	if err != nil {
		apiFail(c, err, "Failed to load pending leaves")
		return
	}
	if leaves == nil {
		leaves = []structs.Leave{}
	}
	ok(c, leaves)
}

type leaveRequest struct {
	LeaveType string `json:"leaveType" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Reason    string `json:"reason"`
}

// ApplyLeave files a leave request for the session's employee
func (h *Handlers) ApplyLeave(c *gin.Context) {
	sess := current(c)
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Select a leave type and both dates")
		return
	}
	application, err := attendance.NewLeaveApplication(sess.Identity, req.LeaveType, req.StartDate, req.EndDate, req.Reason, h.cfg.Loc())
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	leave, err := h.api.ApplyLeave(c.Request.Context(), application)
	if err != nil {
		apiFail(c, err, "Failed to apply leave")
		return
	}
	okMessage(c, leave, "Leave applied successfully!")
}

type leaveActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// ActOnLeave approves or rejects a pending leave on behalf of the session's user
func (h *Handlers) ActOnLeave(c *gin.Context) {
	sess := current(c)
	leaveID, found := paramID(c, "id")
	if !found {
		return
	}
	var req leaveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "action must be APPROVE or REJECT")
		return
	}
	action, err := attendance.NewLeaveAction(sess.Identity, req.Action, req.Comment)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	leave, err := h.api.ActOnLeave(c.Request.Context(), leaveID, action)
	if err != nil {
		apiFail(c, err, "Failed to perform action")
		return
	}
	verb := "approved"
	if action.Action == structs.LeaveReject {
		verb = "rejected"
	}
	okMessage(c, leave, "Leave "+verb+" successfully")
}

// GetTasks lists the session's own tasks
func (h *Handlers) GetTasks(c *gin.Context) {
	id, found := ownEmployee(c, current(c))
	if !found {
		return
	}
	tasks, err := h.api.TasksByEmployee(c.Request.Context(), id)
	if err != nil {
		apiFail(c, err, "Failed to load tasks")
		return
	}
	if tasks == nil {
		tasks = []structs.Task{}
	}
	ok(c, tasks)
}

type taskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatus moves a task to a new status
func (h *Handlers) UpdateTaskStatus(c *gin.Context) {
	taskID, found := paramID(c, "id")
	if !found {
		return
	}
	var req taskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}
	status, err := attendance.TaskStatus(req.Status)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	task, err := h.api.UpdateTaskStatus(c.Request.Context(), taskID, status)
	if err != nil {
		apiFail(c, err, "Failed to update task")
		return
	}
	okMessage(c, task, "Task marked as "+status+"!")
}

func employeeCode(id structs.Identity) string {
	if id.Employee == nil {
		return ""
	}
	return id.Employee.EmployeeCode
}

// GetEOD lists the session employee's end of the day reports
func (h *Handlers) GetEOD(c *gin.Context) {
	code := employeeCode(current(c).Identity)
	if code == "" {
		fail(c, http.StatusBadRequest, "no employee code is linked to this account")
		return
	}
	reports, err := h.api.EODByEmployee(c.Request.Context(), code)
	if err != nil {
		apiFail(c, err, "Failed to load EOD reports")
		return
	}
	if reports == nil {
		reports = []structs.EODReport{}
	}
	ok(c, reports)
}

type eodRequest struct {
	WorkSummary string `json:"workSummary" binding:"required"`
	Blockers    string `json:"blockers"`
}

// SubmitEOD files today's end of the day report for the session's employee
func (h *Handlers) SubmitEOD(c *gin.Context) {
	sess := current(c)
	var req eodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Work summary is required.")
		return
	}
	report, err := attendance.NewEODReport(sess.Identity, req.WorkSummary, req.Blockers, time.Now().In(h.cfg.Loc()))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.api.CreateEOD(c.Request.Context(), report)
	if err != nil {
		apiFail(c, err, "Failed to submit EOD.")
		return
	}
	okMessage(c, created, "EOD submitted successfully!")
}
