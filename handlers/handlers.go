package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/event"
	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/notification"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

const sessionKey = "session"

// API is the part of the HRM API the handlers reach directly
type API interface {
	attendance.API
	attendance.Clock
	TodayByEmployee(ctx context.Context, employeeID int64) (*structs.AttendanceRecord, error)
	Today(ctx context.Context) ([]structs.AttendanceRecord, error)
	LeavesByEmployee(ctx context.Context, employeeID int64) ([]structs.Leave, error)
	AllLeaves(ctx context.Context) ([]structs.Leave, error)
	PendingLeaves(ctx context.Context) ([]structs.Leave, error)
	ApplyLeave(ctx context.Context, req structs.LeaveApplication) (structs.Leave, error)
	ActOnLeave(ctx context.Context, leaveID int64, action structs.LeaveAction) (structs.Leave, error)
	TasksByEmployee(ctx context.Context, employeeID int64) ([]structs.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status string) (structs.Task, error)
	EODByEmployee(ctx context.Context, employeeCode string) ([]structs.EODReport, error)
	CreateEOD(ctx context.Context, report structs.EODReport) (structs.EODReport, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// Handlers serves the portal's UI on top of one session
type Handlers struct {
	store *session.Store
	api   API
	feed  *notification.Feed
	bus   *event.Bus
	cfg   attendance.Config

	vmu      sync.Mutex
	view     *attendance.View
	viewUser int64
}

// New creates the handlers. The attendance view of the session is dropped on every session change.
func New(store *session.Store, api API, feed *notification.Feed, bus *event.Bus, cfg attendance.Config) *Handlers {
	h := &Handlers{store: store, api: api, feed: feed, bus: bus, cfg: cfg}
	store.OnChange(func(session.State, *session.Session) {
		h.closeView()
	})
	return h
}

// Register adds every route to router
func (h *Handlers) Register(router gin.IRouter) {
	api := router.Group("/api")

	api.POST("/session/login", h.Login)
	api.POST("/session/logout", h.Logout)
	api.GET("/session", h.GetSession)
	api.POST("/session/forgot-password", h.ForgotPassword)
	api.POST("/session/reset-password", h.ResetPassword)

	authed := api.Group("", h.RequireSession())
	authed.GET("/attendance/day", h.GetDay)
	authed.GET("/attendance/week", h.GetWeek)
	authed.GET("/attendance/week/export", h.ExportWeek)
	authed.POST("/attendance/check-in", h.PostCheckIn)
	authed.POST("/attendance/check-out", h.PostCheckOut)
	authed.GET("/dashboard", h.GetDashboard)

	approvers := api.Group("", h.RequireSession(structs.RoleAdmin, structs.RoleManager, structs.RoleHR))
	authed.GET("/leaves", h.GetLeaves)
	authed.POST("/leaves", h.ApplyLeave)
	approvers.GET("/leaves/pending", h.GetPendingLeaves)
	approvers.POST("/leaves/:id/action", h.ActOnLeave)
	authed.GET("/tasks", h.GetTasks)
	authed.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
	authed.GET("/eod", h.GetEOD)
	authed.POST("/eod", h.SubmitEOD)

	authed.GET("/notifications", h.GetNotifications)
	authed.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	authed.DELETE("/notifications/:id", h.DeleteNotification)
	authed.GET("/notifications/stream", h.StreamNotifications)

	authed.POST("/events/:name", h.SendEventHandler)
}

// RequireSession rejects requests without a live session (401) or, when roles are given,
// with a session of another role (403)
func (h *Handlers) RequireSession(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := h.store.Current()
		if !ok {
			fail(c, http.StatusUnauthorized, "not logged in")
			c.Abort()
			return
		}
		if !h.store.HasRole(roles...) {
			slog.Warn("role not allowed", "user", sess.Identity.Username, "role", sess.Identity.Role, "path", c.FullPath())
			fail(c, http.StatusForbidden, "unauthorized")
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func current(c *gin.Context) session.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(session.Session)
	return sess
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login starts the session
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	res := h.store.Login(c.Request.Context(), req.Email, req.Password)
	if !res.Success {
		fail(c, http.StatusUnauthorized, res.Message)
		return
	}
	sess, _ := h.store.Current()
	ok(c, sess.Identity)
}

type forgotRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword asks the API for a reset token and hands it to the UI
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email is required")
		return
	}
	token, err := h.api.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		apiFail(c, err, "Failed to generate reset token")
		return
	}
	ok(c, gin.H{"resetToken": token})
}

type resetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetPassword sets a new password with a reset token
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "token and password are required")
		return
	}
	if err := h.api.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		apiFail(c, err, "Failed to reset password")
		return
	}
	ok(c, nil)
}

// Logout ends the session; without one it does nothing
func (h *Handlers) Logout(c *gin.Context) {
	h.store.Logout()
	ok(c, nil)
}

// GetSession returns the lifecycle state and, when logged in, the identity
func (h *Handlers) GetSession(c *gin.Context) {
	out := gin.H{"state": h.store.State().String()}
	if sess, found := h.store.Current(); found {
		out["user"] = sess.Identity
		if !sess.ExpiresAt.IsZero() {
			out["expiresAt"] = sess.ExpiresAt
		}
	}
	ok(c, out)
}

// SendEventHandler relays a signal from the UI to every listener in the process
func (h *Handlers) SendEventHandler(c *gin.Context) {
	name := c.Param("name")
	if name != event.AttendanceUpdated {
		fail(c, http.StatusNotFound, "unknown event "+name)
		return
	}
	h.bus.Publish(name)
	ok(c, "ok")
}

// attendanceView returns the view of the session, creating it on first use
func (h *Handlers) attendanceView(sess session.Session) *attendance.View {
	h.vmu.Lock()
	if h.view != nil && h.viewUser == sess.Identity.ID {
		v := h.view
		h.vmu.Unlock()
		return v
	}
	old := h.view
	h.view = nil
	h.vmu.Unlock()
	if old != nil {
		old.Close()
	}

	// loading may end the session (401), so it runs without the lock
	v := attendance.NewView(context.Background(), h.api, h.bus, attendance.ScopeFor(sess.Identity), h.cfg)

	h.vmu.Lock()
	defer h.vmu.Unlock()
	if live, found := h.store.Current(); !found || live.Identity.ID != sess.Identity.ID {
		// not kept; the caller still answers from what was loaded
		v.Close()
		return v
	}
	if h.view != nil {
		v.Close()
		return h.view
	}
	h.view = v
	h.viewUser = sess.Identity.ID
	return v
}

func (h *Handlers) closeView() {
	h.vmu.Lock()
	view := h.view
	h.view = nil
	h.vmu.Unlock()
	if view != nil {
		view.Close()
	}
}

// Close releases the attendance view
func (h *Handlers) Close() {
	h.closeView()
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, structs.Envelope[any]{Data: data, Success: true})
}

func okMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, structs.Envelope[any]{Data: data, Message: message, Success: true})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, structs.Envelope[any]{Message: message, Success: false})
}

// apiFail maps an HRM API error onto the response
func apiFail(c *gin.Context, err error, fallback string) {
	status := http.StatusBadGateway
	if hrmapi.IsUnauthorized(err) {
		status = http.StatusUnauthorized
	}
	fail(c, status, hrmapi.Message(err, fallback))
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, name+" must be a positive number")
		return 0, false
	}
	return id, true
}
