package structs

//This file is all of the structs exchanged with the HRM API and sent on to the UI

// Envelope is the wrapper the HRM API puts around every response body
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Identity is the authenticated user as returned by the login endpoint
type Identity struct {
	ID         int64          `json:"id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	Role       string         `json:"role"`
	EmployeeID int64          `json:"employeeId,omitempty"`
	Employee   *EmployeeBrief `json:"employee,omitempty"`
}

// DisplayName is the first name of the linked employee, falling back to the username
func (i Identity) DisplayName() string {
	if i.Employee != nil && i.Employee.FirstName != "" {
		return i.Employee.FirstName
	}
	return i.Username
}

// EmployeeBrief is the employee reference embedded in an identity
type EmployeeBrief struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmployeeCode string `json:"employeeCode,omitempty"`
}

// LoginResponse is the data of a successful login: the token plus the identity fields
type LoginResponse struct {
	Token string `json:"token"`
	Identity
}

// Role names used by the HRM API
const (
	RoleAdmin    = "ROLE_ADMIN"
	RoleHR       = "ROLE_HR"
	RoleManager  = "ROLE_MANAGER"
	RoleEmployee = "ROLE_EMPLOYEE"
)

// Attendance statuses used by the HRM API
const (
	StatusPresent = "PRESENT"
	StatusHalfDay = "HALF_DAY"
	StatusOnLeave = "ON_LEAVE"
	StatusAbsent  = "ABSENT"
)

// AttendanceRecord is one employee-day of attendance.
// Timestamps are kept as the API sends them; they are parsed when display state is derived.
type AttendanceRecord struct {
	ID               int64   `json:"id"`
	EmployeeID       int64   `json:"employeeId"`
	EmployeeCode     string  `json:"employeeCode,omitempty"`
	FirstName        string  `json:"firstName,omitempty"`
	LastName         string  `json:"lastName,omitempty"`
	Date             string  `json:"date"`
	CheckInTime      *string `json:"checkInTime"`
	CheckOutTime     *string `json:"checkOutTime"`
	WorkedTime       string  `json:"workedTime,omitempty"`
	AttendanceStatus string  `json:"attendanceStatus"`
}

// CheckedIn reports whether the record carries a check-in timestamp
func (r AttendanceRecord) CheckedIn() bool {
	return r.CheckInTime != nil && *r.CheckInTime != ""
}

// CheckedOut reports whether the record carries a check-out timestamp
func (r AttendanceRecord) CheckedOut() bool {
	return r.CheckOutTime != nil && *r.CheckOutTime != ""
}

// WeeklyTimeline is the data of the weekly timeline endpoint
type WeeklyTimeline struct {
	Records []AttendanceRecord `json:"records"`
	Summary *WeeklySummary     `json:"summary"`
}

// WeeklySummary is the per-week day count summary computed by the API
type WeeklySummary struct {
	Present int `json:"present"`
	Leave   int `json:"leave"`
	Weekend int `json:"weekend"`
	Payable int `json:"payable"`
}

// Notification is a single notification event
type Notification struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Date       string `json:"date"`
	Read       bool   `json:"read"`
	SenderName string `json:"senderName"`
}

// Leave is a leave request of an employee
type Leave struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employeeId,omitempty"`
	LeaveType  string `json:"leaveType"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Days       int    `json:"days"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// Leave statuses
const (
	LeaveApproved = "APPROVED"
	LeaveRejected = "REJECTED"
	LeavePending  = "PENDING"
)

// Leave types
const (
	LeaveSick   = "SICK"
	LeaveCasual = "CASUAL"
	LeaveAnnual = "ANNUAL"
)

// LeaveApplication is the body of a new leave request
type LeaveApplication struct {
	EmployeeID int64  `json:"employeeId"`
	LeaveType  string `json:"leaveType"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Reason     string `json:"reason"`
}

// LeaveAction approves or rejects a pending leave
type LeaveAction struct {
	Action          string `json:"action"`
	Comment         string `json:"comment"`
	ActorEmployeeID int64  `json:"actorEmployeeId"`
}

// Leave actions
const (
	LeaveApprove = "APPROVE"
	LeaveReject  = "REJECT"
)

// Task is a task assigned to an employee
type Task struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	Status               string `json:"status"`
	Priority             string `json:"priority,omitempty"`
	DueDate              string `json:"dueDate"`
	AssignedToEmployeeID int64  `json:"assignedToEmployeeId,omitempty"`
}

// Task statuses
const (
	TaskPending    = "PENDING"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
)

// EODReport is an end of the day report
type EODReport struct {
	ID           int64  `json:"id,omitempty"`
	EmployeeID   int64  `json:"employeeId,omitempty"`
	EmployeeCode string `json:"employeeCode"`
	EmployeeName string `json:"employeeName,omitempty"`
	Date         string `json:"date"`
	Summary      string `json:"workSummary"`
	Blockers     string `json:"blockers,omitempty"`
	Status       string `json:"status,omitempty"`
}

// EODSubmitted is the status of a freshly submitted report
const EODSubmitted = "SUBMITTED"

// Payslip is a payroll entry as displayed; all amounts are computed upstream
type Payslip struct {
	ID         int64   `json:"id"`
	Month      string  `json:"month"`
	Basic      float64 `json:"basic"`
	Allowances float64 `json:"allowances"`
	Deductions float64 `json:"deductions"`
	NetPay     float64 `json:"netPay"`
	Status     string  `json:"status"`
}
