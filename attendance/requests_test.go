package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/raynx/hrm-portal/structs"
)

var linkedAna = structs.Identity{
	Username: "ana", Role: structs.RoleEmployee, EmployeeID: 3,
	Employee: &structs.EmployeeBrief{FirstName: "Ana", EmployeeCode: "E3"},
}

func TestNewLeaveApplication(t *testing.T) {
	tests := []struct {
		name             string
		id               structs.Identity
		typ, from, to    string
		wantType, wantTo string
		wantErr          bool
	}{
		{"valid", linkedAna, "sick", "2024-05-06", "2024-05-07", "SICK", "2024-05-07", false},
		{"date-time input", linkedAna, "ANNUAL", "2024-05-06T00:00:00", "2024-05-06T00:00:00", "ANNUAL", "2024-05-06", false},
		{"unknown type", linkedAna, "SABBATICAL", "2024-05-06", "2024-05-07", "", "", true},
		{"missing date", linkedAna, "SICK", "2024-05-06", "", "", "", true},
		{"ends before start", linkedAna, "SICK", "2024-05-07", "2024-05-06", "", "", true},
		{"no employee", structs.Identity{Username: "root"}, "SICK", "2024-05-06", "2024-05-07", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLeaveApplication(tt.id, tt.typ, tt.from, tt.to, " flu ", time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLeaveApplication() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.EmployeeID != 3 || got.LeaveType != tt.wantType || got.EndDate != tt.wantTo || got.Reason != "flu" {
				t.Errorf("NewLeaveApplication() = %+v", got)
			}
		})
	}

	if _, err := NewLeaveApplication(structs.Identity{}, "SICK", "2024-05-06", "2024-05-06", "", time.UTC); !errors.Is(err, ErrNoEmployee) {
		t.Errorf("error = %v, want ErrNoEmployee", err)
	}
}

func TestNewLeaveAction(t *testing.T) {
	got, err := NewLeaveAction(linkedAna, "approve", "")
	if err != nil || got.Action != structs.LeaveApprove || got.Comment != "APPROVE by Ana" || got.ActorEmployeeID != 3 {
		t.Errorf("NewLeaveAction() = %+v, %v", got, err)
	}
	got, err = NewLeaveAction(structs.Identity{Username: "root"}, "REJECT", "overlaps")
	if err != nil || got.Comment != "overlaps" || got.ActorEmployeeID != 0 {
		t.Errorf("NewLeaveAction() = %+v, %v", got, err)
	}
	if _, err := NewLeaveAction(linkedAna, "maybe", ""); err == nil {
		t.Error("NewLeaveAction(maybe) error = nil")
	}
}

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"completed", structs.TaskCompleted, false},
		{"in-progress", structs.TaskInProgress, false},
		{" PENDING ", structs.TaskPending, false},
		{"done", "", true},
	}
	for _, tt := range tests {
		got, err := TaskStatus(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("TaskStatus(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewEODReport(t *testing.T) {
	now := time.Date(2024, 5, 6, 18, 30, 0, 0, time.UTC)
	got, err := NewEODReport(linkedAna, " fixed export ", "", now)
	if err != nil {
		t.Fatalf("NewEODReport() error = %v", err)
	}
	if got.EmployeeID != 3 || got.EmployeeCode != "E3" || got.Date != "2024-05-06" || got.Summary != "fixed export" || got.Status != structs.EODSubmitted {
		t.Errorf("NewEODReport() = %+v", got)
	}
	if _, err := NewEODReport(linkedAna, "  ", "", now); err == nil {
		t.Error("blank summary accepted")
	}
	if _, err := NewEODReport(structs.Identity{}, "x", "", now); !errors.Is(err, ErrNoEmployee) {
		t.Errorf("error = %v, want ErrNoEmployee", err)
	}
}
