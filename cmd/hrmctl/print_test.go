package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

func TestPunchTarget(t *testing.T) {
	tests := []struct {
		name     string
		identity structs.Identity
		employee int64
		want     int64
		wantErr  bool
	}{
		{"own", structs.Identity{Role: structs.RoleEmployee, EmployeeID: 3}, 0, 3, false},
		{"employee for someone else", structs.Identity{Role: structs.RoleEmployee, EmployeeID: 3}, 9, 0, true},
		{"admin for someone else", structs.Identity{Role: structs.RoleAdmin}, 9, 9, false},
		{"admin without employee", structs.Identity{Role: structs.RoleAdmin}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := punchTarget(session.Session{Identity: tt.identity}, tt.employee)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("punchTarget() = %d, %v", got, err)
			}
		})
	}
}

func TestPrintDay(t *testing.T) {
	var buf bytes.Buffer
	printDay(&buf, attendance.DayView{Date: "2024-05-06", Rows: []attendance.DayRow{
		{Name: "Ana Ruiz", CheckIn: "10:20", CheckOut: "--:--", Late: true, Online: true, Worked: "02 hrs 00 min", Status: "PRESENT"},
	}})
	out := buf.String()
	for _, want := range []string{"Attendance 2024-05-06", "Ana Ruiz", "10:20 late", "Online"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printDay(&buf, attendance.DayView{Date: "2024-05-07"})
	if !strings.Contains(buf.String(), "No records") {
		t.Errorf("empty day = %q", buf.String())
	}
}

func TestPrintWeek(t *testing.T) {
	var row attendance.WeekRow
	row.Name = "Ana Ruiz"
	row.Cells[0] = attendance.Cell{Status: attendance.StatusPresent, Worked: "08 hrs 15 min", Late: true}
	row.Cells[1] = attendance.Cell{Status: attendance.StatusLeave}
	for i := 2; i < 7; i++ {
		row.Cells[i] = attendance.Cell{Status: attendance.StatusUpcoming}
	}

	var buf bytes.Buffer
	printWeek(&buf, attendance.WeekView{
		WeekStart: "2024-05-06",
		Rows:      []attendance.WeekRow{row},
		Summary:   &structs.WeeklySummary{Present: 1, Leave: 1, Weekend: 2, Payable: 4},
	})
	out := buf.String()
	for _, want := range []string{"Week of 2024-05-06", "Present 08 hrs 15 min*", "Leave", "Upcoming", "Payable 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestPrintNotifications(t *testing.T) {
	var buf bytes.Buffer
	printNotifications(&buf, []structs.Notification{
		{ID: 2, Type: "LEAVE", Title: "Leave approved"},
		{ID: 1, Type: "TASK", Title: "New task", Read: true},
	}, 1)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "*") || strings.HasPrefix(lines[1], "*") {
		t.Errorf("unread marks wrong: %q", lines)
	}
	if lines[2] != "2 shown, 1 unread" {
		t.Errorf("footer = %q", lines[2])
	}
}

func TestPrintLeaves(t *testing.T) {
	var buf bytes.Buffer
	printLeaves(&buf, []structs.Leave{
		{ID: 4, LeaveType: structs.LeaveSick, StartDate: "2024-05-06", EndDate: "2024-05-07", Days: 2, Status: structs.LeavePending, Reason: "flu"},
	})
	out := buf.String()
	for _, want := range []string{"TYPE", "SICK", "2024-05-07", "PENDING", "flu"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printLeaves(&buf, nil)
	if strings.TrimSpace(buf.String()) != "No leave requests" {
		t.Errorf("empty = %q", buf.String())
	}
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	printTasks(&buf, []structs.Task{{ID: 9, Title: "Ship export", Priority: "HIGH", DueDate: "2024-05-06", Status: structs.TaskInProgress}})
	if out := buf.String(); !strings.Contains(out, "Ship export") || !strings.Contains(out, "IN_PROGRESS") {
		t.Errorf("output = %q", out)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("12"); err != nil || id != 12 {
		t.Errorf("parseID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "x"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) error = nil", bad)
		}
	}
}
