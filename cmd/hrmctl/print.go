package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printIdentity(w io.Writer, sess session.Session) {
	id := sess.Identity
	fmt.Fprintf(w, "User:     %s <%s>\n", id.DisplayName(), id.Email)
	fmt.Fprintf(w, "Role:     %s\n", id.Role)
	if id.EmployeeID != 0 {
		fmt.Fprintf(w, "Employee: %d\n", id.EmployeeID)
	}
	if !sess.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires:  %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
}

func printDay(w io.Writer, day attendance.DayView) {
	fmt.Fprintf(w, "Attendance %s\n", day.Date)
	if len(day.Rows) == 0 {
		fmt.Fprintln(w, "No records")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "EMPLOYEE\tCODE\tIN\tOUT\tWORKED\tSTATUS")
	for _, r := range day.Rows {
		in := r.CheckIn
		if r.Late {
			in += " late"
		}
		status := r.Status
		if r.Online {
			status = "Online"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Code, in, r.CheckOut, r.Worked, status)
	}
	tw.Flush()
}

func printWeek(w io.Writer, week attendance.WeekView) {
	fmt.Fprintf(w, "Week of %s\n", week.WeekStart)
	tw := table(w)
	fmt.Fprintln(tw, "EMPLOYEE\tMON\tTUE\tWED\tTHU\tFRI\tSAT\tSUN")
	for _, r := range week.Rows {
		cells := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, weekCell(c))
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, strings.Join(cells, "\t"))
	}
	tw.Flush()
	if s := week.Summary; s != nil {
		fmt.Fprintf(w, "Present %d  Leave %d  Weekend %d  Payable %d\n", s.Present, s.Leave, s.Weekend, s.Payable)
	}
}

func weekCell(c attendance.Cell) string {
	switch c.Status {
	case attendance.StatusPresent, attendance.StatusOnline:
		s := string(c.Status) + " " + c.Worked
		if c.Late {
			s += "*"
		}
		return s
	default:
		return string(c.Status)
	}
}

func printNotifications(w io.Writer, items []structs.Notification, unread int) {
	tw := table(w)
	for _, n := range items {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", mark, n.ID, n.Type, n.Date, n.Title, n.Message)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d shown, %d unread\n", len(items), unread)
}

func printLeaves(w io.Writer, leaves []structs.Leave) {
	if len(leaves) == 0 {
		fmt.Fprintln(w, "No leave requests")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTYPE\tFROM\tTO\tDAYS\tSTATUS\tREASON")
	for _, l := range leaves {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", l.ID, l.LeaveType, l.StartDate, l.EndDate, l.Days, l.Status, l.Reason)
	}
	tw.Flush()
}

func printTasks(w io.Writer, tasks []structs.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPRIORITY\tDUE\tSTATUS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Priority, t.DueDate, t.Status)
	}
	tw.Flush()
}

func printEOD(w io.Writer, reports []structs.EODReport) {
	tw := table(w)
	fmt.Fprintln(tw, "DATE\tSUMMARY\tBLOCKERS")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Date, r.Summary, r.Blockers)
	}
	tw.Flush()
}

func printPayslips(w io.Writer, slips []structs.Payslip) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tMONTH\tBASIC\tALLOWANCES\tDEDUCTIONS\tNET\tSTATUS")
	for _, p := range slips {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n", p.ID, p.Month, p.Basic, p.Allowances, p.Deductions, p.NetPay, p.Status)
	}
	tw.Flush()
}
