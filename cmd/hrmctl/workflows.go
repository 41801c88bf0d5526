package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/structs"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ID must be a positive number")
	}
	return id, nil
}

func leaveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "List leave requests, your own or everyone's for approvers",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			var leaves []structs.Leave
			if attendance.ScopeFor(sess.Identity).Admin {
				leaves, err = a.client.AllLeaves(cmd.Context())
			} else if sess.Identity.EmployeeID == 0 {
				return attendance.ErrNoEmployee
			} else {
				leaves, err = a.client.LeavesByEmployee(cmd.Context(), sess.Identity.EmployeeID)
			}
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load leaves"))
			}
			printLeaves(cmd.OutOrStdout(), leaves)
			return nil
		},
	}
	cmd.AddCommand(
		leaveApplyCmd(a),
		leavePendingCmd(a),
		leaveActionCmd(a, structs.LeaveApprove),
		leaveActionCmd(a, structs.LeaveReject),
	)
	return cmd
}

func leaveApplyCmd(a *app) *cobra.Command {
	var typ, from, to, reason string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply for leave",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			if to == "" {
				to = from
			}
			application, err := attendance.NewLeaveApplication(sess.Identity, typ, from, to, reason, a.cfg.Attendance.Loc())
			if err != nil {
				return err
			}
			leave, err := a.client.ApplyLeave(cmd.Context(), application)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to apply leave"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Leave %d applied: %s %s to %s, %s\n",
				leave.ID, application.LeaveType, application.StartDate, application.EndDate, leave.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", structs.LeaveSick, "SICK, CASUAL or ANNUAL")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (the first day when empty)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the approver")
	cmd.MarkFlagRequired("from")
	return cmd
}

func leavePendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List leave requests waiting for a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if !a.store.HasRole(structs.RoleAdmin, structs.RoleManager, structs.RoleHR) {
				return fmt.Errorf("pending leaves are limited to admins, managers and HR")
			}
			leaves, err := a.client.PendingLeaves(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load pending leaves"))
			}
			printLeaves(cmd.OutOrStdout(), leaves)
			return nil
		},
	}
}

func leaveActionCmd(a *app, action string) *cobra.Command {
	var comment string
	use := "approve"
	if action == structs.LeaveReject {
		use = "reject"
	}
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: "Act on a pending leave: " + use,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			if !a.store.HasRole(structs.RoleAdmin, structs.RoleManager, structs.RoleHR) {
				return fmt.Errorf("only admins, managers and HR can %s leaves", use)
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			la, err := attendance.NewLeaveAction(sess.Identity, action, comment)
			if err != nil {
				return err
			}
			leave, err := a.client.ActOnLeave(cmd.Context(), id, la)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to perform action"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Leave %d is now %s\n", id, leave.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "comment for the applicant")
	return cmd
}

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "List your tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			if sess.Identity.EmployeeID == 0 {
				return attendance.ErrNoEmployee
			}
			tasks, err := a.client.TasksByEmployee(cmd.Context(), sess.Identity.EmployeeID)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load tasks"))
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move a task to PENDING, IN_PROGRESS or COMPLETED",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := attendance.TaskStatus(args[1])
			if err != nil {
				return err
			}
			task, err := a.client.UpdateTaskStatus(cmd.Context(), id, status)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to update task"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d marked as %s\n", id, task.Status)
			return nil
		},
	})
	return cmd
}

func eodSubmitCmd(a *app) *cobra.Command {
	var summary, blockers string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit today's end of day report",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			report, err := attendance.NewEODReport(sess.Identity, summary, blockers, time.Now().In(a.cfg.Attendance.Loc()))
			if err != nil {
				return err
			}
			created, err := a.client.CreateEOD(cmd.Context(), report)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to submit EOD."))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "EOD for %s submitted (%s)\n", report.Date, created.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "what you worked on")
	cmd.Flags().StringVar(&blockers, "blockers", "", "anything blocking you")
	cmd.MarkFlagRequired("summary")
	return cmd
}
