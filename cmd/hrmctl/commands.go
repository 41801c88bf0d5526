package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/notification"
	"github.com/raynx/hrm-portal/push"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
	"github.com/raynx/hrm-portal/timecalc"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("HRM_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or HRM_PASSWORD) are required")
			}
			res := a.store.Login(cmd.Context(), email, password)
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			sess, _ := a.store.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s (%s)\n", sess.Identity.DisplayName(), sess.Identity.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.store.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			printIdentity(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func forgotPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password EMAIL",
		Short: "Request a password reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.client.ForgotPassword(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to generate reset token"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset token: %s\n", token)
			return nil
		},
	}
}

func resetPasswordCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password TOKEN",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			if err := a.client.ResetPassword(cmd.Context(), args[0], password); err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to reset password"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

// punchTarget is the session's employee, or --employee for admins
func punchTarget(sess session.Session, employee int64) (int64, error) {
	if employee != 0 {
		if !attendance.ScopeFor(sess.Identity).Admin {
			return 0, fmt.Errorf("only admins can punch for another employee")
		}
		return employee, nil
	}
	if sess.Identity.EmployeeID == 0 {
		return 0, fmt.Errorf("no employee is linked to this account, use --employee")
	}
	return sess.Identity.EmployeeID, nil
}

func punchCmd(a *app, use, short string, in bool) *cobra.Command {
	var employee int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			id, err := punchTarget(sess, employee)
			if err != nil {
				return err
			}
			if in {
				_, err = attendance.CheckIn(cmd.Context(), a.client, a.bus, id)
			} else {
				_, err = attendance.CheckOut(cmd.Context(), a.client, a.bus, id)
			}
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, short+" failed"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s done at %s\n", short, time.Now().In(a.cfg.Attendance.Loc()).Format("15:04"))
			return nil
		},
	}
	cmd.Flags().Int64Var(&employee, "employee", 0, "employee id (admins only)")
	return cmd
}

func checkInCmd(a *app) *cobra.Command {
	return punchCmd(a, "checkin", "Check-in", true)
}

func checkOutCmd(a *app) *cobra.Command {
	return punchCmd(a, "checkout", "Check-out", false)
}

func autoCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-checkout",
		Short: "Close every open attendance record of today",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if err := a.client.AutoCheckout(cmd.Context()); err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Auto checkout failed"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Open records closed")
			return nil
		},
	}
}

// withView runs fn against a view of the session's scope
func withView(cmd *cobra.Command, a *app, fn func(*attendance.View) error) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	view := attendance.NewView(cmd.Context(), a.client, a.bus, attendance.ScopeFor(sess.Identity), a.cfg.Attendance)
	defer view.Close()
	return fn(view)
}

func dayCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show the attendance of one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(cmd, a, func(v *attendance.View) error {
				if date != "" {
					if err := v.SetDate(date); err != nil {
						return err
					}
				}
				printDay(cmd.OutOrStdout(), v.Day())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "ISO date, today when empty")
	return cmd
}

func weekCmd(a *app) *cobra.Command {
	var week, export string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the weekly attendance grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(cmd, a, func(v *attendance.View) error {
				if week != "" {
					if err := v.SetWeek(week); err != nil {
						return err
					}
				}
				wv := v.Week()
				if export == "" {
					printWeek(cmd.OutOrStdout(), wv)
					return nil
				}

				start, err := time.ParseInLocation(time.DateOnly, wv.WeekStart, a.cfg.Attendance.Loc())
				if err != nil {
					return err
				}
				f, err := os.Create(export)
				if err != nil {
					return fmt.Errorf("could not create %s: %w", export, err)
				}
				defer f.Close()
				if err := attendance.ExportWeek(f, start, wv.Rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(wv.Rows), export)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "any ISO date of the week, this week when empty")
	cmd.Flags().StringVar(&export, "export", "", "write the grid to this xlsx file instead")
	return cmd
}

func monthCmd(a *app) *cobra.Command {
	var year, month int
	var employee int64
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show the attendance of one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			id, err := punchTarget(sess, employee)
			if err != nil {
				return err
			}
			now := time.Now().In(a.cfg.Attendance.Loc())
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			records, err := a.client.Monthly(cmd.Context(), id, year, month)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load attendance"))
			}
			live := attendance.LiveWorked(records, now, a.cfg.Attendance.Loc())
			printDay(cmd.OutOrStdout(), attendance.DayView{
				Date: fmt.Sprintf("%04d-%02d", year, month),
				Rows: attendance.DayRows(records, live, a.cfg.Attendance),
			})
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year, this year when 0")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, this month when 0")
	cmd.Flags().Int64Var(&employee, "employee", 0, "employee id (admins only)")
	return cmd
}

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's punch state, leave balance and tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			loc := a.cfg.Attendance.Loc()
			now := time.Now().In(loc)

			if id := sess.Identity.EmployeeID; id != 0 {
				rec, err := a.client.TodayByEmployee(ctx, id)
				if err != nil {
					return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load today"))
				}
				worked := 0
				if rec != nil {
					worked = attendance.WorkedMinutes(rec, now, loc)
				}
				fmt.Fprintf(out, "Worked today: %s (%.0f%% of shift)\n",
					timecalc.FormatDuration(worked), timecalc.ShiftCompletionPercent(worked, a.cfg.Attendance.ShiftMinutes))

				leaves, err := a.client.LeavesByEmployee(ctx, id)
				if err != nil {
					return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load leaves"))
				}
				ls := attendance.LeaveStats(leaves, attendance.DefaultLeaveAllowance)
				fmt.Fprintf(out, "Leave: %d used, %d pending, %d of %d remaining\n", ls.Used, ls.Pending, ls.Remaining, ls.Total)

				tasks, err := a.client.TasksByEmployee(ctx, id)
				if err != nil {
					return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load tasks"))
				}
				for _, t := range attendance.TasksDue(tasks, now.Format(time.DateOnly)) {
					fmt.Fprintf(out, "Due today: %s [%s]\n", t.Title, t.Status)
				}
			}

			if attendance.ScopeFor(sess.Identity).Admin {
				records, err := a.client.Today(ctx)
				if err != nil {
					return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load today"))
				}
				s := attendance.TodayStats(records)
				fmt.Fprintf(out, "Present today: %d, on leave: %d\n", s.Present, s.OnLeave)
			}
			return nil
		},
	}
}

func notificationsCmd(a *app) *cobra.Command {
	var typ, date string
	var unreadOnly bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if unreadOnly {
				items, err := a.client.UnreadNotifications(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load notifications"))
				}
				printNotifications(cmd.OutOrStdout(), items, len(items))
				return nil
			}
			feed := notification.NewFeed(a.client)
			feed.LoadAll(cmd.Context())
			printNotifications(cmd.OutOrStdout(), feed.Filter(typ, date), feed.UnreadCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only this type (ALL for any)")
	cmd.Flags().StringVar(&date, "date", "", "only this ISO date")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread, straight from the server")

	cmd.AddCommand(notificationActionCmd(a, "read ID", "Mark a notification read", (*notification.Feed).MarkRead))
	cmd.AddCommand(notificationActionCmd(a, "delete ID", "Delete a notification", (*notification.Feed).Delete))
	return cmd
}

func notificationActionCmd(a *app, use, short string, action func(*notification.Feed, context.Context, int64)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			feed := notification.NewFeed(a.client)
			feed.LoadAll(cmd.Context())
			action(feed, cmd.Context(), id)
			fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", feed.UnreadCount())
			return nil
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow notifications live, ringing the bell on new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			wsURL := a.cfg.WSURL
			if wsURL == "" {
				var err error
				if wsURL, err = push.Endpoint(a.cfg.APIURL); err != nil {
					return err
				}
			}

			opts := []notification.Option{notification.WithRefreshInterval(a.cfg.NotificationRefresh)}
			if !quiet {
				opts = append(opts, notification.WithAlerter(notification.AlerterFunc(func(unread int) {
					fmt.Fprint(out, "\a")
				})))
			}
			feed := notification.NewFeed(a.client, opts...)
			unsubscribe := feed.Subscribe(func(snap notification.Snapshot) {
				fmt.Fprintf(out, "%s  %d unread\n", time.Now().Format("15:04:05"), snap.Unread)
				if len(snap.Items) > 0 {
					printNotifications(out, snap.Items[:1], snap.Unread)
				}
			})
			defer unsubscribe()

			unbind := feed.Bind(cmd.Context(), a.store, push.NewStompDialer(wsURL))
			defer unbind()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "no bell")
	return cmd
}

func eodCmd(a *app) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "eod",
		Short: "List end of day reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			if code == "" && sess.Identity.Employee != nil {
				code = sess.Identity.Employee.EmployeeCode
			}
			if code == "" {
				return fmt.Errorf("--code is required for accounts without an employee code")
			}
			reports, err := a.client.EODByEmployee(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load reports"))
			}
			printEOD(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "employee code, the session's own when empty")
	cmd.AddCommand(eodSubmitCmd(a))
	return cmd
}

func payrollCmd(a *app) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "List the payslips of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if !a.store.HasRole(structs.RoleAdmin, structs.RoleHR) {
				return fmt.Errorf("payroll is limited to admins and HR")
			}
			now := time.Now().In(a.cfg.Attendance.Loc())
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			slips, err := a.client.PayrollByMonth(cmd.Context(), year, month)
			if err != nil {
				return fmt.Errorf("%s", hrmapi.Message(err, "Failed to load payroll"))
			}
			printPayslips(cmd.OutOrStdout(), slips)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year, this year when 0")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, this month when 0")
	return cmd
}
