// Command hrmctl is the terminal client of the HRM portal. It keeps its session in the
// same store the portal server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raynx/hrm-portal/config"
	"github.com/raynx/hrm-portal/database"
	"github.com/raynx/hrm-portal/event"
	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/session"
)

const appVersion = "0.3.0"

// app is what every command runs against
type app struct {
	cfg       config.Config
	persister database.Store
	client    *hrmapi.Client
	store     *session.Store
	bus       *event.Bus
}

func (a *app) close() {
	if a.persister != nil {
		a.persister.Close()
	}
}

// requireSession returns the live session or tells the user to log in
func (a *app) requireSession() (session.Session, error) {
	sess, ok := a.store.Current()
	if !ok {
		return session.Session{}, fmt.Errorf("not logged in, run hrmctl login first")
	}
	return sess, nil
}

func main() {
	var (
		envFile  string
		logLevel string
	)
	a := &app{}

	root := &cobra.Command{
		Use:           "hrmctl",
		Short:         "Terminal client for the HRM portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := new(slog.LevelVar)
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				return fmt.Errorf("the log level must be one of (debug, info, warn, error) received %s", logLevel)
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			persister, err := cfg.OpenSessionStore()
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.persister = persister
			a.client = hrmapi.New(cfg.APIURL)
			a.store = session.New(persister, a.client)
			a.client.SetTokenSource(a.store)
			a.client.SetUnauthorizedHandler(a.store.Logout)
			a.bus = event.NewBus()
			a.store.Restore(cmd.Context())
			return nil
		},
	}
	root.Version = appVersion
	root.SetVersionTemplate("hrmctl v{{.Version}}\n")
	root.PersistentFlags().StringVarP(&envFile, "env", "e", ".env", "env file to read settings from")
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warn", "slog log level")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		forgotPasswordCmd(a),
		resetPasswordCmd(a),
		checkInCmd(a),
		checkOutCmd(a),
		autoCheckoutCmd(a),
		dayCmd(a),
		weekCmd(a),
		monthCmd(a),
		dashboardCmd(a),
		notificationsCmd(a),
		watchCmd(a),
		leaveCmd(a),
		taskCmd(a),
		eodCmd(a),
		payrollCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
