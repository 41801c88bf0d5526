package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raynx/hrm-portal/event"
	"github.com/raynx/hrm-portal/structs"
)

// Clock is the part of the HRM API that punches an employee in and out
type Clock interface {
	CheckIn(ctx context.Context, employeeID int64) (structs.AttendanceRecord, error)
	CheckOut(ctx context.Context, employeeID int64) (structs.AttendanceRecord, error)
}

// CheckIn punches the employee in and tells every view to reload
func CheckIn(ctx context.Context, api Clock, bus *event.Bus, employeeID int64) (structs.AttendanceRecord, error) {
	rec, err := api.CheckIn(ctx, employeeID)
	if err != nil {
		slog.Error("check in failed", "employee_id", employeeID, "error", err)
		return rec, err
	}
	slog.Info("checked in", "employee_id", employeeID)
	bus.Publish(event.AttendanceUpdated)
	return rec, nil
}

// CheckOut punches the employee out and tells every view to reload
func CheckOut(ctx context.Context, api Clock, bus *event.Bus, employeeID int64) (structs.AttendanceRecord, error) {
	rec, err := api.CheckOut(ctx, employeeID)
	if err != nil {
		slog.Error("check out failed", "employee_id", employeeID, "error", err)
		return rec, err
	}
	slog.Info("checked out", "employee_id", employeeID)
	bus.Publish(event.AttendanceUpdated)
	return rec, nil
}

// AutoCheckoutAPI closes every open record of the day
type AutoCheckoutAPI interface {
	AutoCheckout(ctx context.Context) error
}

// AutoCheckout runs the end of day checkout once at the configured minute of the day
type AutoCheckout struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartAutoCheckout schedules the call for today at cfg.AutoCheckoutMinute, right away when that is
// already past. A successful call publishes attendance-updated.
func StartAutoCheckout(ctx context.Context, api AutoCheckoutAPI, bus *event.Bus, cfg Config, now time.Time) *AutoCheckout {
	loc := cfg.Loc()
	now = now.In(loc)
	at := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(cfg.AutoCheckoutMinute) * time.Minute)
	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &AutoCheckout{cancel: cancel, done: make(chan struct{})}
	slog.Info("auto checkout scheduled", "at", at.Format(time.RFC3339), "in", wait.String())

	go func() {
		defer close(a.done)
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := api.AutoCheckout(ctx); err != nil {
			slog.Error("Auto checkout failed", "error", err)
			return
		}
		slog.Info("Auto checkout completed at end of day")
		bus.Publish(event.AttendanceUpdated)
	}()
	return a
}

// Stop cancels a pending auto checkout and waits for a running one
func (a *AutoCheckout) Stop() {
	a.once.Do(func() {
		a.cancel()
		<-a.done
	})
}
