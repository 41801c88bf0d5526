package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/raynx/hrm-portal/structs"
)

// Ticker recomputes the live worked time of a set of records every interval.
// Ticks run on one goroutine so they never overlap.
type Ticker struct {
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	onTick   func(map[int64]string)

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a stopped ticker that hands every fresh live map to onTick
func NewTicker(interval time.Duration, loc *time.Location, onTick func(map[int64]string)) *Ticker {
	return &Ticker{interval: interval, loc: loc, now: time.Now, onTick: onTick}
}

// Start begins ticking over records, replacing any running set. The ticker stops with ctx.
func (t *Ticker) Start(ctx context.Context, records []structs.AttendanceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parent = ctx
	t.restartLocked(records)
}

// Replace swaps the visible record set, restarting the ticker under the context of the last Start
func (t *Ticker) Replace(records []structs.AttendanceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parent == nil {
		t.parent = context.Background()
	}
	t.restartLocked(records)
}

// Stop ends ticking and waits for a tick in progress
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Ticker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

func (t *Ticker) restartLocked(records []structs.AttendanceRecord) {
	t.stopLocked()

	records = append([]structs.AttendanceRecord{}, records...)
	ctx, cancel := context.WithCancel(t.parent)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go func() {
		defer close(done)
		t.onTick(LiveWorked(records, t.now(), t.loc))

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.onTick(LiveWorked(records, t.now(), t.loc))
			}
		}
	}()
}
