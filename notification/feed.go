package notification

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raynx/hrm-portal/push"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

// API is the part of the HRM API the feed talks to
type API interface {
	Notifications(ctx context.Context) ([]structs.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	DeleteNotification(ctx context.Context, id int64) error
}

// Alerter plays the "new notification" sound
type Alerter interface {
	Alert(unread int)
}

// AlerterFunc adapts a func to Alerter
type AlerterFunc func(unread int)

func (f AlerterFunc) Alert(unread int) { f(unread) }

// Snapshot is the feed at one moment. Alert is set when this change fired the sound alert.
type Snapshot struct {
	Items  []structs.Notification `json:"items"`
	Unread int                    `json:"unread"`
	Alert  bool                   `json:"alert"`
}

// Feed is the newest-first, de-duplicated notification list of the session's user
type Feed struct {
	api     API
	alerter Alerter
	refresh time.Duration

	mu          sync.Mutex
	items       []structs.Notification
	initialLoad bool
	prevUnread  int
	epoch       int // bumped by Reset

	smu    sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)

	bmu           sync.Mutex
	gen           int
	handle        push.Handle
	cancelSession context.CancelFunc
}

// Option configures a Feed
type Option func(*Feed)

// WithAlerter sets who is told when the unread count goes up
func WithAlerter(a Alerter) Option {
	return func(f *Feed) { f.alerter = a }
}

// WithRefreshInterval reloads the whole list every d while bound to a live session
func WithRefreshInterval(d time.Duration) Option {
	return func(f *Feed) { f.refresh = d }
}

// NewFeed creates an empty feed
func NewFeed(api API, opts ...Option) *Feed {
	f := &Feed{
		api:         api,
		initialLoad: true,
		subs:        make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoadAll replaces the list with the server's. On failure the list is kept.
// The first completed load ends the initial load either way.
// A load that outlives a Reset is dropped.
func (f *Feed) LoadAll(ctx context.Context) {
	f.mu.Lock()
	epoch := f.epoch
	f.mu.Unlock()

	items, err := f.api.Notifications(ctx)

	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		slog.Debug("dropped notifications loaded before a reset")
		return
	}
	if err != nil {
		slog.Error("failed to load notifications", "error", err)
		f.initialLoad = false
		f.mu.Unlock()
		return
	}
	f.items = dedupe(items)
	snap := f.evaluateLocked()
	f.initialLoad = false
	f.mu.Unlock()

	slog.Debug("loaded notifications", "count", len(snap.Items), "unread", snap.Unread)
	f.publish(snap)
}

// OnPush adds a notification delivered by the push channel, unless its id is already known
func (f *Feed) OnPush(n structs.Notification) {
	f.mu.Lock()
	for _, existing := range f.items {
		if existing.ID == n.ID {
			f.mu.Unlock()
			return
		}
	}
	f.items = append([]structs.Notification{n}, f.items...)
	snap := f.evaluateLocked()
	f.mu.Unlock()

	f.publish(snap)
}

// MarkRead flips the notification to read locally, then tells the server.
// A server failure is only logged.
func (f *Feed) MarkRead(ctx context.Context, id int64) {
	f.mu.Lock()
	changed := false
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].Read {
			f.items[i].Read = true
			changed = true
		}
	}
	var snap Snapshot
	if changed {
		snap = f.evaluateLocked()
	}
	f.mu.Unlock()

	if changed {
		f.publish(snap)
	}
	if err := f.api.MarkNotificationRead(ctx, id); err != nil {
		slog.Error("Mark read failed", "id", id, "error", err)
	}
}

// Delete removes the notification locally, then tells the server.
// A server failure is only logged.
func (f *Feed) Delete(ctx context.Context, id int64) {
	f.mu.Lock()
	kept := f.items[:0:0]
	for _, n := range f.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	changed := len(kept) != len(f.items)
	f.items = kept
	var snap Snapshot
	if changed {
		snap = f.evaluateLocked()
	}
	f.mu.Unlock()

	if changed {
		f.publish(snap)
	}
	if err := f.api.DeleteNotification(ctx, id); err != nil {
		slog.Error("Delete failed", "id", id, "error", err)
	}
}

// Reset empties the feed and starts a new initial load
func (f *Feed) Reset() {
	f.mu.Lock()
	f.items = nil
	f.initialLoad = true
	f.prevUnread = 0
	f.epoch++
	snap := Snapshot{Items: []structs.Notification{}}
	f.mu.Unlock()

	f.publish(snap)
}

// Items returns a copy of the list, newest first
func (f *Feed) Items() []structs.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]structs.Notification{}, f.items...)
}

// UnreadCount is the number of unread notifications
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return unread(f.items)
}

// Snapshot returns the current list and unread count
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{Items: append([]structs.Notification{}, f.items...), Unread: unread(f.items)}
}

// Filter returns the notifications of typ ("" or "ALL" for any) on date ("" for any)
func (f *Feed) Filter(typ, date string) []structs.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []structs.Notification{}
	for _, n := range f.items {
		if typ != "" && !strings.EqualFold(typ, "ALL") && !strings.EqualFold(typ, n.Type) {
			continue
		}
		if date != "" && !strings.HasPrefix(n.Date, date) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Subscribe registers fn for every change of the feed. The returned func unregisters it.
func (f *Feed) Subscribe(fn func(Snapshot)) func() {
	f.smu.Lock()
	defer f.smu.Unlock()
	f.nextID++
	id := f.nextID
	f.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			f.smu.Lock()
			defer f.smu.Unlock()
			delete(f.subs, id)
		})
	}
}

// evaluateLocked applies the sound alert rule and snapshots the feed. f.mu must be held.
func (f *Feed) evaluateLocked() Snapshot {
	count := unread(f.items)
	alert := !f.initialLoad && count > f.prevUnread
	f.prevUnread = count
	return Snapshot{
		Items:  append([]structs.Notification{}, f.items...),
		Unread: count,
		Alert:  alert,
	}
}

func (f *Feed) publish(snap Snapshot) {
	if snap.Alert && f.alerter != nil {
		f.alerter.Alert(snap.Unread)
	}

	f.smu.Lock()
	fns := make([]func(Snapshot), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.smu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Bind ties the feed to the session lifecycle: load and open the push channel on login,
// close it and empty the feed on logout. The returned func unbinds and closes the channel.
func (f *Feed) Bind(ctx context.Context, store *session.Store, dialer push.Dialer) func() {
	unsubscribe := store.OnChange(func(state session.State, sess *session.Session) {
		switch state {
		case session.Authenticated:
			f.start(ctx, *sess, dialer)
		case session.Unauthenticated:
			f.stop()
			f.Reset()
		}
	})

	if sess, ok := store.Current(); ok {
		f.start(ctx, sess, dialer)
	}

	return func() {
		unsubscribe()
		f.stop()
	}
}

func (f *Feed) start(ctx context.Context, sess session.Session, dialer push.Dialer) {
	f.stop()
	// a new user starts from an empty list and a fresh alert baseline
	f.Reset()

	sctx, cancel := context.WithCancel(ctx)
	f.bmu.Lock()
	f.gen++
	gen := f.gen
	f.cancelSession = cancel
	f.bmu.Unlock()

	f.LoadAll(sctx)

	f.bmu.Lock()
	defer f.bmu.Unlock()
	if gen != f.gen {
		// logged out (or in again) while loading, stop already cancelled sctx
		return
	}

	handle, err := dialer.Open(sctx, sess.Token, push.Topics(sess.Identity.Role), f.OnPush)
	if err != nil {
		slog.Error("could not open push channel", "error", err)
	} else {
		f.handle = handle
	}

	if f.refresh > 0 {
		go f.refreshLoop(sctx)
	}
}

func (f *Feed) stop() {
	f.bmu.Lock()
	f.gen++
	handle := f.handle
	cancel := f.cancelSession
	f.handle = nil
	f.cancelSession = nil
	f.bmu.Unlock()

	if cancel != nil {
		cancel()
	}
	if handle != nil {
		handle.Close()
	}
}

func (f *Feed) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(f.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.LoadAll(ctx)
		}
	}
}

func unread(items []structs.Notification) int {
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count
}

// dedupe keeps the first occurrence of every id
func dedupe(items []structs.Notification) []structs.Notification {
	seen := make(map[int64]bool, len(items))
	out := make([]structs.Notification, 0, len(items))
	for _, n := range items {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}
