package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raynx/hrm-portal/push"
	"github.com/raynx/hrm-portal/session"
	"github.com/raynx/hrm-portal/structs"
)

type fakeAPI struct {
	mu        sync.Mutex
	list      []structs.Notification
	listErr   error
	callErr   error
	marked    []int64
	deleted   []int64
	listCalls int

	// onList runs once, inside the next Notifications call
	onList func(ctx context.Context)
}

func (a *fakeAPI) Notifications(ctx context.Context) ([]structs.Notification, error) {
	a.mu.Lock()
	a.listCalls++
	list := append([]structs.Notification{}, a.list...)
	err := a.listErr
	hook := a.onList
	a.onList = nil
	a.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return list, err
}

func (a *fakeAPI) setList(list []structs.Notification, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = list
	a.listErr = err
}

func (a *fakeAPI) MarkNotificationRead(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.marked = append(a.marked, id)
	return a.callErr
}

func (a *fakeAPI) DeleteNotification(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, id)
	return a.callErr
}

type countingAlerter struct {
	mu    sync.Mutex
	calls []int
}

func (c *countingAlerter) Alert(unread int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, unread)
}

func (c *countingAlerter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func n(id int64, read bool) structs.Notification {
	return structs.Notification{ID: id, Type: "LEAVE", Title: "t", Date: "2024-05-06T10:00:00", Read: read}
}

func TestOnPushDedupesAndPrepends(t *testing.T) {
	f := NewFeed(&fakeAPI{})
	f.OnPush(n(1, false))
	f.OnPush(n(2, false))
	f.OnPush(n(1, false))

	items := f.Items()
	if len(items) != 2 || items[0].ID != 2 || items[1].ID != 1 {
		t.Fatalf("Items() = %+v, want [2 1]", items)
	}

	// applying the same push again changes nothing
	before := f.Snapshot()
	f.OnPush(n(2, true))
	after := f.Snapshot()
	if len(after.Items) != len(before.Items) || after.Unread != before.Unread {
		t.Errorf("duplicate push changed the feed: %+v -> %+v", before, after)
	}
}

func TestLoadAllReplacesList(t *testing.T) {
	api := &fakeAPI{list: []structs.Notification{n(5, false), n(4, true), n(5, false)}}
	f := NewFeed(api)
	f.OnPush(n(99, false))

	f.LoadAll(context.Background())
	items := f.Items()
	if len(items) != 2 || items[0].ID != 5 || items[1].ID != 4 {
		t.Fatalf("Items() = %+v", items)
	}
	if f.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d, want 1", f.UnreadCount())
	}

	api.listErr = errors.New("network down")
	api.list = nil
	f.LoadAll(context.Background())
	if len(f.Items()) != 2 {
		t.Error("failed load cleared the list")
	}
}

func TestAlertRule(t *testing.T) {
	api := &fakeAPI{list: []structs.Notification{n(1, false), n(2, false)}}
	alerter := &countingAlerter{}
	f := NewFeed(api, WithAlerter(alerter))

	// the initial load records the baseline without alerting
	f.LoadAll(context.Background())
	if alerter.count() != 0 {
		t.Fatalf("initial load alerted")
	}

	// 2 -> 3 alerts
	f.OnPush(n(3, false))
	if alerter.count() != 1 {
		t.Fatalf("alerts = %d after 2->3, want 1", alerter.count())
	}

	// 3 -> 3 (a read notification arrives) does not
	f.OnPush(n(4, true))
	if alerter.count() != 1 {
		t.Errorf("alerts = %d after 3->3, want 1", alerter.count())
	}

	// 3 -> 2 does not
	f.MarkRead(context.Background(), 3)
	if alerter.count() != 1 {
		t.Errorf("alerts = %d after 3->2, want 1", alerter.count())
	}

	// 2 -> 3 again does
	f.OnPush(n(5, false))
	if alerter.count() != 2 {
		t.Errorf("alerts = %d after second 2->3, want 2", alerter.count())
	}
}

func TestPushBeforeInitialLoadDoesNotAlert(t *testing.T) {
	alerter := &countingAlerter{}
	f := NewFeed(&fakeAPI{}, WithAlerter(alerter))
	f.OnPush(n(1, false))
	if alerter.count() != 0 {
		t.Error("push during the initial load alerted")
	}
}

func TestMarkReadIsOptimistic(t *testing.T) {
	api := &fakeAPI{callErr: errors.New("500")}
	f := NewFeed(api)
	f.OnPush(n(1, false))
	f.OnPush(n(2, false))

	f.MarkRead(context.Background(), 1)
	if f.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d, want 1 even though the server failed", f.UnreadCount())
	}
	if len(api.marked) != 1 || api.marked[0] != 1 {
		t.Errorf("server calls = %v", api.marked)
	}

	// marking an already read one keeps the count
	f.MarkRead(context.Background(), 1)
	if f.UnreadCount() != 1 {
		t.Errorf("UnreadCount() = %d after re-marking", f.UnreadCount())
	}
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{callErr: errors.New("500")}
	f := NewFeed(api)
	f.OnPush(n(1, false))
	f.OnPush(n(2, true))

	f.Delete(context.Background(), 1)
	items := f.Items()
	if len(items) != 1 || items[0].ID != 2 {
		t.Errorf("Items() = %+v after delete", items)
	}
	if f.UnreadCount() != 0 {
		t.Errorf("UnreadCount() = %d", f.UnreadCount())
	}
	if len(api.deleted) != 1 {
		t.Errorf("server calls = %v", api.deleted)
	}
}

func TestFilter(t *testing.T) {
	f := NewFeed(&fakeAPI{})
	f.OnPush(structs.Notification{ID: 1, Type: "LEAVE", Date: "2024-05-06T09:00:00"})
	f.OnPush(structs.Notification{ID: 2, Type: "TASK", Date: "2024-05-06T11:00:00"})
	f.OnPush(structs.Notification{ID: 3, Type: "TASK", Date: "2024-05-07T08:00:00"})

	tests := []struct {
		typ, date string
		want      int
	}{
		{"", "", 3},
		{"ALL", "", 3},
		{"task", "", 2},
		{"ALL", "2024-05-06", 2},
		{"TASK", "2024-05-06", 1},
		{"PAYROLL", "", 0},
	}
	for _, tt := range tests {
		if got := f.Filter(tt.typ, tt.date); len(got) != tt.want {
			t.Errorf("Filter(%q, %q) = %d items, want %d", tt.typ, tt.date, len(got), tt.want)
		}
	}
}

func TestSubscribe(t *testing.T) {
	f := NewFeed(&fakeAPI{})
	var got []Snapshot
	unsubscribe := f.Subscribe(func(s Snapshot) { got = append(got, s) })

	f.OnPush(n(1, false))
	unsubscribe()
	f.OnPush(n(2, false))

	if len(got) != 1 || got[0].Unread != 1 {
		t.Errorf("snapshots = %+v", got)
	}
}

type fakeHandle struct {
	mu     sync.Mutex
	closed int
}

func (h *fakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
}

type fakeDialer struct {
	mu      sync.Mutex
	opened  []string
	tokens  []string
	handler push.Handler
	handles []*fakeHandle
}

func (d *fakeDialer) Open(ctx context.Context, token string, topics []string, h push.Handler) (push.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, topics...)
	d.tokens = append(d.tokens, token)
	d.handler = h
	handle := &fakeHandle{}
	d.handles = append(d.handles, handle)
	return handle, nil
}

type memPersister struct {
	mu sync.Mutex
	m  map[string]string
}

func (p *memPersister) Get(key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memPersister) Set(key, value string, expires time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return nil
}

func (p *memPersister) Delete(keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.m, k)
	}
	return nil
}

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, identifier, secret string) (structs.LoginResponse, error) {
	return structs.LoginResponse{Token: "tok", Identity: structs.Identity{ID: 1, Username: "ana", Role: structs.RoleManager}}, nil
}

func TestBindFollowsSession(t *testing.T) {
	api := &fakeAPI{list: []structs.Notification{n(1, false)}}
	store := session.New(&memPersister{m: map[string]string{}}, fakeAuth{})
	dialer := &fakeDialer{}
	f := NewFeed(api)

	unbind := f.Bind(context.Background(), store, dialer)
	defer unbind()

	if len(dialer.tokens) != 0 {
		t.Fatal("push channel opened without a session")
	}

	store.Login(context.Background(), "ana", "pw")
	if api.listCalls != 1 {
		t.Errorf("list calls = %d after login, want 1", api.listCalls)
	}
	if len(dialer.tokens) != 1 || dialer.tokens[0] != "tok" {
		t.Fatalf("tokens = %v", dialer.tokens)
	}
	if len(dialer.opened) != 2 || dialer.opened[1] != "/topic/notifications/ROLE_MANAGER" {
		t.Errorf("topics = %v", dialer.opened)
	}

	dialer.handler(n(2, false))
	if len(f.Items()) != 2 {
		t.Errorf("pushed notification not in feed: %+v", f.Items())
	}

	store.Logout()
	if dialer.handles[0].closed != 1 {
		t.Errorf("push handle closed %d times, want 1", dialer.handles[0].closed)
	}
	if len(f.Items()) != 0 {
		t.Errorf("feed not emptied on logout: %+v", f.Items())
	}
}

// userAuth logs in whoever asks, with a token per user
type userAuth struct{}

func (userAuth) Login(ctx context.Context, identifier, secret string) (structs.LoginResponse, error) {
	return structs.LoginResponse{
		Token:    "tok-" + identifier,
		Identity: structs.Identity{Username: identifier, Role: structs.RoleEmployee},
	}, nil
}

func TestSwitchingUserStartsNewBaseline(t *testing.T) {
	api := &fakeAPI{list: []structs.Notification{n(1, false)}}
	store := session.New(&memPersister{m: map[string]string{}}, userAuth{})
	dialer := &fakeDialer{}
	alerts := &countingAlerter{}
	f := NewFeed(api, WithAlerter(alerts))

	unbind := f.Bind(context.Background(), store, dialer)
	defer unbind()

	store.Login(context.Background(), "ana", "pw")

	// bob logs in over ana's session without a logout in between
	api.setList([]structs.Notification{n(10, false), n(11, false), n(12, false)}, nil)
	store.Login(context.Background(), "bob", "pw")

	if alerts.count() != 0 {
		t.Errorf("alerts = %d after bob's first load, want 0", alerts.count())
	}
	if got := f.UnreadCount(); got != 3 {
		t.Errorf("unread = %d, want bob's 3", got)
	}
	if dialer.handles[0].closed != 1 {
		t.Errorf("ana's push handle closed %d times, want 1", dialer.handles[0].closed)
	}

	dialer.handler(n(13, false))
	if alerts.count() != 1 {
		t.Errorf("alerts = %d after a push for bob, want 1", alerts.count())
	}
}

func TestUnauthorizedLoadDoesNotEndNextInitialLoad(t *testing.T) {
	api := &fakeAPI{}
	store := session.New(&memPersister{m: map[string]string{}}, userAuth{})
	alerts := &countingAlerter{}
	f := NewFeed(api, WithAlerter(alerts))

	unbind := f.Bind(context.Background(), store, &fakeDialer{})
	defer unbind()

	// the load answers 401, which ends the session before it returns
	api.setList(nil, errors.New("401"))
	api.onList = func(context.Context) { store.Logout() }
	store.Login(context.Background(), "ana", "pw")

	if store.State() != session.Unauthenticated {
		t.Fatalf("state = %s, want unauthenticated", store.State())
	}

	api.setList([]structs.Notification{n(1, false), n(2, false)}, nil)
	store.Login(context.Background(), "ana", "pw")

	if alerts.count() != 0 {
		t.Errorf("alerts = %d during hydration after re-login, want 0", alerts.count())
	}
	if got := f.UnreadCount(); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}
}

func TestLogoutDuringLoadDropsResult(t *testing.T) {
	api := &fakeAPI{list: []structs.Notification{n(1, false), n(2, false)}}
	store := session.New(&memPersister{m: map[string]string{}}, userAuth{})
	dialer := &fakeDialer{}
	f := NewFeed(api)

	unbind := f.Bind(context.Background(), store, dialer)
	defer unbind()

	var loadCtx context.Context
	api.onList = func(ctx context.Context) {
		loadCtx = ctx
		store.Logout()
	}
	store.Login(context.Background(), "ana", "pw")

	if store.State() != session.Unauthenticated {
		t.Fatalf("state = %s, want unauthenticated", store.State())
	}
	if items := f.Items(); len(items) != 0 {
		t.Errorf("items after logout = %d, want 0", len(items))
	}
	if loadCtx == nil || loadCtx.Err() == nil {
		t.Error("load context still live after logout")
	}
	if len(dialer.tokens) != 0 {
		t.Errorf("push channel opened for an ended session: %v", dialer.tokens)
	}
}
