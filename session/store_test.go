package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/structs"
)

type entry struct {
	value   string
	expires time.Time
}

type memPersister struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]entry
	deletes int
}

func newMemPersister(now time.Time) *memPersister {
	return &memPersister{now: now, entries: make(map[string]entry)}
}

func (m *memPersister) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || !e.expires.After(m.now) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *memPersister) Set(key, value string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: expires}
	return nil
}

func (m *memPersister) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

type fakeAuth struct {
	resp structs.LoginResponse
	err  error
}

func (f fakeAuth) Login(ctx context.Context, identifier, secret string) (structs.LoginResponse, error) {
	return f.resp, f.err
}

var now = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ana", "exp": exp.Unix()}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("could not sign token: %v", err)
	}
	return tok
}

func TestRestore(t *testing.T) {
	later := now.Add(time.Hour)

	tests := []struct {
		name      string
		identity  *string
		token     *string
		wantState State
		wantKeys  int
	}{
		{"nothing persisted", nil, nil, Unauthenticated, 0},
		{"valid pair", ptr(`{"id":1,"username":"ana","role":"ROLE_HR"}`), ptr("opaque"), Authenticated, 2},
		{"corrupted identity", ptr("{not json"), ptr("opaque"), Unauthenticated, 0},
		{"token without identity", nil, ptr("opaque"), Unauthenticated, 0},
		{"identity without token", ptr(`{"id":1}`), nil, Unauthenticated, 0},
		{"expired jwt", ptr(`{"id":1}`), ptr(signed(t, now.Add(-time.Minute))), Unauthenticated, 0},
		{"live jwt", ptr(`{"id":1}`), ptr(signed(t, later)), Authenticated, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMemPersister(now)
			if tt.identity != nil {
				p.Set(IdentityKey, *tt.identity, now.Add(DefaultLifetime))
			}
			if tt.token != nil {
				p.Set(TokenKey, *tt.token, now.Add(DefaultLifetime))
			}

			s := New(p, fakeAuth{}, WithClock(func() time.Time { return now }))
			s.Restore(context.Background())

			if got := s.State(); got != tt.wantState {
				t.Errorf("State() = %s, want %s", got, tt.wantState)
			}
			if len(p.entries) != tt.wantKeys {
				t.Errorf("persisted keys = %d, want %d", len(p.entries), tt.wantKeys)
			}
			if tt.wantState == Unauthenticated && s.Token() != "" {
				t.Errorf("Token() = %q without a session", s.Token())
			}
		})
	}
}

func TestRestoreDefaultsRoleAndRunsOnce(t *testing.T) {
	p := newMemPersister(now)
	p.Set(IdentityKey, `{"id":4,"username":"raj"}`, now.Add(time.Hour))
	p.Set(TokenKey, "tok", now.Add(time.Hour))

	s := New(p, fakeAuth{})
	changes := 0
	s.OnChange(func(State, *Session) { changes++ })

	s.Restore(context.Background())
	s.Restore(context.Background())

	sess, ok := s.Current()
	if !ok {
		t.Fatal("Current() reported no session")
	}
	if sess.Identity.Role != structs.RoleEmployee {
		t.Errorf("role = %q, want %q", sess.Identity.Role, structs.RoleEmployee)
	}
	if changes != 1 {
		t.Errorf("listener called %d times, want 1", changes)
	}
}

func TestLogin(t *testing.T) {
	p := newMemPersister(now)
	resp := structs.LoginResponse{Token: "tok-9", Identity: structs.Identity{ID: 9, Username: "ana", Role: structs.RoleAdmin}}
	s := New(p, fakeAuth{resp: resp}, WithClock(func() time.Time { return now }))

	var got []State
	s.OnChange(func(st State, sess *Session) {
		got = append(got, st)
		if sess == nil || sess.Token != "tok-9" {
			t.Errorf("listener session = %+v", sess)
		}
	})

	res := s.Login(context.Background(), "ana@example.com", "pw")
	if !res.Success {
		t.Fatalf("Login() = %+v", res)
	}
	if s.State() != Authenticated || s.Token() != "tok-9" {
		t.Errorf("after login state=%s token=%q", s.State(), s.Token())
	}
	if !s.HasRole(structs.RoleAdmin, structs.RoleHR) || s.HasRole(structs.RoleEmployee) {
		t.Error("HasRole() does not match the session role")
	}
	for _, k := range []string{IdentityKey, TokenKey} {
		e, ok := p.entries[k]
		if !ok {
			t.Fatalf("%s not persisted", k)
		}
		if !e.expires.Equal(now.Add(7 * 24 * time.Hour)) {
			t.Errorf("%s expires %s, want seven days out", k, e.expires)
		}
	}
	if len(got) != 1 || got[0] != Authenticated {
		t.Errorf("transitions = %v", got)
	}
}

func TestLoginFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &hrmapi.APIError{Status: 401, Message: "Invalid credentials"}, "Invalid credentials"},
		{"network error", errors.New("dial tcp: refused"), "Login failed"},
		{"empty server message", &hrmapi.APIError{Status: 500}, "Login failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMemPersister(now)
			s := New(p, fakeAuth{err: tt.err})
			res := s.Login(context.Background(), "a", "b")
			if res.Success || res.Message != tt.want {
				t.Errorf("Login() = %+v, want message %q", res, tt.want)
			}
			if s.State() != Unauthenticated || len(p.entries) != 0 {
				t.Errorf("failed login left state=%s keys=%d", s.State(), len(p.entries))
			}
		})
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	p := newMemPersister(now)
	s := New(p, fakeAuth{resp: structs.LoginResponse{Token: "t", Identity: structs.Identity{ID: 1}}})
	s.Login(context.Background(), "a", "b")

	hooks, changes := 0, 0
	s.OnLogout(func() { hooks++ })
	unsubscribe := s.OnChange(func(st State, sess *Session) {
		changes++
		if st != Unauthenticated || sess != nil {
			t.Errorf("logout notified %s, %+v", st, sess)
		}
	})

	s.Logout()
	s.Logout()

	if hooks != 1 || changes != 1 {
		t.Errorf("hooks=%d changes=%d, want 1 and 1", hooks, changes)
	}
	if len(p.entries) != 0 {
		t.Errorf("persisted keys left after logout: %v", p.entries)
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() still reports a session")
	}

	unsubscribe()
	unsubscribe()
	s.Login(context.Background(), "a", "b")
	if changes != 1 {
		t.Errorf("unsubscribed listener still called")
	}
}

func TestLoginBlankRoleDefaultsToEmployee(t *testing.T) {
	s := New(newMemPersister(now), fakeAuth{resp: structs.LoginResponse{Token: "t", Identity: structs.Identity{ID: 2}}})
	s.Login(context.Background(), "a", "b")
	sess, _ := s.Current()
	if sess.Identity.Role != structs.RoleEmployee {
		t.Errorf("role = %q", sess.Identity.Role)
	}
}

func ptr(s string) *string { return &s }
