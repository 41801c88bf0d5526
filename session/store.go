package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/raynx/hrm-portal/hrmapi"
	"github.com/raynx/hrm-portal/structs"
)

// keys the session is persisted under
const (
	IdentityKey = "user"
	TokenKey    = "token"
)

// DefaultLifetime is how long a persisted session survives without a new login
const DefaultLifetime = 7 * 24 * time.Hour

const loginFailed = "Login failed"

// State is the lifecycle state of a Store
type State int

const (
	Unauthenticated State = iota
	Restoring
	Authenticated
)

func (s State) String() string {
	switch s {
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is the authenticated identity plus its bearer token
type Session struct {
	Identity structs.Identity `json:"user"`
	Token    string           `json:"-"`
	// ExpiresAt is the exp claim of the token, zero for opaque tokens
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Result is the outcome of a login attempt as shown to the user
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Persister keeps small string values with an expiry across restarts.
// Get reports ok=false for missing or expired keys.
type Persister interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string, expires time.Time) error
	Delete(keys ...string) error
}

// Authenticator exchanges credentials for a token and identity
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (structs.LoginResponse, error)
}

// Store owns the one session of a process
type Store struct {
	persister Persister
	auth      Authenticator
	lifetime  time.Duration
	now       func() time.Time

	restoreOnce sync.Once

	mu      sync.RWMutex
	state   State
	current *Session

	lmu         sync.Mutex
	nextID      int
	listeners   map[int]func(State, *Session)
	logoutHooks []func()
}

// Option configures a Store
type Option func(*Store)

// WithLifetime overrides DefaultLifetime
func WithLifetime(d time.Duration) Option {
	return func(s *Store) { s.lifetime = d }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an unauthenticated store. Call Restore to pick up a persisted session.
func New(p Persister, auth Authenticator, opts ...Option) *Store {
	s := &Store{
		persister: p,
		auth:      auth,
		lifetime:  DefaultLifetime,
		now:       time.Now,
		listeners: make(map[int]func(State, *Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted session. Only the first call does any work.
// Broken or half-written state is removed and the store ends unauthenticated.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.mu.Lock()
		if s.state == Authenticated {
			s.mu.Unlock()
			return
		}
		s.state = Restoring
		s.mu.Unlock()

		sess, err := s.load()
		if err != nil {
			slog.Warn("discarding persisted session", "error", err)
			if err := s.persister.Delete(IdentityKey, TokenKey); err != nil {
				slog.Error("could not clear persisted session", "error", err)
			}
		}

		s.mu.Lock()
		if s.state != Restoring {
			// a login finished while we were reading
			s.mu.Unlock()
			return
		}
		if sess == nil {
			s.state = Unauthenticated
			s.current = nil
		} else {
			s.state = Authenticated
			s.current = sess
		}
		state := s.state
		s.mu.Unlock()

		if sess != nil {
			slog.Info("restored session", "user", sess.Identity.Username, "role", sess.Identity.Role)
		}
		s.notify(state, sess)
	})
}

// load reads the persisted pair. (nil, nil) means there was nothing to restore.
func (s *Store) load() (*Session, error) {
	rawIdentity, hasIdentity, err := s.persister.Get(IdentityKey)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", IdentityKey, err)
	}
	token, hasToken, err := s.persister.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", TokenKey, err)
	}
	if !hasIdentity && !hasToken {
		return nil, nil
	}
	if !hasIdentity || !hasToken || token == "" {
		return nil, fmt.Errorf("persisted session is missing its %s or %s", IdentityKey, TokenKey)
	}

	var identity structs.Identity
	if err := json.Unmarshal([]byte(rawIdentity), &identity); err != nil {
		return nil, fmt.Errorf("could not unmarshal persisted identity: %w", err)
	}
	if identity.Role == "" {
		identity.Role = structs.RoleEmployee
	}

	exp, isJWT := tokenExpiry(token)
	if isJWT && !exp.IsZero() && !exp.After(s.now()) {
		return nil, fmt.Errorf("persisted token expired at %s", exp.Format(time.RFC3339))
	}
	return &Session{Identity: identity, Token: token, ExpiresAt: exp}, nil
}

// Login authenticates and persists the session. It never returns an error:
// failures come back as an unsuccessful Result carrying the message to show.
func (s *Store) Login(ctx context.Context, identifier, secret string) Result {
	resp, err := s.auth.Login(ctx, identifier, secret)
	if err != nil {
		slog.Warn("login failed", "user", identifier, "error", err)
		return Result{Success: false, Message: hrmapi.Message(err, loginFailed)}
	}

	identity := resp.Identity
	if identity.Role == "" {
		identity.Role = structs.RoleEmployee
	}
	exp, _ := tokenExpiry(resp.Token)
	sess := &Session{Identity: identity, Token: resp.Token, ExpiresAt: exp}

	if err := s.persist(sess); err != nil {
		// the session still works for this process
		slog.Error("could not persist session", "error", err)
	}

	s.mu.Lock()
	s.state = Authenticated
	s.current = sess
	s.mu.Unlock()

	slog.Info("logged in", "user", identity.Username, "role", identity.Role)
	s.notify(Authenticated, sess)
	return Result{Success: true}
}

func (s *Store) persist(sess *Session) error {
	b, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("could not marshal identity: %w", err)
	}
	expires := s.now().Add(s.lifetime)
	if err := s.persister.Set(IdentityKey, string(b), expires); err != nil {
		return err
	}
	return s.persister.Set(TokenKey, sess.Token, expires)
}

// Logout ends the session, removes the persisted state and runs the logout hooks.
// Calling it without a live session does nothing.
func (s *Store) Logout() {
	s.mu.Lock()
	if s.state == Unauthenticated {
		s.mu.Unlock()
		return
	}
	prev := s.current
	s.state = Unauthenticated
	s.current = nil
	s.mu.Unlock()

	if err := s.persister.Delete(IdentityKey, TokenKey); err != nil {
		slog.Error("could not clear persisted session", "error", err)
	}
	if prev != nil {
		slog.Info("logged out", "user", prev.Identity.Username)
	}

	s.lmu.Lock()
	hooks := append([]func(){}, s.logoutHooks...)
	s.lmu.Unlock()
	for _, hook := range hooks {
		hook()
	}
	s.notify(Unauthenticated, nil)
}

// OnLogout registers fn to run after every logout
func (s *Store) OnLogout(fn func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.logoutHooks = append(s.logoutHooks, fn)
}

// OnChange registers fn for every state transition. The returned func unregisters it.
func (s *Store) OnChange(fn func(State, *Session)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			delete(s.listeners, id)
		})
	}
}

func (s *Store) notify(state State, sess *Session) {
	s.lmu.Lock()
	fns := make([]func(State, *Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	var snapshot *Session
	if sess != nil {
		cp := *sess
		snapshot = &cp
	}
	for _, fn := range fns {
		fn(state, snapshot)
	}
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the live session
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated || s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token of the live session, "" without one
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated || s.current == nil {
		return ""
	}
	return s.current.Token
}

// HasRole reports whether the live session has one of roles. No roles means any session.
func (s *Store) HasRole(roles ...string) bool {
	sess, ok := s.Current()
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if sess.Identity.Role == r {
			return true
		}
	}
	return false
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
// ok is false for tokens that are not JWTs.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, true
	}
	return exp.Time, true
}
