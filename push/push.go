package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"github.com/google/uuid"

	"github.com/raynx/hrm-portal/structs"
)

// DefaultReconnectDelay is the fixed wait between connection attempts
const DefaultReconnectDelay = 5 * time.Second

// UserQueue is the per-user notification destination
const UserQueue = "/user/queue/notifications"

// Topics returns the destinations a user of role listens on
func Topics(role string) []string {
	return []string{UserQueue, "/topic/notifications/" + role}
}

// Handler receives every decoded notification
type Handler func(structs.Notification)

// Handle is an open push channel. Close stops it and is safe to call more than once.
type Handle interface {
	Close()
}

// Dialer opens push channels
type Dialer interface {
	Open(ctx context.Context, token string, topics []string, h Handler) (Handle, error)
}

// StompDialer speaks STOMP over a websocket to the HRM API broker
type StompDialer struct {
	endpoint       string
	reconnectDelay time.Duration
	heartBeat      time.Duration
}

// Option configures a StompDialer
type Option func(*StompDialer)

// WithReconnectDelay overrides DefaultReconnectDelay
func WithReconnectDelay(d time.Duration) Option {
	return func(s *StompDialer) { s.reconnectDelay = d }
}

// WithHeartBeat sets the STOMP heart-beat in both directions; 0 turns it off
func WithHeartBeat(d time.Duration) Option {
	return func(s *StompDialer) { s.heartBeat = d }
}

// NewStompDialer creates a dialer for the websocket endpoint, e.g. ws://host:8080/ws/websocket
func NewStompDialer(endpoint string, opts ...Option) *StompDialer {
	s := &StompDialer{
		endpoint:       endpoint,
		reconnectDelay: DefaultReconnectDelay,
		heartBeat:      10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint derives the websocket endpoint from the API base URL (http -> ws, https -> wss)
func Endpoint(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid api url %q: %w", apiBase, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/websocket"
	return u.String(), nil
}

type stompHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *stompHandle) Close() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Open starts a channel that keeps reconnecting until the handle is closed or ctx ends.
// Connection trouble is logged, never returned.
func (s *StompDialer) Open(ctx context.Context, token string, topics []string, h Handler) (Handle, error) {
	if token == "" {
		return nil, errors.New("push channel needs a token")
	}
	target, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid push endpoint %q: %w", s.endpoint, err)
	}
	q := target.Query()
	q.Set("access_token", token)
	target.RawQuery = q.Encode()

	ctx, cancel := context.WithCancel(ctx)
	handle := &stompHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		for {
			err := s.session(ctx, target, token, topics, h)
			if ctx.Err() != nil {
				slog.Debug("push channel closed")
				return
			}
			slog.Warn("push channel dropped, reconnecting", "error", err, "delay", s.reconnectDelay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}()
	return handle, nil
}

// session runs one connection until it fails or ctx ends
func (s *StompDialer) session(ctx context.Context, target *url.URL, token string, topics []string, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, target.String(), &websocket.DialOptions{
		HTTPHeader:   http.Header{"Authorization": {"Bearer " + token}},
		Subprotocols: []string{"v12.stomp", "v11.stomp"},
	})
	if err != nil {
		return fmt.Errorf("could not dial %s: %w", target.Host, err)
	}
	netConn := websocket.NetConn(ctx, ws, websocket.MessageText)

	conn, err := stomp.Connect(netConn,
		stomp.ConnOpt.Host(target.Hostname()),
		stomp.ConnOpt.Header("Authorization", "Bearer "+token),
		stomp.ConnOpt.HeartBeat(s.heartBeat, s.heartBeat),
	)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("stomp connect failed: %w", err)
	}
	defer conn.MustDisconnect()
	slog.Info("push channel connected", "topics", topics)

	msgs := make(chan *stomp.Message)
	var wg sync.WaitGroup
	for _, topic := range topics {
		sub, err := conn.Subscribe(topic, stomp.AckAuto, stomp.SubscribeOpt.Id(uuid.NewString()))
		if err != nil {
			return fmt.Errorf("could not subscribe to %s: %w", topic, err)
		}
		wg.Add(1)
		go func(sub *stomp.Subscription) {
			defer wg.Done()
			for m := range sub.C {
				select {
				case msgs <- m:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(msgs)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("every subscription ended")
			}
			if m.Err != nil {
				return fmt.Errorf("broker error: %w", m.Err)
			}
			var n structs.Notification
			if err := json.Unmarshal(m.Body, &n); err != nil {
				slog.Warn("skipping malformed notification frame", "destination", m.Destination, "error", err)
				continue
			}
			slog.Debug("push notification", "id", n.ID, "destination", m.Destination)
			h(n)
		}
	}
}
