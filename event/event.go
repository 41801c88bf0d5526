package event

import (
	"log/slog"
	"sync"
)

// AttendanceUpdated is published after a successful check-in, check-out or auto checkout.
// Every view showing attendance re-pulls its data when it sees it.
const AttendanceUpdated = "attendance-updated"

// Bus delivers named, payload-less signals to in-process listeners
type Bus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]func()
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{listeners: make(map[string]map[int]func())}
}

// Subscribe registers fn for name. The returned func removes it and is safe to call more than once.
func (b *Bus) Subscribe(name string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.listeners[name] == nil {
		b.listeners[name] = make(map[int]func())
	}
	b.listeners[name][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners[name], id)
		})
	}
}

// Publish calls every listener of name. Listeners run on the caller's goroutine, outside the lock.
func (b *Bus) Publish(name string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners[name]))
	for _, fn := range b.listeners[name] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	slog.Debug("publishing signal", "signal", name, "listeners", len(fns))
	for _, fn := range fns {
		fn()
	}
}
