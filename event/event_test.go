package event

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var a, b int
	unsubA := bus.Subscribe(AttendanceUpdated, func() { a++ })
	bus.Subscribe(AttendanceUpdated, func() { b++ })
	bus.Subscribe("other", func() { t.Error("listener of another signal was called") })

	bus.Publish(AttendanceUpdated)
	if a != 1 || b != 1 {
		t.Fatalf("after first publish a=%d b=%d, want 1 1", a, b)
	}

	unsubA()
	unsubA()
	bus.Publish(AttendanceUpdated)
	if a != 1 || b != 2 {
		t.Fatalf("after unsubscribe a=%d b=%d, want 1 2", a, b)
	}
}

func TestListenerMaySubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(AttendanceUpdated, func() {
		calls++
		bus.Subscribe(AttendanceUpdated, func() { calls++ })
	})

	bus.Publish(AttendanceUpdated)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
