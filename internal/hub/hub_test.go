package hub

import (
	"errors"
	"testing"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

func TestRegisterAndCount(t *testing.T) {
	h := NewHub(4)
	if h.Count() != 0 {
		t.Fatalf("fresh hub should be empty, got %d", h.Count())
	}

	a := h.NewSession(nil, 1, "device-a")
	b := h.NewSession(nil, 2, "device-b")
	h.Register(a)
	h.Register(b)
	if h.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", h.Count())
	}

	h.Unregister(a)
	if h.Count() != 1 {
		t.Fatalf("expected 1 session after unregister, got %d", h.Count())
	}
	if a.IsOpen() {
		t.Fatal("unregistered session must be closed")
	}
}

func TestBroadcastExcludesOneSession(t *testing.T) {
	h := NewHub(4)
	a := h.NewSession(nil, 1, "device-a")
	b := h.NewSession(nil, 2, "device-b")
	c := h.NewSession(nil, 3, "device-c")
	h.Register(a)
	h.Register(b)
	h.Register(c)

	h.Broadcast([]byte("hello"), a.ID)

	if len(a.Send) != 0 {
		t.Fatalf("excluded session received %d messages", len(a.Send))
	}
	for _, session := range []*Session{b, c} {
		if len(session.Send) != 1 {
			t.Fatalf("session %s expected 1 message, got %d", session.ID, len(session.Send))
		}
		if got := string(<-session.Send); got != "hello" {
			t.Fatalf("unexpected payload %q", got)
		}
	}
}

func TestSendToClosedSessionIsDropped(t *testing.T) {
	h := NewHub(4)
	a := h.NewSession(nil, 1, "device-a")
	h.Register(a)
	a.Close()

	// Must not panic on the closed channel.
	h.SendIfOpen(a, []byte("late"))
}

func TestCloseIsIdempotent(t *testing.T) {
	h := NewHub(4)
	a := h.NewSession(nil, 1, "device-a")
	a.Close()
	a.Close()
	if a.IsOpen() {
		t.Fatal("closed session reports open")
	}
}

func TestFindByDeviceIdentifier(t *testing.T) {
	h := NewHub(4)
	a := h.NewSession(nil, 1, "device-a")
	h.Register(a)

	found, err := h.FindByDeviceIdentifier("device-a")
	if err != nil {
		t.Fatalf("FindByDeviceIdentifier failed: %v", err)
	}
	if found.ID != a.ID {
		t.Fatalf("found wrong session: %s", found.ID)
	}

	if _, err := h.FindByDeviceIdentifier("device-x"); !errors.Is(err, domain.ErrTargetOffline) {
		t.Fatalf("expected ErrTargetOffline, got %v", err)
	}

	// A closed session no longer counts as connected.
	a.Close()
	if _, err := h.FindByDeviceIdentifier("device-a"); !errors.Is(err, domain.ErrTargetOffline) {
		t.Fatalf("expected ErrTargetOffline for closed session, got %v", err)
	}
}

func TestEnqueueReportsFullBuffer(t *testing.T) {
	h := NewHub(1)
	a := h.NewSession(nil, 1, "device-a")
	h.Register(a)

	if err := a.enqueue([]byte("one")); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := a.enqueue([]byte("two")); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}
