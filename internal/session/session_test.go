package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/leadscout/internal/store"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestTracker(ttl time.Duration) (*Tracker, *clock) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(ttl)
	tr.now = c.Now
	return tr, c
}

func TestGetOrCreateReturnsActiveSession(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(time.Minute)
	key := store.Key{UserID: "u", ChatID: "1", SessionUUID: "s"}

	first, created := tr.GetOrCreate("track-1", key)
	if !created || first.State != StatePending {
		t.Fatalf("expected a new pending session, got %+v created=%v", first, created)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Fatalf("session id is not a uuid: %v", err)
	}

	again, created := tr.GetOrCreate("track-1", key)
	if created || again.ID != first.ID {
		t.Fatalf("expected the active session to be returned")
	}

	if _, err := tr.Update(first.ID, func(s *Session) { s.State = StateCompleted }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	next, created := tr.GetOrCreate("track-1", key)
	if !created || next.ID == first.ID {
		t.Fatalf("expected a new session once the previous one finished")
	}
}

func TestGetOrCreateGeneratesTrackingID(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(time.Minute)
	s, created := tr.GetOrCreate("  ", store.Key{})
	if !created || s.TrackingID == "" {
		t.Fatalf("expected generated tracking id, got %+v", s)
	}
}

func TestEvictDropsOnlyExpiredTerminalSessions(t *testing.T) {
	t.Parallel()

	tr, c := newTestTracker(time.Minute)
	done, _ := tr.GetOrCreate("a", store.Key{})
	running, _ := tr.GetOrCreate("b", store.Key{})

	if _, err := tr.Update(done.ID, func(s *Session) { s.State = StateFailed; s.Error = "boom" }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := tr.Update(running.ID, func(s *Session) { s.State = StateRunning }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if n := tr.Evict(c.now.Add(30 * time.Second)); n != 0 {
		t.Fatalf("expected nothing evicted before ttl, got %d", n)
	}
	if n := tr.Evict(c.now.Add(2 * time.Minute)); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}

	if _, ok := tr.Get(done.ID); ok {
		t.Fatalf("expired session still present")
	}
	if s, ok := tr.Get(running.ID); !ok || s.State != StateRunning {
		t.Fatalf("running session must survive eviction")
	}
}

func TestUpdateUnknown(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(time.Minute)
	if _, err := tr.Update("missing", func(*Session) {}); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}
