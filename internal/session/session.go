package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/leadscout/internal/store"
)

const DefaultTTL = time.Hour

var ErrUnknown = errors.New("unknown session")

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Session is the lifecycle record of one ranking run.
type Session struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"tracking_id"`
	Key        store.Key `json:"key"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	Result     any       `json:"result,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tracker holds sessions in memory. At most one non-terminal session exists
// per tracking id; terminal sessions are dropped once their ttl has passed.
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
	active   map[string]string
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
		active:   make(map[string]string),
	}
}

// GetOrCreate returns the active session of trackingID, or creates a pending
// one. The boolean reports whether a new session was created. An empty
// tracking id gets a generated one.
func (t *Tracker) GetOrCreate(trackingID string, key store.Key) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evict(now)

	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		trackingID = uuid.NewString()
	}

	if id, ok := t.active[trackingID]; ok {
		if s, ok := t.sessions[id]; ok && !s.State.Terminal() {
			return *s, false
		}
	}

	s := &Session{
		ID:         uuid.NewString(),
		TrackingID: trackingID,
		Key:        key,
		State:      StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.sessions[s.ID] = s
	t.active[trackingID] = s.ID
	return *s, true
}

func (t *Tracker) Get(id string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evict(t.now())
	s, ok := t.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Update applies fn to the session under the tracker lock.
func (t *Tracker) Update(id string, fn func(*Session)) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return Session{}, ErrUnknown
	}
	fn(s)
	s.UpdatedAt = t.now()
	if s.State.Terminal() && t.active[s.TrackingID] == s.ID {
		delete(t.active, s.TrackingID)
	}
	return *s, nil
}

// Evict drops terminal sessions older than the ttl and returns how many were removed.
func (t *Tracker) Evict(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evict(now)
}

func (t *Tracker) evict(now time.Time) int {
	removed := 0
	for id, s := range t.sessions {
		if !s.State.Terminal() || now.Sub(s.UpdatedAt) < t.ttl {
			continue
		}
		delete(t.sessions, id)
		if t.active[s.TrackingID] == id {
			delete(t.active, s.TrackingID)
		}
		removed++
	}
	return removed
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
