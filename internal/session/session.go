// Package session holds the in-memory session table. Sessions are never
// persisted; they live for the process and expire after a fixed TTL,
// checked lazily when a token is presented.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a session stays valid after login.
const DefaultTTL = 24 * time.Hour

type Session struct {
	Token        string
	UserID       int64
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store is the sole owner of the session table. The zero value is not
// usable; construct with NewStore.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	// now is swappable for expiry tests.
	now func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create issues a new session with an opaque random token.
func (s *Store) Create(userID int64, username string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		Token:        uuid.NewString(),
		UserID:       userID,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[sess.Token] = sess
	return *sess
}

// Get returns the session for token, touching its last-activity time.
// Expired sessions are removed and reported as absent.
func (s *Store) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if s.now().Sub(sess.CreatedAt) > s.ttl {
		delete(s.sessions, token)
		return Session{}, false
	}
	sess.LastActivity = s.now()
	return *sess, true
}

// Delete removes the session. Deleting an absent token is a no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Prune drops every expired session and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for token, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Active returns a snapshot of all live sessions.
func (s *Store) Active() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			continue
		}
		out = append(out, *sess)
	}
	return out
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
