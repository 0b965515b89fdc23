// Package session keeps per-client interaction sessions for the HTTP API.
//
// Each session owns one [interact.Controller]: its own positions, drag
// state, selection, gesture and cosmetic connections. Sessions are isolated;
// nothing is shared between clients except the read-only catalog and the
// computed layout the controller started from.
//
// Controllers are not goroutine-safe, so every access goes through
// [Session.Do], which serializes callers on a per-session mutex.
//
// # Usage
//
//	store := session.NewMemoryStore(session.DefaultTTL)
//	sess, err := store.Create(ctx, ctrl)
//	// later, from a request carrying sess.ID:
//	sess, err = store.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
//	    // start a new one
//	}
//	err = sess.Do(func(c *interact.Controller) error {
//	    c.SelectFlow("FL001")
//	    return nil
//	})
//
// Sessions live in memory only. Layout changes are never persisted.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowmap/pkg/interact"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("session expired")
)

// DefaultTTL is the default idle timeout of a session.
const DefaultTTL = 2 * time.Hour

// Session is one client's interaction state.
type Session struct {
	ID             string    `json:"id"`
	CatalogVersion string    `json:"catalog_version"`
	CreatedAt      time.Time `json:"created_at"`

	mu        sync.Mutex
	ctrl      *interact.Controller
	expiresAt time.Time
}

// New creates a session around ctrl that expires after ttl of inactivity.
func New(ctrl *interact.Controller, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:             GenerateID(),
		CatalogVersion: ctrl.Catalog().Version(),
		CreatedAt:      now,
		ctrl:           ctrl,
		expiresAt:      now.Add(ttl),
	}
}

// GenerateID creates a random session ID.
func GenerateID() string {
	return uuid.NewString()
}

// Do runs fn with exclusive access to the session's controller.
func (s *Session) Do(fn func(c *interact.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctrl)
}

// ExpiresAt returns the current expiry time.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session expired before now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

func (s *Session) touch(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = now.Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Create stores a new session around ctrl.
	Create(ctx context.Context, ctrl *interact.Controller) (*Session, error)

	// Get retrieves a session by ID and extends its lifetime.
	// Returns ErrNotFound for unknown IDs and ErrExpired for expired ones.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session. Unknown IDs are not an error.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions and reports how many it removed.
	Cleanup(ctx context.Context) (int, error)

	// Len returns the number of stored sessions.
	Len() int
}
