// Package session holds per-visitor dashboard state: the last fetched well
// and its history. Sessions replace process-wide mutable state so concurrent
// visitors never see each other's data.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is the state carried between requests of one visitor.
type Session struct {
	ID        string
	WellID    string
	Series    domain.TimeSeries
	FetchedAt time.Time
	ExpiresAt time.Time
}

// New creates a session for a freshly fetched well. An empty id gets a
// random UUID.
func New(id, wellID string, series domain.TimeSeries, now time.Time, ttl time.Duration) *Session {
	if id == "" {
		id = NewID()
	}
	return &Session{
		ID:        id,
		WellID:    wellID,
		Series:    series,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like a session id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
