package session

import (
	"context"
	"time"
)

// StoredSession is the persisted shape of a session aggregate, used to
// hydrate the in-memory state after a process restart.
type StoredSession struct {
	SessionID    string
	EventID      string
	DJID         string
	IsActive     bool
	Settings     Settings
	CurrentTrack *CurrentTrack
	Requests     []StoredRequest
}

// StoredRequest is the persisted shape of a song request, including its
// vote relation. Queue order is requested_at ascending; history order is
// processed_at ascending.
type StoredRequest struct {
	ID            string
	Track         TrackDescriptor
	RequesterKey  string
	RequesterName string
	RequestedAt   time.Time
	Status        Status
	ProcessedAt   *time.Time
	Votes         map[string]VoteType
}

// Store is the persistence seam. The in-memory aggregate stays authoritative
// for a live session; writes here are write-through and a failure after the
// in-memory commit is logged, never rolled back. LoadSession returns
// ErrNotFound when no session exists for the event.
type Store interface {
	LoadSession(ctx context.Context, eventID string) (*StoredSession, error)
	CreateSession(ctx context.Context, s *StoredSession) error
	SetSessionActive(ctx context.Context, sessionID string, active bool) error
	UpdateSessionSettings(ctx context.Context, sessionID string, settings Settings) error
	SetCurrentTrack(ctx context.Context, sessionID string, track *CurrentTrack) error
	CreateSongRequest(ctx context.Context, sessionID string, r *StoredRequest) error
	UpdateSongRequestStatus(ctx context.Context, requestID string, status Status, processedAt *time.Time) error
	UpsertVote(ctx context.Context, requestID, voterID string, vote VoteType) error
}
