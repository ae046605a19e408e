// Package session implements the live playlist engine: one aggregate per
// event holding the request queue, vote ledger, settings, and history, with
// all mutations serialized through a per-event writer goroutine.
package session

import (
	"strings"
	"time"
)

// VoteType is the direction of a single user's vote on a song request.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ParseVoteType converts a wire value into a VoteType.
func ParseVoteType(s string) (VoteType, bool) {
	switch VoteType(s) {
	case VoteUp, VoteDown:
		return VoteType(s), true
	}
	return "", false
}

// Status is the lifecycle state of a song request. Pending and approved
// requests live in the queue; played and rejected requests are archived to
// history and become immutable.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPlayed   Status = "played"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusPlayed:
		return Status(s), true
	}
	return "", false
}

// TrackDescriptor is the opaque track shape supplied by the catalog
// collaborator. The engine never resolves or validates it against a catalog.
type TrackDescriptor struct {
	TrackID     string `json:"trackId"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	DurationMS  int64  `json:"durationMs"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

// Requester identifies who submitted a request. Authenticated callers carry
// a UserID; anonymous callers carry a display name and, optionally, a
// pre-hashed contact key so quota and unique-requester counting work without
// the engine ever seeing raw contact details.
type Requester struct {
	UserID      string
	DisplayName string
	ContactKey  string
}

// Key returns the stable identity used for quota enforcement and
// unique-requester counting.
func (r Requester) Key() string {
	if r.UserID != "" {
		return r.UserID
	}
	if r.ContactKey != "" {
		return "anon:" + r.ContactKey
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.DisplayName))
}

// Settings are the DJ-tunable knobs for a session. RequireApproval is
// advisory only: the engine never auto-advances request status based on it.
type Settings struct {
	AllowRequests      bool `json:"allowRequests"`
	RequireApproval    bool `json:"requireApproval"`
	VotingEnabled      bool `json:"votingEnabled"`
	AutoPlayNext       bool `json:"autoPlayNext"`
	MaxRequestsPerUser int  `json:"maxRequestsPerUser"`
}

// DefaultSettings returns the settings applied to a freshly created session.
func DefaultSettings() Settings {
	return Settings{
		AllowRequests:      true,
		RequireApproval:    true,
		VotingEnabled:      true,
		AutoPlayNext:       false,
		MaxRequestsPerUser: 3,
	}
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	AllowRequests      *bool
	RequireApproval    *bool
	VotingEnabled      *bool
	AutoPlayNext       *bool
	MaxRequestsPerUser *int
}

// CurrentTrack is the track the DJ most recently marked as played.
type CurrentTrack struct {
	TrackID    string    `json:"trackId"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	DurationMS int64     `json:"durationMs"`
	StartedAt  time.Time `json:"startedAt"`
}

// Stats are derived counters maintained incrementally by the engine.
type Stats struct {
	TotalRequests    int `json:"totalRequests"`
	TotalVotes       int `json:"totalVotes"`
	UniqueRequesters int `json:"uniqueRequesterCount"`
}

// RequestView is the immutable client-facing projection of a song request.
type RequestView struct {
	ID          string    `json:"id"`
	TrackID     string    `json:"trackId"`
	TrackName   string    `json:"trackName"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album,omitempty"`
	DurationMS  int64     `json:"durationMs"`
	PreviewURL  string    `json:"previewUrl,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ExternalURL string    `json:"externalUrl,omitempty"`
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
	Status      Status    `json:"status"`
	VoteScore   int       `json:"voteScore"`
}

// Snapshot is a consistent, immutable view of a whole session. The queue is
// ordered by vote score descending, ties broken by earliest request.
type Snapshot struct {
	SessionID    string        `json:"sessionId"`
	EventID      string        `json:"eventId"`
	DJID         string        `json:"djId"`
	IsActive     bool          `json:"isActive"`
	CurrentTrack *CurrentTrack `json:"currentTrack,omitempty"`
	Settings     Settings      `json:"settings"`
	Queue        []RequestView `json:"queue"`
	History      []RequestView `json:"history"`
	Stats        Stats         `json:"stats"`
	Version      uint64        `json:"version"`
}
