package session

// Event types fanned out to event rooms. Payloads are invalidation signals
// with toast-level context, not authoritative deltas: clients re-fetch the
// full snapshot on receipt instead of patching local state.
const (
	EventSongRequested       = "songRequested"
	EventSongVoted           = "songVoted"
	EventSongStatusChanged   = "songStatusChanged"
	EventCurrentTrackChanged = "currentTrackChanged"
	EventLiveSessionStarted  = "liveSessionStarted"
	EventLiveSessionEnded    = "liveSessionEnded"
)

// SongRequestedPayload announces a new request.
type SongRequestedPayload struct {
	RequestID   string `json:"requestId"`
	TrackName   string `json:"trackName"`
	Artist      string `json:"artist"`
	RequestedBy string `json:"requestedBy"`
}

// SongVotedPayload announces a vote mutation and the resulting score.
type SongVotedPayload struct {
	RequestID string `json:"requestId"`
	VoteScore int    `json:"voteScore"`
}

// SongStatusChangedPayload announces a DJ status transition.
type SongStatusChangedPayload struct {
	RequestID string `json:"requestId"`
	TrackName string `json:"trackName"`
	Status    Status `json:"status"`
}

// SessionLifecyclePayload announces session start/stop.
type SessionLifecyclePayload struct {
	EventID  string `json:"eventId"`
	IsActive bool   `json:"isActive"`
}

// Notifier is the broadcast seam. Publishing must never block the caller;
// delivery is best effort and failures never roll back a committed mutation.
type Notifier interface {
	Publish(room, eventType string, payload any)
}

// notification pairs an event type with its payload for post-commit fan-out.
type notification struct {
	eventType string
	payload   any
}
