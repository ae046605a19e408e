// Package models defines the JSON request and response shapes of the HTTP
// surface. Session and request snapshots are served directly from the
// session package's view types.
package models

// Song requests
type SubmitSongRequestRequest struct {
	TrackID     string `json:"trackId"`
	TrackName   string `json:"trackName"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	DurationMS  int64  `json:"durationMs"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`

	// Anonymous requester identity; ignored for authenticated callers.
	RequesterName    string `json:"requesterName,omitempty"`
	RequesterContact string `json:"requesterContact,omitempty"`
}

// Voting
type VoteRequest struct {
	Vote string `json:"vote"` // "up" or "down"
}

type VoteResponse struct {
	RequestID string `json:"requestId"`
	VoteScore int    `json:"voteScore"`
}

// DJ status transitions
type UpdateStatusRequest struct {
	Status string `json:"status"` // "approved", "rejected", or "played"
}

// Settings management; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	AllowRequests      *bool `json:"allowRequests,omitempty"`
	RequireApproval    *bool `json:"requireApproval,omitempty"`
	VotingEnabled      *bool `json:"votingEnabled,omitempty"`
	AutoPlayNext       *bool `json:"autoPlayNext,omitempty"`
	MaxRequestsPerUser *int  `json:"maxRequestsPerUser,omitempty"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
