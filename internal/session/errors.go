package session

import "errors"

// Engine error taxonomy. Every check runs before any mutation, so a call
// that returns one of these leaves the session untouched.
var (
	ErrValidation        = errors.New("invalid or missing fields")
	ErrForbidden         = errors.New("operation requires the session DJ")
	ErrNotFound          = errors.New("session or song request not found")
	ErrQuotaExceeded     = errors.New("request quota exceeded")
	ErrRequestsDisabled  = errors.New("song requests are disabled")
	ErrVotingDisabled    = errors.New("voting is disabled")
	ErrInvalidTransition = errors.New("disallowed status transition")
)
