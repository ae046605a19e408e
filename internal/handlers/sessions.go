package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/logging"
	"github.com/setlive/backend/internal/middleware"
	"github.com/setlive/backend/internal/models"
	"github.com/setlive/backend/internal/session"
)

// SessionHandler exposes session lifecycle and settings operations.
type SessionHandler struct {
	engine *session.Manager
}

// NewSessionHandler creates a SessionHandler over the engine.
func NewSessionHandler(engine *session.Manager) *SessionHandler {
	return &SessionHandler{engine: engine}
}

// Init creates the playlist session for an event, or returns the existing
// one. Only an identity carrying the DJ flag may initialize.
func (h *SessionHandler) Init(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	claims := middleware.GetClaims(r.Context())

	if !claims.DJ {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventNonDJAccess, "session init requires dj identity")
		writeError(w, http.StatusForbidden, "dj access required")
		return
	}

	snap, err := h.engine.Init(r.Context(), eventID, claims.UserID)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Get returns the full session snapshot: queue in vote order, history,
// settings, stats, current track, and the live flag.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	snap, err := h.engine.Get(r.Context(), eventID)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Start marks the session live. Repeat calls are no-ops.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Stop marks the session inactive without clearing the queue.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *SessionHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	eventID := chi.URLParam(r, "eventID")
	claims := middleware.GetClaims(r.Context())

	var snap *session.Snapshot
	var err error
	if active {
		snap, err = h.engine.Start(r.Context(), eventID, claims.UserID)
	} else {
		snap, err = h.engine.Stop(r.Context(), eventID, claims.UserID)
	}
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// UpdateSettings merges the provided settings fields.
func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	claims := middleware.GetClaims(r.Context())

	var req models.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.engine.UpdateSettings(r.Context(), eventID, claims.UserID, session.SettingsPatch{
		AllowRequests:      req.AllowRequests,
		RequireApproval:    req.RequireApproval,
		VotingEnabled:      req.VotingEnabled,
		AutoPlayNext:       req.AutoPlayNext,
		MaxRequestsPerUser: req.MaxRequestsPerUser,
	})
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
