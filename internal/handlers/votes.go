package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/middleware"
	"github.com/setlive/backend/internal/models"
	"github.com/setlive/backend/internal/session"
)

// VoteHandler exposes voting on queued song requests.
type VoteHandler struct {
	engine *session.Manager
}

// NewVoteHandler creates a VoteHandler over the engine.
func NewVoteHandler(engine *session.Manager) *VoteHandler {
	return &VoteHandler{engine: engine}
}

// Vote casts or flips the caller's vote on a queued request and returns the
// resulting score. Re-casting an identical vote succeeds without changing
// anything.
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	songID := chi.URLParam(r, "songID")
	claims := middleware.GetClaims(r.Context())

	var req models.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	voteType, ok := session.ParseVoteType(req.Vote)
	if !ok {
		writeError(w, http.StatusBadRequest, "vote must be 'up' or 'down'")
		return
	}

	score, err := h.engine.Vote(r.Context(), eventID, songID, claims.UserID, voteType)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.VoteResponse{RequestID: songID, VoteScore: score})
}
