package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/crypto"
	"github.com/setlive/backend/internal/middleware"
	"github.com/setlive/backend/internal/models"
	"github.com/setlive/backend/internal/services"
	"github.com/setlive/backend/internal/session"
)

// RequestHandler exposes song request submission and DJ status transitions.
type RequestHandler struct {
	engine *session.Manager
	namer  *services.GuestNamer
}

// NewRequestHandler creates a RequestHandler over the engine.
func NewRequestHandler(engine *session.Manager, namer *services.GuestNamer) *RequestHandler {
	return &RequestHandler{engine: engine, namer: namer}
}

// Submit creates a new pending song request. Authenticated callers are
// identified by their claims; anonymous callers supply a display name and
// optional contact in the payload, and get a generated name if they supply
// neither.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req models.SubmitSongRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requester, err := h.requesterIdentity(r, eventID, req)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve requester identity", err)
		return
	}

	view, err := h.engine.SubmitRequest(r.Context(), eventID, session.TrackDescriptor{
		TrackID:     req.TrackID,
		Name:        req.TrackName,
		Artist:      req.Artist,
		Album:       req.Album,
		DurationMS:  req.DurationMS,
		PreviewURL:  req.PreviewURL,
		ImageURL:    req.ImageURL,
		ExternalURL: req.ExternalURL,
	}, requester)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *RequestHandler) requesterIdentity(r *http.Request, eventID string, req models.SubmitSongRequestRequest) (session.Requester, error) {
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		return session.Requester{
			UserID:      claims.UserID,
			DisplayName: claims.DisplayName,
		}, nil
	}

	requester := session.Requester{DisplayName: req.RequesterName}
	if requester.DisplayName == "" {
		requester.DisplayName = h.namer.GenerateName()
	}
	if req.RequesterContact != "" {
		key, err := crypto.HashContact(req.RequesterContact, eventID)
		if err != nil {
			return session.Requester{}, err
		}
		requester.ContactKey = key
	}
	return requester, nil
}

// UpdateStatus applies a DJ status transition to a queued request.
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	songID := chi.URLParam(r, "songID")
	claims := middleware.GetClaims(r.Context())

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := session.ParseStatus(req.Status)
	if !ok || status == session.StatusPending {
		writeError(w, http.StatusBadRequest, "status must be 'approved', 'rejected', or 'played'")
		return
	}

	view, err := h.engine.SetStatus(r.Context(), eventID, songID, status, claims.UserID)
	if err != nil {
		writeEngineError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
