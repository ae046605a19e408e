package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/hub"
	"github.com/setlive/backend/internal/middleware"
	"github.com/setlive/backend/internal/services"
	"github.com/setlive/backend/internal/session"
)

// memStore is an in-memory session.Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*session.StoredSession
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*session.StoredSession)}
}

func (s *memStore) LoadSession(ctx context.Context, eventID string) (*session.StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[eventID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return stored, nil
}

func (s *memStore) CreateSession(ctx context.Context, stored *session.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[stored.EventID] = stored
	return nil
}

func (s *memStore) SetSessionActive(ctx context.Context, sessionID string, active bool) error {
	return nil
}

func (s *memStore) UpdateSessionSettings(ctx context.Context, sessionID string, settings session.Settings) error {
	return nil
}

func (s *memStore) SetCurrentTrack(ctx context.Context, sessionID string, track *session.CurrentTrack) error {
	return nil
}

func (s *memStore) CreateSongRequest(ctx context.Context, sessionID string, r *session.StoredRequest) error {
	return nil
}

func (s *memStore) UpdateSongRequestStatus(ctx context.Context, requestID string, status session.Status, processedAt *time.Time) error {
	return nil
}

func (s *memStore) UpsertVote(ctx context.Context, requestID, voterID string, vote session.VoteType) error {
	return nil
}

type testEnv struct {
	engine *session.Manager
	hub    *hub.Hub
	namer  *services.GuestNamer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	h := hub.New()
	return &testEnv{
		engine: session.NewManager(newMemStore(), h),
		hub:    h,
		namer:  services.NewGuestNamer(),
	}
}

// newTestRequest builds a request with chi URL params and optional claims.
func newTestRequest(t *testing.T, method, target string, body any, params map[string]string, claims *services.Claims) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if claims != nil {
		ctx = context.WithValue(ctx, middleware.ClaimsKey, claims)
	}
	return req.WithContext(ctx)
}

func djClaims() *services.Claims {
	return &services.Claims{UserID: "dj-1", DisplayName: "DJ One", DJ: true}
}

func attendeeClaims(userID string) *services.Claims {
	return &services.Claims{UserID: userID, DisplayName: "User " + userID}
}

func initSession(t *testing.T, env *testEnv, eventID string) {
	t.Helper()
	if _, err := env.engine.Init(context.Background(), eventID, "dj-1"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func submitBody(trackID string) map[string]any {
	return map[string]any{
		"trackId":    trackID,
		"trackName":  "Track " + trackID,
		"artist":     "Artist",
		"durationMs": 180000,
	}
}

func TestSessionInit(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/session", nil,
		map[string]string{"eventID": "e1"}, djClaims())
	w := httptest.NewRecorder()
	handler.Init(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	var snap session.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.EventID != "e1" || snap.DJID != "dj-1" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.IsActive {
		t.Error("new session is active, want inactive")
	}
}

func TestSessionInitRequiresDJ(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/session", nil,
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	handler.Init(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestSessionGetNotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)

	req := newTestRequest(t, http.MethodGet, "/api/events/missing/session", nil,
		map[string]string{"eventID": "missing"}, nil)
	w := httptest.NewRecorder()
	handler.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSessionStartStop(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/session/start", nil,
		map[string]string{"eventID": "e1"}, djClaims())
	w := httptest.NewRecorder()
	handler.Start(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d; body %s", w.Code, w.Body.String())
	}
	var snap session.Snapshot
	json.NewDecoder(w.Body).Decode(&snap)
	if !snap.IsActive {
		t.Error("IsActive = false after start")
	}

	req = newTestRequest(t, http.MethodPost, "/api/events/e1/session/stop", nil,
		map[string]string{"eventID": "e1"}, djClaims())
	w = httptest.NewRecorder()
	handler.Stop(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&snap)
	if snap.IsActive {
		t.Error("IsActive = true after stop")
	}
}

func TestSessionStartForbiddenForNonDJ(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/session/start", nil,
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	handler.Start(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestUpdateSettingsPatch(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)
	initSession(t, env, "e1")

	body := map[string]any{"votingEnabled": false, "maxRequestsPerUser": 5}
	req := newTestRequest(t, http.MethodPatch, "/api/events/e1/session/settings", body,
		map[string]string{"eventID": "e1"}, djClaims())
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var settings session.Settings
	json.NewDecoder(w.Body).Decode(&settings)
	if settings.VotingEnabled || settings.MaxRequestsPerUser != 5 {
		t.Errorf("settings = %+v", settings)
	}
	if !settings.AllowRequests {
		t.Error("unpatched AllowRequests changed")
	}
}

func TestUpdateSettingsRejectsInvalidQuota(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionHandler(env.engine)
	initSession(t, env, "e1")

	body := map[string]any{"maxRequestsPerUser": 0}
	req := newTestRequest(t, http.MethodPatch, "/api/events/e1/session/settings", body,
		map[string]string{"eventID": "e1"}, djClaims())
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t1"),
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	var view session.RequestView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Status != session.StatusPending {
		t.Errorf("status = %v, want pending", view.Status)
	}
	if view.RequestedBy != "User alice" {
		t.Errorf("RequestedBy = %q, want display name from claims", view.RequestedBy)
	}
}

func TestSubmitAnonymousGetsGeneratedName(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t1"),
		map[string]string{"eventID": "e1"}, nil)
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var view session.RequestView
	json.NewDecoder(w.Body).Decode(&view)
	if view.RequestedBy == "" {
		t.Error("anonymous request without a name got no generated name")
	}
}

func TestSubmitAnonymousWithName(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	body := submitBody("t1")
	body["requesterName"] = "Party Guest"
	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", body,
		map[string]string{"eventID": "e1"}, nil)
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var view session.RequestView
	json.NewDecoder(w.Body).Decode(&view)
	if view.RequestedBy != "Party Guest" {
		t.Errorf("RequestedBy = %q, want Party Guest", view.RequestedBy)
	}
}

func TestSubmitValidationError(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	body := map[string]any{"trackName": "No ID", "artist": "Artist"}
	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", body,
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitQuotaConflict(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	for i := 0; i < 3; i++ {
		req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t"+string(rune('a'+i))),
			map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
		w := httptest.NewRecorder()
		handler.Submit(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("td"),
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	handler.Submit(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestVoteEndpoint(t *testing.T) {
	env := newTestEnv(t)
	requestHandler := NewRequestHandler(env.engine, env.namer)
	voteHandler := NewVoteHandler(env.engine)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t1"),
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	requestHandler.Submit(w, req)
	var view session.RequestView
	json.NewDecoder(w.Body).Decode(&view)

	req = newTestRequest(t, http.MethodPost, "/api/events/e1/requests/"+view.ID+"/vote",
		map[string]string{"vote": "up"},
		map[string]string{"eventID": "e1", "songID": view.ID}, attendeeClaims("bob"))
	w = httptest.NewRecorder()
	voteHandler.Vote(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var resp struct {
		RequestID string `json:"requestId"`
		VoteScore int    `json:"voteScore"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.VoteScore != 1 {
		t.Errorf("voteScore = %d, want 1", resp.VoteScore)
	}
}

func TestVoteRejectsBadType(t *testing.T) {
	env := newTestEnv(t)
	voteHandler := NewVoteHandler(env.engine)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests/x/vote",
		map[string]string{"vote": "sideways"},
		map[string]string{"eventID": "e1", "songID": "x"}, attendeeClaims("bob"))
	w := httptest.NewRecorder()
	voteHandler.Vote(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVoteUnknownSong(t *testing.T) {
	env := newTestEnv(t)
	voteHandler := NewVoteHandler(env.engine)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests/missing/vote",
		map[string]string{"vote": "up"},
		map[string]string{"eventID": "e1", "songID": "missing"}, attendeeClaims("bob"))
	w := httptest.NewRecorder()
	voteHandler.Vote(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateStatusFlow(t *testing.T) {
	env := newTestEnv(t)
	requestHandler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t1"),
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	requestHandler.Submit(w, req)
	var view session.RequestView
	json.NewDecoder(w.Body).Decode(&view)

	tests := []struct {
		name     string
		status   string
		claims   *services.Claims
		wantCode int
	}{
		{"non-dj forbidden", "approved", attendeeClaims("alice"), http.StatusForbidden},
		{"pending not allowed", "pending", djClaims(), http.StatusBadRequest},
		{"unknown status", "queued", djClaims(), http.StatusBadRequest},
		{"played before approval", "played", djClaims(), http.StatusConflict},
		{"approve", "approved", djClaims(), http.StatusOK},
		{"repeat approve is a no-op", "approved", djClaims(), http.StatusOK},
		{"reject after approval", "rejected", djClaims(), http.StatusConflict},
		{"play", "played", djClaims(), http.StatusOK},
		{"transition after archive", "approved", djClaims(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t, http.MethodPatch, "/api/events/e1/requests/"+view.ID+"/status",
				map[string]string{"status": tt.status},
				map[string]string{"eventID": "e1", "songID": view.ID}, tt.claims)
			w := httptest.NewRecorder()
			requestHandler.UpdateStatus(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d; body %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestPlayedPublishesToRoom(t *testing.T) {
	env := newTestEnv(t)
	requestHandler := NewRequestHandler(env.engine, env.namer)
	initSession(t, env, "e1")

	sub := env.hub.Join("e1")
	defer env.hub.Leave("e1", sub)

	req := newTestRequest(t, http.MethodPost, "/api/events/e1/requests", submitBody("t1"),
		map[string]string{"eventID": "e1"}, attendeeClaims("alice"))
	w := httptest.NewRecorder()
	requestHandler.Submit(w, req)

	select {
	case evt := <-sub:
		if evt.Type != session.EventSongRequested {
			t.Errorf("event type = %q, want songRequested", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered to room subscriber")
	}
}
