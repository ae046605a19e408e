package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/setlive/backend/internal/config"
	"github.com/setlive/backend/internal/handlers"
	"github.com/setlive/backend/internal/hub"
	"github.com/setlive/backend/internal/middleware"
	"github.com/setlive/backend/internal/services"
	"github.com/setlive/backend/internal/session"
)

// New builds the HTTP route tree over the engine and hub.
func New(cfg *config.Config, engine *session.Manager, h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)
	namer := services.NewGuestNamer()

	// Handlers
	sessionHandler := handlers.NewSessionHandler(engine)
	requestHandler := handlers.NewRequestHandler(engine, namer)
	voteHandler := handlers.NewVoteHandler(engine)
	sseHandler := handlers.NewSSEHandler(h)

	// Rate limiter for attendee writes
	writeRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	requireAuth := middleware.RequireAuth(authService)
	optionalAuth := middleware.OptionalAuth(authService)
	requestCtx := middleware.UpdateRequestContextMiddleware

	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Route("/events/{eventID}", func(r chi.Router) {
			// Session lifecycle and settings (DJ-only, enforced in the engine)
			r.Route("/session", func(r chi.Router) {
				r.With(requireAuth, requestCtx).Post("/", sessionHandler.Init)
				r.With(requestCtx).Get("/", sessionHandler.Get)
				r.With(requireAuth, requestCtx).Post("/start", sessionHandler.Start)
				r.With(requireAuth, requestCtx).Post("/stop", sessionHandler.Stop)
				r.With(requireAuth, requestCtx).Patch("/settings", sessionHandler.UpdateSettings)
			})

			// Song requests and votes
			r.Route("/requests", func(r chi.Router) {
				r.With(optionalAuth, requestCtx, writeRateLimiter.Middleware).Post("/", requestHandler.Submit)
				r.Route("/{songID}", func(r chi.Router) {
					r.With(requireAuth, requestCtx).Patch("/status", requestHandler.UpdateStatus)
					r.With(requireAuth, requestCtx, writeRateLimiter.Middleware).Post("/vote", voteHandler.Vote)
				})
			})

			// Real-time room subscription
			r.With(requestCtx).Get("/stream", sseHandler.Stream)
		})
	})

	return r
}
