package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/setlive/backend/internal/logging"
)

// RequestContextMiddleware adds request attributes to context early in the middleware chain.
func RequestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attrs := &logging.RequestAttrs{
			Method: r.Method,
			Path:   r.URL.Path,
			IP:     logging.ExtractClientIP(r),
		}
		ctx := logging.WithRequestAttrs(r.Context(), attrs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UpdateRequestContextMiddleware enriches the request attributes with the
// event scope and, when auth has already run, the caller identity. Wire it
// after the auth middleware on protected routes.
func UpdateRequestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if claims := GetClaims(r.Context()); claims != nil {
			userID = claims.UserID
		}
		ctx := logging.UpdateRequestAttrs(r.Context(), chi.URLParam(r, "eventID"), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
