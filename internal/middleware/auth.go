// Package middleware provides HTTP middleware for authentication, CORS
// handling, rate limiting, and client IP resolution.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/setlive/backend/internal/logging"
	"github.com/setlive/backend/internal/services"
)

type contextKey string

const (
	// ClaimsKey is the context key for storing validated identity claims.
	ClaimsKey contextKey = "claims"
)

// RequireAuth validates bearer tokens and adds claims to the request
// context. Returns 401 for missing or invalid tokens.
func RequireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := validate(w, r, authService)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth adds claims to the context when a valid bearer token is
// present, and lets anonymous requests through untouched. A malformed or
// invalid token is still rejected rather than silently downgraded.
func OptionalAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, ok := validate(w, r, authService)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validate(w http.ResponseWriter, r *http.Request, authService *services.AuthService) (*services.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventMissingAuth, "missing authorization header")
		http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidAuthFmt, "invalid authorization header format")
		http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
		return nil, false
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidJWT, "invalid or expired token")
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// GetClaims retrieves the identity claims from the request context.
// Returns nil for anonymous requests.
func GetClaims(ctx context.Context) *services.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*services.Claims)
	return claims
}
