// Package services contains supporting logic for the live session core:
// identity token validation and guest display-name generation.
package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload minted by the external identity provider.
// The core only validates it; issuing attendee identities is not its job.
// DJ marks the event organizer authorized to drive a session.
type Claims struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"name"`
	DJ          bool   `json:"dj"`
	jwt.RegisteredClaims
}

// AuthService validates bearer tokens against the shared identity secret.
type AuthService struct {
	secret        []byte
	tokenDuration time.Duration
}

// NewAuthService creates an AuthService with the given signing secret and
// default token lifetime.
func NewAuthService(secret string, tokenDuration time.Duration) *AuthService {
	return &AuthService{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
	}
}

// GenerateToken creates a signed JWT for the given identity. Production
// tokens come from the identity provider; this exists for local development
// and tests that need a valid token.
func (s *AuthService) GenerateToken(userID, displayName string, dj bool) (string, error) {
	claims := Claims{
		UserID:      userID,
		DisplayName: displayName,
		DJ:          dj,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "setlive",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies the JWT signature and expiry, returning the claims
// if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.UserID == "" {
			return nil, errors.New("token missing user identity")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
