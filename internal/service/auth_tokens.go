package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ============================================================
// ValidateToken: used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub      string `json:"sub"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// User rebuilds the authenticated user from the token.
func (c *JWTClaims) User() domain.User {
	return domain.User{ID: c.Sub, Username: c.Username, Email: c.Email}
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	if claims.Type != "access" || claims.Sub == "" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}

	if s.revoked.isRevoked(claims) {
		return nil, &domain.ErrUnauthorized{Message: "Sessão encerrada. Faça login novamente."}
	}

	return claims, nil
}

// ============================================================
// Revocation: tokens ended by logout
// ============================================================

// revocations remembers logged-out tokens for the life of the process. A
// logout revokes the presenting token by id and every token of the user
// issued in an earlier second. Tokens issued after a restart are unaffected.
type revocations struct {
	mu      sync.Mutex
	ids     map[string]time.Time // jti -> token expiry
	cutoffs map[string]time.Time // user -> logout time
}

func newRevocations() *revocations {
	return &revocations{ids: map[string]time.Time{}, cutoffs: map[string]time.Time{}}
}

func (r *revocations) revoke(userID string, claims *JWTClaims, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, exp := range r.ids {
		if exp.Before(now) {
			delete(r.ids, id)
		}
	}
	r.cutoffs[userID] = now
	if claims != nil && claims.ID != "" {
		exp := now
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		r.ids[claims.ID] = exp
	}
}

func (r *revocations) isRevoked(claims *JWTClaims) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[claims.ID]; ok && claims.ID != "" {
		return true
	}
	cutoff, ok := r.cutoffs[claims.Sub]
	if !ok {
		return false
	}
	// iat has second precision
	return claims.IssuedAt == nil || claims.IssuedAt.Time.Before(cutoff.Truncate(time.Second))
}

// ============================================================
// Session: GET /v1/session
// ============================================================

// SessionState reports the auth state of userID's session. A user without a
// live session is unauthenticated.
func (s *AuthService) SessionState(_ context.Context, userID string) domain.SessionState {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return domain.SessionState{Status: domain.AuthUnauthenticated}
	}
	return sess.State()
}

// ============================================================
// Internal JWT helpers
// ============================================================

func (s *AuthService) signAccessToken(user domain.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:      user.ID,
		Username: user.Username,
		Email:    user.Email,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "studio-bfa",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
