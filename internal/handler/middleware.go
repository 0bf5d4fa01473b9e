package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	userKey    contextKey = "user"
	claimsKey  contextKey = "claims"
	sessionKey contextKey = "session"
)

// JWTAuthMiddleware validates Bearer tokens, attaches the user's session and
// injects both into the context. A valid token whose session was lost (e.g.
// after a restart) gets a freshly loaded session.
func JWTAuthMiddleware(authSvc *service.AuthService, sessions *service.SessionManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			user := claims.User()
			observability.SetRequestUser(r.Context(), user.ID)
			sess := sessions.Acquire(r.Context(), user)

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, claimsKey, claims)
			ctx = context.WithValue(ctx, sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) domain.User {
	u, _ := ctx.Value(userKey).(domain.User)
	return u
}

// ClaimsFromContext returns the validated token claims, or nil.
func ClaimsFromContext(ctx context.Context) *service.JWTClaims {
	c, _ := ctx.Value(claimsKey).(*service.JWTClaims)
	return c
}

// SessionFromContext extracts the user's session from context.
func SessionFromContext(ctx context.Context) *service.Session {
	s, _ := ctx.Value(sessionKey).(*service.Session)
	return s
}
