package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// ChangePassword: PUT /v1/auth/password
// ============================================================

// ChangePassword re-authenticates with the current password, then asks the
// provider to set the new one with the fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, user domain.User, req *domain.ChangePasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if req.CurrentPassword == "" || req.NewPassword == "" {
		return &domain.ErrAuth{Message: "Preencha a senha atual e a nova senha."}
	}
	if len(req.NewPassword) < minPasswordLength {
		return &domain.ErrAuth{Message: "A senha deve ter pelo menos 6 caracteres."}
	}

	sess, err := s.provider.SignIn(ctx, user.Email, req.CurrentPassword)
	if err != nil {
		s.logger.Warn("change password: re-authentication failed", zap.String("user_id", user.ID), zap.Error(err))
		var provider *domain.ErrProvider
		if errors.As(err, &provider) && provider.Status == http.StatusBadRequest {
			return &domain.ErrAuth{Message: "Senha atual incorreta.", Err: err}
		}
		return authError(err)
	}

	if err := s.provider.UpdatePassword(ctx, sess.AccessToken, req.NewPassword); err != nil {
		s.logger.Error("change password: update failed", zap.String("user_id", user.ID), zap.Error(err))
		return authError(err)
	}

	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// ============================================================
// Logout: POST /v1/auth/logout
// ============================================================

// Logout signs out of the provider, clears the splash flag, drops the session
// and revokes the user's tokens. claims is the token presented for the logout
// and may be nil. Provider failures are logged; the local logout always
// completes.
func (s *AuthService) Logout(ctx context.Context, userID string, claims *JWTClaims) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if sess, ok := s.sessions.Get(userID); ok && sess.AccessToken() != "" {
		if err := s.provider.SignOut(ctx, sess.AccessToken()); err != nil {
			s.logger.Warn("logout: provider sign out failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if s.flags != nil {
		if err := s.flags.DeleteFlag(ctx, brandingSplashKey(userID)); err != nil {
			s.logger.Warn("logout: splash flag not cleared", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.revoked.revoke(userID, claims, time.Now())
	s.sessions.Close(userID)

	s.logger.Info("user logged out", zap.String("user_id", userID))
	return nil
}
