package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Register: POST /v1/auth/register
// ============================================================

// Register creates an account gated by the license key. Nothing is sent to
// the provider or written to the directory when the key or username is
// rejected.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthSession, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	span.SetAttributes(attribute.String("username", username))

	if username == "" || email == "" || req.Password == "" {
		return nil, &domain.ErrAuth{Message: "Preencha todos os campos."}
	}
	if strings.Contains(username, "@") || strings.ContainsAny(username, " \t") {
		return nil, &domain.ErrAuth{Message: "O nome de usuário não pode conter espaços ou @."}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ErrAuth{Message: "E-mail inválido."}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrAuth{Message: "A senha deve ter pelo menos 6 caracteres."}
	}
	if strings.TrimSpace(req.LicenseKey) != s.licenseKey {
		s.logger.Warn("register: invalid license key", zap.String("username", username))
		return nil, &domain.ErrAuth{Message: "Chave de licença inválida."}
	}

	if _, taken := findUserByUsername(s.directory.Fresh(ctx), username); taken || strings.EqualFold(username, bypassUsername) {
		return nil, &domain.ErrAuth{Message: "Este nome de usuário já está em uso."}
	}

	sess, err := s.provider.SignUp(ctx, email, req.Password, map[string]any{"username": username})
	if err != nil {
		s.logger.Warn("register: provider rejected sign up", zap.String("username", username), zap.Error(err))
		return nil, authError(err)
	}

	user := sess.User.ToUser()
	user.Username = username
	if user.Email == "" {
		user.Email = email
	}

	if err := s.recordLicense(ctx, username); err != nil {
		s.logger.Error("register: license record not saved", zap.String("user_id", user.ID), zap.Error(err))
	}
	if err := s.directory.Append(ctx, user); err != nil {
		s.logger.Error("register: user not added to directory", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", username),
	)
	return s.startSession(ctx, user, sess.AccessToken)
}
