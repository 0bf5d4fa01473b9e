package service

import (
	"context"
	"strings"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

// Login authenticates by email or username, checks the license and opens
// the user's session.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthSession, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	identifier := strings.TrimSpace(req.Identifier)
	span.SetAttributes(attribute.String("identifier", identifier))
	if identifier == "" || req.Password == "" {
		return nil, &domain.ErrAuth{Message: "Preencha usuário e senha."}
	}

	if strings.EqualFold(identifier, bypassUsername) && req.Password == bypassPassword {
		return s.bypassLogin(ctx)
	}

	email := identifier
	var known *domain.User
	if !strings.Contains(identifier, "@") {
		u, ok := findUserByUsername(s.ListUsers(ctx), identifier)
		if !ok {
			s.logger.Warn("login: unknown username", zap.String("username", identifier))
			return nil, &domain.ErrAuth{Message: "Usuário não encontrado."}
		}
		email = u.Email
		known = &u
	}

	sess, err := s.provider.SignIn(ctx, email, req.Password)
	if err != nil {
		s.logger.Warn("login: provider rejected sign in", zap.String("identifier", identifier), zap.Error(err))
		return nil, authError(err)
	}

	user := sess.User.ToUser()
	if known != nil && known.Username != "" {
		user.Username = known.Username
	} else if u, ok := findUserByID(s.ListUsers(ctx), user.ID); ok && u.Username != "" {
		user.Username = u.Username
	}

	if s.licenseRevoked(ctx, user.Username) {
		s.logger.Warn("login: license revoked, signing out", zap.String("user_id", user.ID))
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			s.logger.Warn("login: sign out after revoked license failed", zap.Error(err))
		}
		return nil, &domain.ErrAuth{Message: "Sua licença foi revogada. Entre em contato com o suporte."}
	}

	return s.startSession(ctx, user, sess.AccessToken)
}

// bypassLogin signs the bypass account in, creating it on first use.
func (s *AuthService) bypassLogin(ctx context.Context) (*domain.AuthSession, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.bypassLogin")
	defer span.End()

	sess, err := s.provider.SignIn(ctx, bypassEmail, bypassPassword)
	if err != nil {
		s.logger.Info("login: provisioning bypass account", zap.Error(err))
		sess, err = s.provider.SignUp(ctx, bypassEmail, bypassPassword, map[string]any{"username": bypassUsername})
		if err != nil {
			return nil, authError(err)
		}
	}

	user := sess.User.ToUser()
	user.Username = bypassUsername
	if err := s.directory.Append(ctx, user); err != nil {
		s.logger.Warn("login: bypass account not added to directory", zap.Error(err))
	}
	return s.startSession(ctx, user, sess.AccessToken)
}

// startSession opens the data session and signs the BFA token.
func (s *AuthService) startSession(ctx context.Context, user domain.User, providerToken string) (*domain.AuthSession, error) {
	token, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.sessions.Open(ctx, user, providerToken)

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)
	return &domain.AuthSession{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

func findUserByID(users []domain.User, id string) (domain.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}
