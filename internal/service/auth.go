// Package service: AuthService wraps the hosted auth provider: login by
// email or username, license-gated registration, logout, password change,
// the global user directory and the BFA session tokens.
package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const (
	// Bypass account: always allowed in, self-provisioned on first use and
	// never license-checked.
	bypassUsername = "luizmellol"
	bypassPassword = "big123"
	bypassEmail    = "luizmellol@studio.local"

	minPasswordLength = 6
)

func brandingSplashKey(userID string) string { return "brandingSplashShown:" + userID }

// AuthService orchestrates authentication flows.
type AuthService struct {
	provider   port.AuthProvider
	store      port.DataStore
	flags      port.FlagStore
	directory  *Directory
	sessions   *SessionManager
	licenseKey string
	jwtSecret  []byte
	accessTTL  time.Duration
	revoked    *revocations
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthConfig carries the token and license settings.
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	LicenseKey string
}

// NewAuthService creates a new auth service.
func NewAuthService(provider port.AuthProvider, store port.DataStore, flags port.FlagStore, directory *Directory, sessions *SessionManager, cfg AuthConfig, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		provider:   provider,
		store:      store,
		flags:      flags,
		directory:  directory,
		sessions:   sessions,
		licenseKey: cfg.LicenseKey,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		revoked:    newRevocations(),
		metrics:    metrics,
		logger:     logger,
	}
}

// ListUsers returns the global user directory.
func (s *AuthService) ListUsers(ctx context.Context) []domain.User {
	return s.directory.ListUsers(ctx)
}

// ============================================================
// Licenses: licenses/{system}
// ============================================================

func (s *AuthService) readLicenses(ctx context.Context) []domain.LicenseRecord {
	var records []domain.LicenseRecord
	s.store.Get(ctx, domain.SystemOwnerID, domain.CollectionLicenses, &records)
	return records
}

func (s *AuthService) licenseRevoked(ctx context.Context, username string) bool {
	for _, rec := range s.readLicenses(ctx) {
		if strings.EqualFold(rec.Username, username) && rec.Status == domain.LicenseRevoked {
			return true
		}
	}
	return false
}

func (s *AuthService) recordLicense(ctx context.Context, username string) error {
	records := append(s.readLicenses(ctx), domain.LicenseRecord{
		Key:      s.licenseKey,
		Username: username,
		Status:   domain.LicenseUsed,
		UsedAt:   toISO(time.Now()),
	})
	return s.store.Set(ctx, domain.SystemOwnerID, domain.CollectionLicenses, records)
}

// ============================================================
// Provider error translation
// ============================================================

// authError maps provider failures to the messages shown on the forms.
func authError(err error) error {
	var authErr *domain.ErrAuth
	if errors.As(err, &authErr) {
		return err
	}

	var provider *domain.ErrProvider
	if errors.As(err, &provider) {
		code := strings.ToLower(provider.Code)
		msg := strings.ToLower(provider.Message)
		switch {
		case code == "invalid_credentials" || code == "invalid_grant" || strings.Contains(msg, "invalid login credentials"):
			return &domain.ErrAuth{Message: "Usuário ou senha incorretos.", Err: err}
		case code == "user_already_exists" || code == "email_exists" || strings.Contains(msg, "already registered"):
			return &domain.ErrAuth{Message: "Este e-mail já está cadastrado.", Err: err}
		case code == "weak_password" || strings.Contains(msg, "at least 6"):
			return &domain.ErrAuth{Message: "A senha deve ter pelo menos 6 caracteres.", Err: err}
		case code == "email_not_confirmed" || strings.Contains(msg, "email not confirmed"):
			return &domain.ErrAuth{Message: "Confirme seu e-mail antes de entrar.", Err: err}
		case code == "validation_failed" || code == "email_address_invalid" || strings.Contains(msg, "invalid format"):
			return &domain.ErrAuth{Message: "E-mail inválido.", Err: err}
		case provider.Status == http.StatusTooManyRequests || strings.Contains(code, "rate_limit"):
			return &domain.ErrAuth{Message: "Muitas tentativas. Aguarde alguns minutos e tente novamente.", Err: err}
		case provider.Status == http.StatusUnauthorized || provider.Status == http.StatusForbidden:
			return &domain.ErrAuth{Message: "Sessão expirada. Entre novamente.", Err: err}
		}
		return &domain.ErrAuth{Message: "Erro de autenticação. Tente novamente.", Err: err}
	}

	// breaker open, network failure, 5xx
	return &domain.ErrAuth{Message: "Serviço de autenticação indisponível. Tente novamente em instantes.", Err: err}
}
