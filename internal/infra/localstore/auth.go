package localstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	bcryptCost        = 12
	minPasswordLength = 6
)

// AuthProvider implements port.AuthProvider with bcrypt accounts in SQLite.
// Rejections use the same status/code pairs as the hosted provider so the
// auth service translates both the same way.
type AuthProvider struct {
	database *gorm.DB
	cost     int
}

// NewAuthProvider creates the local auth provider. cost <= 0 uses the default
// bcrypt cost.
func NewAuthProvider(database *gorm.DB, cost int) *AuthProvider {
	if cost <= 0 {
		cost = bcryptCost
	}
	return &AuthProvider{database: database, cost: cost}
}

var (
	errInvalidCredentials = &domain.ErrProvider{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	errUserExists         = &domain.ErrProvider{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	errWeakPassword       = &domain.ErrProvider{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	errBadToken           = &domain.ErrProvider{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid token"}
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *AuthProvider) SignIn(ctx context.Context, email, password string) (*domain.ProviderSession, error) {
	ctx, span := tracer.Start(ctx, "LocalAuth.SignIn")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	var acc accountRecord
	err := a.database.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find local account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return a.issueSession(ctx, &acc)
}

func (a *AuthProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.ProviderSession, error) {
	ctx, span := tracer.Start(ctx, "LocalAuth.SignUp")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	if len(password) < minPasswordLength {
		return nil, errWeakPassword
	}

	email = normalizeEmail(email)
	var count int64
	if err := a.database.WithContext(ctx).Model(&accountRecord{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count local accounts: %w", err)
	}
	if count > 0 {
		return nil, errUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	acc := accountRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     string(meta),
	}
	if err := a.database.WithContext(ctx).Create(&acc).Error; err != nil {
		return nil, fmt.Errorf("create local account: %w", err)
	}
	return a.issueSession(ctx, &acc)
}

// SignOut revokes the token. Unknown tokens are ignored.
func (a *AuthProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return a.database.WithContext(ctx).Where("token = ?", hashToken(accessToken)).Delete(&tokenRecord{}).Error
}

func (a *AuthProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	ctx, span := tracer.Start(ctx, "LocalAuth.UpdatePassword")
	defer span.End()

	if len(newPassword) < minPasswordLength {
		return errWeakPassword
	}

	var tok tokenRecord
	err := a.database.WithContext(ctx).Where("token = ?", hashToken(accessToken)).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errBadToken
	}
	if err != nil {
		return fmt.Errorf("find local token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return a.database.WithContext(ctx).Model(&accountRecord{}).
		Where("id = ?", tok.AccountID).
		Updates(map[string]any{"password_hash": string(hash), "updated_at": time.Now().UTC()}).Error
}

func (a *AuthProvider) issueSession(ctx context.Context, acc *accountRecord) (*domain.ProviderSession, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	raw := hex.EncodeToString(b)
	if err := a.database.WithContext(ctx).Create(&tokenRecord{Token: hashToken(raw), AccountID: acc.ID}).Error; err != nil {
		return nil, fmt.Errorf("store local token: %w", err)
	}

	meta := map[string]any{}
	_ = json.Unmarshal([]byte(acc.Metadata), &meta)
	return &domain.ProviderSession{
		AccessToken: raw,
		User:        domain.ProviderUser{ID: acc.ID, Email: acc.Email, Metadata: meta},
	}, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
