package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Auth: GoTrue password flow (implements port.AuthProvider)
// ============================================================

// AuthProvider talks to the Supabase Auth (GoTrue) endpoints with the anon key.
type AuthProvider struct {
	client *Client
}

// NewAuthProvider creates the hosted auth adapter.
func NewAuthProvider(client *Client) *AuthProvider {
	return &AuthProvider{client: client}
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`

	// signup without email confirmation returns the user at the top level
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// gotrueError covers the error shapes of the different GoTrue versions.
type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func providerError(resp *apiResponse) error {
	var ge gotrueError
	_ = json.Unmarshal(resp.body, &ge)

	code := ge.ErrorCode
	if code == "" {
		code = ge.Error
	}
	if code == "" {
		if s, ok := ge.Code.(string); ok {
			code = s
		}
	}
	msg := ge.Msg
	if msg == "" {
		msg = ge.ErrorDescription
	}
	if msg == "" {
		msg = ge.Message
	}
	if msg == "" {
		msg = string(resp.body)
	}

	err := &domain.ErrProvider{Status: resp.status, Code: code, Message: msg}
	if resp.status >= 400 && resp.status < 500 && resp.status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

func (s *gotrueSession) toDomain() *domain.ProviderSession {
	u := s.User
	if u == nil {
		u = &gotrueUser{ID: s.ID, Email: s.Email, UserMetadata: s.UserMetadata}
	}
	return &domain.ProviderSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User: domain.ProviderUser{
			ID:       u.ID,
			Email:    u.Email,
			Metadata: u.UserMetadata,
		},
	}
}

// call runs one auth request through the breaker and decodes a session when
// out is non-nil.
func (a *AuthProvider) call(ctx context.Context, method, path string, payload any, bearer string, out *gotrueSession) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal auth payload: %w", err)
		}
		body = b
	}
	if bearer == "" {
		bearer = a.client.apiKey
	}

	return resilience.Execute(ctx, a.client.cb, a.client.cfg, func() error {
		resp, err := a.client.doRequest(ctx, method, path, body, bearer, nil)
		if err != nil {
			return err
		}
		if !isSuccess(resp.status) {
			return providerError(resp)
		}
		if out != nil && len(resp.body) > 0 {
			if err := json.Unmarshal(resp.body, out); err != nil {
				return fmt.Errorf("decode auth response: %w", err)
			}
		}
		return nil
	})
}

// SignIn exchanges email + password for a session.
func (a *AuthProvider) SignIn(ctx context.Context, email, password string) (*domain.ProviderSession, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	var sess gotrueSession
	err := a.call(ctx, http.MethodPost, "auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, "", &sess)
	if err != nil {
		return nil, err
	}
	return sess.toDomain(), nil
}

// SignUp creates the account. metadata is stored as user_metadata.
func (a *AuthProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.ProviderSession, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	var sess gotrueSession
	err := a.call(ctx, http.MethodPost, "auth/v1/signup",
		map[string]any{"email": email, "password": password, "data": metadata}, "", &sess)
	if err != nil {
		return nil, err
	}
	return sess.toDomain(), nil
}

// SignOut revokes the user's provider session.
func (a *AuthProvider) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	if accessToken == "" {
		return nil
	}
	return a.call(ctx, http.MethodPost, "auth/v1/logout", nil, accessToken, nil)
}

// UpdatePassword sets a new password for the user owning accessToken.
func (a *AuthProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePassword")
	defer span.End()

	return a.call(ctx, http.MethodPut, "auth/v1/user",
		map[string]string{"password": newPassword}, accessToken, nil)
}
