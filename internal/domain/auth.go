package domain

// ============================================================
// Auth: Request / Response types (matches frontend API contract)
// ============================================================

// LoginRequest is the body for POST /v1/auth/login. Identifier is either an
// email or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	LicenseKey string `json:"licenseKey"`
}

// ChangePasswordRequest is the body for PUT /v1/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthSession is returned by a successful login or registration.
type AuthSession struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// ============================================================
// Hosted provider shapes
// ============================================================

// ProviderUser is the account as the hosted auth provider reports it.
type ProviderUser struct {
	ID       string
	Email    string
	Metadata map[string]any
}

// ProviderSession is what the provider returns after sign-in or sign-up.
// AccessToken may be empty when sign-up requires email confirmation.
type ProviderSession struct {
	AccessToken  string
	RefreshToken string
	User         ProviderUser
}

// ToUser maps a provider account to the internal User shape. The username
// comes from the signup metadata, falling back to the email local part.
func (p ProviderUser) ToUser() User {
	username := ""
	if v, ok := p.Metadata["username"].(string); ok {
		username = v
	}
	if username == "" {
		for i := 0; i < len(p.Email); i++ {
			if p.Email[i] == '@' {
				username = p.Email[:i]
				break
			}
		}
	}
	return User{ID: p.ID, Username: username, Email: p.Email}
}

// ============================================================
// Session state
// ============================================================

// AuthStatus is the auth state machine of a session.
type AuthStatus string

const (
	AuthLoading         AuthStatus = "loading"
	AuthUnauthenticated AuthStatus = "unauthenticated"
	AuthAuthenticated   AuthStatus = "authenticated"
)

// SessionState is returned by GET /v1/session.
type SessionState struct {
	Status AuthStatus `json:"status"`
	User   *User      `json:"user,omitempty"`
}
