// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
)

// DocumentBackend stores raw JSON documents addressed by owner and collection.
// Get returns (nil, nil) when the document does not exist.
type DocumentBackend interface {
	GetDocument(ctx context.Context, ownerKey, collectionKey string) ([]byte, error)
	PutDocument(ctx context.Context, ownerKey, collectionKey string, body []byte) error
	DeleteDocument(ctx context.Context, ownerKey, collectionKey string) error
}

// DataStore is the user-scoped key/value contract the session persists through.
// Get decodes into out and reports whether a document was found; read
// failures are reported as "not found".
type DataStore interface {
	Get(ctx context.Context, ownerKey, collectionKey string, out any) bool
	Set(ctx context.Context, ownerKey, collectionKey string, data any) error
	Delete(ctx context.Context, ownerKey, collectionKey string) error
}

// FlagStore persists small device-local values (read notifications, splash
// flag). Never synchronized to the remote backend.
type FlagStore interface {
	GetFlag(ctx context.Context, key string) (string, bool, error)
	SetFlag(ctx context.Context, key, value string) error
	DeleteFlag(ctx context.Context, key string) error
}

// AuthProvider is the hosted authentication service.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.ProviderSession, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.ProviderSession, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// TextGenerator invokes the generative AI provider.
type TextGenerator interface {
	Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
