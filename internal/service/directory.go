package service

import (
	"context"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"
)

const directoryCacheKey = "directory"

// Directory is the global user list stored under users/{system}. Sessions
// read it to resolve team members; AuthService appends to it.
type Directory struct {
	store   port.DataStore
	cache   port.Cache[[]domain.User]
	metrics *observability.Metrics
}

func NewDirectory(store port.DataStore, cache port.Cache[[]domain.User], metrics *observability.Metrics) *Directory {
	return &Directory{store: store, cache: cache, metrics: metrics}
}

// ListUsers returns the directory, served from cache when fresh.
func (d *Directory) ListUsers(ctx context.Context) []domain.User {
	if users, ok := d.cache.Get(directoryCacheKey); ok {
		d.metrics.IncrCacheHit("users")
		return users
	}
	d.metrics.IncrCacheMiss("users")

	users := d.Fresh(ctx)
	d.cache.Set(directoryCacheKey, users)
	return users
}

// Fresh reads the directory bypassing the cache.
func (d *Directory) Fresh(ctx context.Context) []domain.User {
	var users []domain.User
	d.store.Get(ctx, domain.SystemOwnerID, domain.CollectionUsers, &users)
	if users == nil {
		users = []domain.User{}
	}
	return users
}

// Append adds u unless its id is already present.
func (d *Directory) Append(ctx context.Context, u domain.User) error {
	users := d.Fresh(ctx)
	for _, existing := range users {
		if existing.ID == u.ID {
			return nil
		}
	}
	users = append(users, u)
	err := d.store.Set(ctx, domain.SystemOwnerID, domain.CollectionUsers, users)
	d.cache.Delete(directoryCacheKey)
	return err
}
