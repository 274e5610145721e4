// Package cache provides the optional read cache in front of the profile
// store. Cache failures are never allowed to fail a read path; callers
// treat every miss (including an errored lookup) as "go to the store".
package cache

import (
	"context"

	"github.com/nadimakk/go-chat-service/internal/domain"
)

// ProfileCache caches profiles by username.
type ProfileCache interface {
	// Get returns the cached profile and whether it was present.
	Get(ctx context.Context, username string) (*domain.Profile, bool)
	// Set stores a profile. Best effort; errors are swallowed.
	Set(ctx context.Context, p domain.Profile)
	// Invalidate drops a username from the cache. Best effort.
	Invalidate(ctx context.Context, username string)
}

// Noop is the cache used when no Redis is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Profile, bool) { return nil, false }
func (Noop) Set(context.Context, domain.Profile)                 {}
func (Noop) Invalidate(context.Context, string)                  {}
