package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadimakk/go-chat-service/internal/cache"
	"github.com/nadimakk/go-chat-service/internal/domain"
	"github.com/nadimakk/go-chat-service/internal/repo"
)

// ProfileRepo is the store contract required by ProfileService.
type ProfileRepo interface {
	// Create persists a new profile; repo.ErrConflict if the username is
	// taken.
	Create(ctx context.Context, p domain.Profile) error
	// Get returns the profile, or (nil, nil) when absent.
	Get(ctx context.Context, username string) (*domain.Profile, error)
}

// ProfileService manages user profiles with a read-through cache in front
// of the store. The cache is best effort; a cold or unreachable cache only
// costs a store round trip.
type ProfileService struct {
	Repo  ProfileRepo
	Cache cache.ProfileCache
}

// NewProfileService constructs a ProfileService. A nil cache degrades to a
// no-op.
func NewProfileService(r ProfileRepo, c cache.ProfileCache) *ProfileService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ProfileService{Repo: r, Cache: c}
}

// Create registers a new profile. Usernames must be non-blank, free of the
// conversation-id separator, and not already taken (ErrProfileExists).
func (s *ProfileService) Create(ctx context.Context, p domain.Profile) error {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "CreateProfile",
		trace.WithAttributes(attribute.String("user.name", p.Username)),
	)
	defer span.End()

	if isBlank(p.Username) || isBlank(p.FirstName) || isBlank(p.LastName) {
		return fmt.Errorf("%w: username, firstName, and lastName must be non-blank", ErrInvalidArgument)
	}
	if strings.Contains(p.Username, domain.ConversationIDSeparator) {
		return fmt.Errorf("%w: username must not contain %q", ErrInvalidArgument, domain.ConversationIDSeparator)
	}

	err := s.Repo.Create(ctx, p)
	if errors.Is(err, repo.ErrConflict) {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Username)
	}
	if err != nil {
		return mapStoreErr(err)
	}
	// A stale negative entry could otherwise mask the fresh profile.
	s.Cache.Invalidate(ctx, p.Username)
	return nil
}

// Get returns a profile by username, or (nil, nil) when absent. Cache hits
// skip the store; misses fill the cache on the way out.
func (s *ProfileService) Get(ctx context.Context, username string) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "GetProfile",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer span.End()

	if isBlank(username) {
		return nil, fmt.Errorf("%w: username must be non-blank", ErrInvalidArgument)
	}
	if p, ok := s.Cache.Get(ctx, username); ok {
		return p, nil
	}
	p, err := s.Repo.Get(ctx, username)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if p != nil {
		s.Cache.Set(ctx, *p)
	}
	return p, nil
}

// Exists reports whether a profile is registered for username.
func (s *ProfileService) Exists(ctx context.Context, username string) (bool, error) {
	p, err := s.Get(ctx, username)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// isBlank reports whether s is empty or whitespace-only.
func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
