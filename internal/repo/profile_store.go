// Package repo – ProfileStore.
//
// Profiles are stored one document per user, partitioned by username (also
// the document id, matching the point-read access pattern).
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
)

const profilesCollection = "profiles"

// ProfileStore persists user profiles keyed by username.
type ProfileStore struct {
	docs docstore.Collection
}

// NewProfileStore binds a ProfileStore to the profiles collection of store.
func NewProfileStore(store docstore.Store) *ProfileStore {
	return &ProfileStore{docs: store.Collection(profilesCollection)}
}

// Create persists a new profile, failing with ErrConflict when the username
// is already taken.
func (s *ProfileStore) Create(ctx context.Context, p domain.Profile) error {
	if isBlank(p.Username) {
		return fmt.Errorf("%w: username must be non-blank", ErrInvalidArgument)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	err = s.docs.Insert(ctx, docstore.Document{
		PartitionKey: p.Username,
		ID:           p.Username,
		Data:         data,
	})
	if errors.Is(err, docstore.ErrConflict) {
		return ErrConflict
	}
	return err
}

// Get fetches a profile, returning (nil, nil) when it does not exist.
func (s *ProfileStore) Get(ctx context.Context, username string) (*domain.Profile, error) {
	if isBlank(username) {
		return nil, fmt.Errorf("%w: username must be non-blank", ErrInvalidArgument)
	}
	doc, err := s.docs.Get(ctx, username, username)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p domain.Profile
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", username, err)
	}
	return &p, nil
}

// Delete removes a profile; absence is not an error.
func (s *ProfileStore) Delete(ctx context.Context, username string) error {
	if isBlank(username) {
		return fmt.Errorf("%w: username must be non-blank", ErrInvalidArgument)
	}
	return s.docs.Delete(ctx, username, username)
}
