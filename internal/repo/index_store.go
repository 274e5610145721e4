// Package repo – IndexStore.
//
// The index is the denormalized per-user view of conversations: one
// document per (username, conversation id), partitioned by username and
// ordered by last activity. It exists so a user's conversation list can be
// served without scanning conversations, at the cost of the fan-out writes
// the orchestrator performs on every post.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
)

const entriesCollection = "user_conversations"

// IndexStore persists UserConversationEntry rows keyed by
// (username, conversation id).
type IndexStore struct {
	docs docstore.Collection
}

// NewIndexStore binds an IndexStore to the user-conversations collection of
// store.
func NewIndexStore(store docstore.Store) *IndexStore {
	return &IndexStore{docs: store.Collection(entriesCollection)}
}

// Upsert writes an entry with create-or-replace semantics.
func (s *IndexStore) Upsert(ctx context.Context, e domain.UserConversationEntry) error {
	if isBlank(e.Username) || isBlank(e.ConversationID) {
		return fmt.Errorf("%w: username and conversation id must be non-blank", ErrInvalidArgument)
	}
	if e.LastModified < 0 {
		return fmt.Errorf("%w: lastModifiedUnixTime must be >= 0", ErrInvalidArgument)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, docstore.Document{
		PartitionKey: e.Username,
		ID:           e.ConversationID,
		OrderKey:     e.LastModified,
		Data:         data,
	})
}

// Get fetches an entry, returning (nil, nil) when it does not exist.
func (s *IndexStore) Get(ctx context.Context, username, conversationID string) (*domain.UserConversationEntry, error) {
	if isBlank(username) || isBlank(conversationID) {
		return nil, fmt.Errorf("%w: username and conversation id must be non-blank", ErrInvalidArgument)
	}
	doc, err := s.docs.Get(ctx, username, conversationID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(*doc)
}

// List returns one page of the user's entries with LastModified strictly
// greater than since, ordered by LastModified. Entries with equal
// timestamps fall back to the store's native insertion order; the
// tie-break is stable within a cursor chain but otherwise unspecified.
func (s *IndexStore) List(ctx context.Context, username string, limit int, order docstore.Order, token string, since int64) ([]domain.UserConversationEntry, string, error) {
	if isBlank(username) {
		return nil, "", fmt.Errorf("%w: username must be non-blank", ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, "", fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	if since < 0 {
		return nil, "", fmt.Errorf("%w: lastSeenConversationTime must be >= 0", ErrInvalidArgument)
	}
	page, err := s.docs.Query(ctx, docstore.Query{
		PartitionKey: username,
		Limit:        limit,
		Order:        order,
		After:        since,
		Token:        token,
	})
	if errors.Is(err, docstore.ErrInvalidToken) {
		return nil, "", ErrInvalidCursor
	}
	if err != nil {
		return nil, "", err
	}
	out := make([]domain.UserConversationEntry, 0, len(page.Documents))
	for _, doc := range page.Documents {
		e, err := decodeEntry(doc)
		if err != nil {
			return nil, "", err
		}
		out = append(out, *e)
	}
	return out, page.NextToken, nil
}

// Delete removes an entry; absence is not an error.
func (s *IndexStore) Delete(ctx context.Context, username, conversationID string) error {
	if isBlank(username) || isBlank(conversationID) {
		return fmt.Errorf("%w: username and conversation id must be non-blank", ErrInvalidArgument)
	}
	return s.docs.Delete(ctx, username, conversationID)
}

func decodeEntry(doc docstore.Document) (*domain.UserConversationEntry, error) {
	var e domain.UserConversationEntry
	if err := json.Unmarshal(doc.Data, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s/%s: %w", doc.PartitionKey, doc.ID, err)
	}
	return &e, nil
}
