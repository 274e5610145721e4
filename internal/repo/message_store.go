// Package repo – MessageStore.
//
// Messages are stored one document per message, partitioned by conversation
// id and ordered by their creation timestamp. There is no separate
// conversation record: a conversation exists iff at least one of its
// messages does.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
)

const messagesCollection = "messages"

// MessageStore persists messages keyed by (conversation id, message id).
type MessageStore struct {
	docs docstore.Collection
}

// NewMessageStore binds a MessageStore to the messages collection of store.
func NewMessageStore(store docstore.Store) *MessageStore {
	return &MessageStore{docs: store.Collection(messagesCollection)}
}

// Add persists a new message. It fails with ErrConflict when a message with
// the same (conversation id, id) already exists; it never overwrites.
func (s *MessageStore) Add(ctx context.Context, m domain.Message) error {
	if isBlank(m.ConversationID) || isBlank(m.ID) || isBlank(m.SenderUsername) || isBlank(m.Text) {
		return fmt.Errorf("%w: message fields must be non-blank", ErrInvalidArgument)
	}
	if m.CreatedAt < 0 {
		return fmt.Errorf("%w: createdUnixTime must be >= 0", ErrInvalidArgument)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	err = s.docs.Insert(ctx, docstore.Document{
		PartitionKey: m.ConversationID,
		ID:           m.ID,
		OrderKey:     m.CreatedAt,
		Data:         data,
	})
	if errors.Is(err, docstore.ErrConflict) {
		return ErrConflict
	}
	return err
}

// Get fetches a message, returning (nil, nil) when it does not exist.
func (s *MessageStore) Get(ctx context.Context, conversationID, messageID string) (*domain.Message, error) {
	if isBlank(conversationID) || isBlank(messageID) {
		return nil, fmt.Errorf("%w: conversation and message ids must be non-blank", ErrInvalidArgument)
	}
	doc, err := s.docs.Get(ctx, conversationID, messageID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMessage(*doc)
}

// UpdateCreatedAt refreshes the stored timestamp of an existing message.
// This is the controlled mutation applied on duplicate delivery; a missing
// message is a no-op.
func (s *MessageStore) UpdateCreatedAt(ctx context.Context, conversationID, messageID string, createdAt int64) error {
	if createdAt < 0 {
		return fmt.Errorf("%w: createdUnixTime must be >= 0", ErrInvalidArgument)
	}
	m, err := s.Get(ctx, conversationID, messageID)
	if err != nil || m == nil {
		return err
	}
	m.CreatedAt = createdAt
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.docs.Put(ctx, docstore.Document{
		PartitionKey: conversationID,
		ID:           messageID,
		OrderKey:     createdAt,
		Data:         data,
	})
}

// List returns one page of messages with CreatedAt strictly greater than
// since, ordered by CreatedAt, plus a continuation token when more rows
// exist beyond the page.
func (s *MessageStore) List(ctx context.Context, conversationID string, limit int, order docstore.Order, token string, since int64) ([]domain.Message, string, error) {
	if isBlank(conversationID) {
		return nil, "", fmt.Errorf("%w: conversation id must be non-blank", ErrInvalidArgument)
	}
	if limit <= 0 {
		return nil, "", fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	if since < 0 {
		return nil, "", fmt.Errorf("%w: lastSeenMessageTime must be >= 0", ErrInvalidArgument)
	}
	page, err := s.docs.Query(ctx, docstore.Query{
		PartitionKey: conversationID,
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
	out := make([]domain.Message, 0, len(page.Documents))
	for _, doc := range page.Documents {
		m, err := decodeMessage(doc)
		if err != nil {
			return nil, "", err
		}
		out = append(out, *m)
	}
	return out, page.NextToken, nil
}

// ConversationExists reports whether at least one message exists for the
// conversation.
func (s *MessageStore) ConversationExists(ctx context.Context, conversationID string) (bool, error) {
	if isBlank(conversationID) {
		return false, fmt.Errorf("%w: conversation id must be non-blank", ErrInvalidArgument)
	}
	return s.docs.HasAny(ctx, conversationID)
}

// Delete removes a message; absence is not an error.
func (s *MessageStore) Delete(ctx context.Context, conversationID, messageID string) error {
	if isBlank(conversationID) || isBlank(messageID) {
		return fmt.Errorf("%w: conversation and message ids must be non-blank", ErrInvalidArgument)
	}
	return s.docs.Delete(ctx, conversationID, messageID)
}

func decodeMessage(doc docstore.Document) (*domain.Message, error) {
	var m domain.Message
	if err := json.Unmarshal(doc.Data, &m); err != nil {
		return nil, fmt.Errorf("decode message %s/%s: %w", doc.PartitionKey, doc.ID, err)
	}
	return &m, nil
}
