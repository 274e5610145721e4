// Package services – ConversationService
//
// This file implements the conversation orchestrator: starting a
// conversation, posting messages with idempotent-retry semantics, and the
// cursor-paginated listings. It composes the message store, the per-user
// conversation index, and the profile lookup; each call is one full
// transition with no persisted intermediate state.
//
// The two index upserts fanned out after a successful post are independent
// writes to independent partitions. One may fail while the other lands,
// leaving a transient timestamp skew between the participants' views; the
// orchestrator does not roll back the message write, and the skew heals on
// the next successful post in the conversation.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// conversation/user identifiers and pagination parameters.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
	"github.com/nadimakk/go-chat-service/internal/repo"
)

// MessageRepo defines the message-store contract required by the
// orchestrator.
type MessageRepo interface {
	// Add persists a new message; repo.ErrConflict when the id is taken.
	Add(ctx context.Context, m domain.Message) error
	// UpdateCreatedAt refreshes the timestamp of an existing message.
	UpdateCreatedAt(ctx context.Context, conversationID, messageID string, createdAt int64) error
	// List returns one page of messages plus a continuation token.
	List(ctx context.Context, conversationID string, limit int, order docstore.Order, token string, since int64) ([]domain.Message, string, error)
	// ConversationExists reports whether the conversation has any message.
	ConversationExists(ctx context.Context, conversationID string) (bool, error)
}

// IndexRepo defines the user-conversation index contract required by the
// orchestrator.
type IndexRepo interface {
	// Upsert writes an index entry with create-or-replace semantics.
	Upsert(ctx context.Context, e domain.UserConversationEntry) error
	// List returns one page of a user's entries plus a continuation token.
	List(ctx context.Context, username string, limit int, order docstore.Order, token string, since int64) ([]domain.UserConversationEntry, string, error)
}

// ProfileLookup is the external profile collaborator used for participant
// validation and recipient resolution.
type ProfileLookup interface {
	Exists(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, username string) (*domain.Profile, error)
}

// ConversationService orchestrates conversations and messages over the
// stores and the profile lookup.
type ConversationService struct {
	Messages MessageRepo
	Index    IndexRepo
	Profiles ProfileLookup

	// Now returns the server clock reading in Unix milliseconds. Captured
	// once per operation; overridable in tests.
	Now func() int64
}

// NewConversationService constructs a ConversationService using the wall
// clock.
func NewConversationService(m MessageRepo, i IndexRepo, p ProfileLookup) *ConversationService {
	return &ConversationService{
		Messages: m,
		Index:    i,
		Profiles: p,
		Now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// MessageRequest is the caller-supplied part of a message.
type MessageRequest struct {
	ID             string
	SenderUsername string
	Text           string
}

// StartConversationRequest starts a two-party conversation with its first
// message.
type StartConversationRequest struct {
	Participants []string
	FirstMessage MessageRequest
}

// StartConversationResult reports the derived conversation id and the
// server timestamp assigned to the first message.
type StartConversationResult struct {
	ConversationID string
	CreatedAt      int64
}

// ListMessagesParams parameterizes GetMessages.
type ListMessagesParams struct {
	ConversationID      string
	Limit               int
	Order               docstore.Order
	ContinuationToken   string
	LastSeenMessageTime int64
}

// ListConversationsParams parameterizes GetConversations.
type ListConversationsParams struct {
	Limit                    int
	Order                    docstore.Order
	ContinuationToken        string
	LastSeenConversationTime int64
}

// ConversationSummary is one row of a user's conversation list: the
// conversation, its last activity, and the resolved other participant.
type ConversationSummary struct {
	ConversationID string         `json:"conversationId"`
	LastModified   int64          `json:"lastModifiedUnixTime"`
	Recipient      domain.Profile `json:"recipient"`
}

// StartConversation validates the participants, verifies both profiles
// exist, derives the conversation id, and posts the first message. A
// duplicate first-message id is a conflict (ErrMessageExists), never an
// idempotent success.
func (s *ConversationService) StartConversation(ctx context.Context, req StartConversationRequest) (*StartConversationResult, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "StartConversation")
	defer span.End()

	if len(req.Participants) != 2 {
		return nil, fmt.Errorf("%w: exactly two participants required", ErrInvalidArgument)
	}
	if err := validateMessageRequest(req.FirstMessage); err != nil {
		return nil, err
	}
	conversationID, err := domain.DeriveConversationID(req.Participants[0], req.Participants[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	sender := req.FirstMessage.SenderUsername
	if sender != req.Participants[0] && sender != req.Participants[1] {
		return nil, fmt.Errorf("%w: sender must be a participant", ErrInvalidArgument)
	}
	span.SetAttributes(attribute.String("conversation.id", conversationID))

	// Both participants must exist; the checks run concurrently and the
	// operation fails if any is missing, in no guaranteed order.
	g, gctx := errgroup.WithContext(ctx)
	for _, username := range req.Participants {
		g.Go(func() error {
			ok, err := s.Profiles.Exists(gctx, username)
			if err != nil {
				return mapStoreErr(err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrUserNotFound, username)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	createdAt, err := s.PostMessage(ctx, conversationID, true, req.FirstMessage)
	if err != nil {
		return nil, err
	}
	return &StartConversationResult{ConversationID: conversationID, CreatedAt: createdAt}, nil
}

// PostMessage appends a message to a conversation and fans the new
// activity timestamp out to both participants' index entries.
//
// Duplicate delivery (same message id) refreshes the stored message's
// timestamp through the dedicated update path and then still reports
// ErrMessageExists, so retrying callers observe a consistent timestamp
// while learning the message was already delivered. The index fan-out runs
// only after a fresh insert.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID string, isFirstMessage bool, req MessageRequest) (int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("message.id", req.ID),
			attribute.Bool("message.first", isFirstMessage),
		),
	)
	defer span.End()

	if err := validateMessageRequest(req); err != nil {
		return 0, err
	}
	userA, userB, err := domain.SplitConversationID(conversationID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if !isFirstMessage {
		exists, err := s.Messages.ConversationExists(ctx, conversationID)
		if err != nil {
			return 0, mapStoreErr(err)
		}
		if !exists {
			return 0, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
		}
	}

	ok, err := s.Profiles.Exists(ctx, req.SenderUsername)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, req.SenderUsername)
	}
	if req.SenderUsername != userA && req.SenderUsername != userB {
		return 0, fmt.Errorf("%w: %s not in %s", ErrForbidden, req.SenderUsername, conversationID)
	}

	createdAt := s.Now()
	err = s.Messages.Add(ctx, domain.Message{
		ID:             req.ID,
		ConversationID: conversationID,
		SenderUsername: req.SenderUsername,
		Text:           req.Text,
		CreatedAt:      createdAt,
	})
	if errors.Is(err, repo.ErrConflict) {
		// Duplicate delivery: refresh the timestamp, then re-raise the
		// conflict so the caller can tell this was a retry.
		if uerr := s.Messages.UpdateCreatedAt(ctx, conversationID, req.ID, createdAt); uerr != nil {
			return 0, mapStoreErr(uerr)
		}
		return createdAt, fmt.Errorf("%w: %s in %s", ErrMessageExists, req.ID, conversationID)
	}
	if err != nil {
		return 0, mapStoreErr(err)
	}

	// Fan out the new activity timestamp to both participants. The writes
	// are independent and unordered; a failure here is surfaced without
	// rolling back the message (retrying the post is safe end to end).
	g, gctx := errgroup.WithContext(ctx)
	for _, username := range []string{userA, userB} {
		g.Go(func() error {
			return s.Index.Upsert(gctx, domain.UserConversationEntry{
				Username:       username,
				ConversationID: conversationID,
				LastModified:   createdAt,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return 0, mapStoreErr(err)
	}
	return createdAt, nil
}

// GetMessages returns one page of a conversation's messages.
func (s *ConversationService) GetMessages(ctx context.Context, p ListMessagesParams) ([]domain.Message, string, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "GetMessages",
		trace.WithAttributes(
			attribute.String("conversation.id", p.ConversationID),
			attribute.Int("limit", p.Limit),
		),
	)
	defer span.End()

	if err := validateListParams(p.ConversationID, "conversation id", p.Limit, p.LastSeenMessageTime); err != nil {
		return nil, "", err
	}
	order, err := normalizeOrder(p.Order)
	if err != nil {
		return nil, "", err
	}

	exists, err := s.Messages.ConversationExists(ctx, p.ConversationID)
	if err != nil {
		return nil, "", mapStoreErr(err)
	}
	if !exists {
		return nil, "", fmt.Errorf("%w: %s", ErrConversationNotFound, p.ConversationID)
	}

	msgs, next, err := s.Messages.List(ctx, p.ConversationID, p.Limit, order, p.ContinuationToken, p.LastSeenMessageTime)
	if err != nil {
		return nil, "", mapStoreErr(err)
	}
	return msgs, next, nil
}

// GetConversations returns one page of a user's conversation list, with
// each entry's other participant resolved to a profile. Resolution is
// per-row and runs concurrently across the page.
func (s *ConversationService) GetConversations(ctx context.Context, username string, p ListConversationsParams) ([]ConversationSummary, string, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "GetConversations",
		trace.WithAttributes(
			attribute.String("user.name", username),
			attribute.Int("limit", p.Limit),
		),
	)
	defer span.End()

	if err := validateListParams(username, "username", p.Limit, p.LastSeenConversationTime); err != nil {
		return nil, "", err
	}
	order, err := normalizeOrder(p.Order)
	if err != nil {
		return nil, "", err
	}

	ok, err := s.Profiles.Exists(ctx, username)
	if err != nil {
		return nil, "", mapStoreErr(err)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	entries, next, err := s.Index.List(ctx, username, p.Limit, order, p.ContinuationToken, p.LastSeenConversationTime)
	if err != nil {
		return nil, "", mapStoreErr(err)
	}

	out := make([]ConversationSummary, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			userA, userB, err := domain.SplitConversationID(e.ConversationID)
			if err != nil {
				return fmt.Errorf("index entry %s/%s: %w", e.Username, e.ConversationID, err)
			}
			other := userA
			if other == username {
				other = userB
			}
			recipient, err := s.Profiles.Get(gctx, other)
			if err != nil {
				return mapStoreErr(err)
			}
			if recipient == nil {
				// Keep the row; a vanished profile must not destabilize
				// the page.
				recipient = &domain.Profile{Username: other}
			}
			out[i] = ConversationSummary{
				ConversationID: e.ConversationID,
				LastModified:   e.LastModified,
				Recipient:      *recipient,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return out, next, nil
}

// validateMessageRequest rejects blank message fields before any I/O.
func validateMessageRequest(req MessageRequest) error {
	if isBlank(req.ID) || isBlank(req.SenderUsername) || isBlank(req.Text) {
		return fmt.Errorf("%w: message id, sender, and text must be non-blank", ErrInvalidArgument)
	}
	return nil
}

// validateListParams rejects malformed pagination input before any I/O.
func validateListParams(id, label string, limit int, since int64) error {
	if isBlank(id) {
		return fmt.Errorf("%w: %s must be non-blank", ErrInvalidArgument, label)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	if since < 0 {
		return fmt.Errorf("%w: last-seen time must be >= 0", ErrInvalidArgument)
	}
	return nil
}

// normalizeOrder defaults an empty order to descending (most recent first).
func normalizeOrder(o docstore.Order) (docstore.Order, error) {
	switch o {
	case "":
		return docstore.OrderDesc, nil
	case docstore.OrderAsc, docstore.OrderDesc:
		return o, nil
	}
	return "", fmt.Errorf("%w: order must be %q or %q", ErrInvalidArgument, docstore.OrderAsc, docstore.OrderDesc)
}

// mapStoreErr translates persistence-layer errors into the service
// taxonomy. Unknown errors pass through untouched.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrInvalidArgument):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	case errors.Is(err, repo.ErrInvalidCursor):
		return ErrInvalidCursor
	case errors.Is(err, docstore.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return err
}
