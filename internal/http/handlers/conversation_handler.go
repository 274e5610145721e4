// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST /conversations (start a conversation with its first message)
//   - GET  /conversations (list a user's conversations, most recent first)
//
// Listings use opaque continuation tokens: the client echoes the token from
// the previous page verbatim; an empty token means the listing is exhausted.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/http/middleware"
	"github.com/nadimakk/go-chat-service/internal/services"
	"github.com/nadimakk/go-chat-service/internal/utils"
)

//
// DTOs
//

// MessagePayload is the caller-supplied part of a message, shared between
// the start-conversation and post-message endpoints.
type MessagePayload struct {
	ID             string `json:"id" binding:"required,min=1"`
	SenderUsername string `json:"senderUsername" binding:"required,min=1"`
	Text           string `json:"text" binding:"required,min=1"`
}

// StartConversationRequest is the JSON payload for creating a conversation.
type StartConversationRequest struct {
	Participants []string       `json:"participants" binding:"required"`
	FirstMessage MessagePayload `json:"firstMessage" binding:"required"`
}

// StartConversationResponse reports the derived conversation id and the
// server timestamp assigned to the first message.
type StartConversationResponse struct {
	ConversationID string `json:"conversationId"`
	CreatedAt      int64  `json:"createdUnixTime"`
}

// ListConversationsResponse contains one page of a user's conversations.
// ContinuationToken is empty on the final page.
type ListConversationsResponse struct {
	Conversations     []services.ConversationSummary `json:"conversations"`
	ContinuationToken string                         `json:"continuationToken,omitempty"`
}

//
// Helpers
//

// clampLimit parses the limit query parameter, applying the configured
// default and cap.
func (h *Handlers) clampLimit(c *gin.Context) int {
	limit := utils.AtoiDefault(c.Query("limit"), h.limits.Default)
	if limit < 1 {
		limit = 1
	}
	if limit > h.limits.Max {
		limit = h.limits.Max
	}
	return limit
}

//
// Handlers
//

// StartConversation creates a two-party conversation with its first message.
//
// Responses: 201 with the conversation id and first-message timestamp, 400 on
// malformed input, 404 when a participant has no profile, 409 when the first
// message id was already used.
func (h *Handlers) StartConversation(c *gin.Context) {
	ctx := c.Request.Context()

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participants and firstMessage are required")
		return
	}

	res, err := h.conversations.StartConversation(ctx, services.StartConversationRequest{
		Participants: req.Participants,
		FirstMessage: services.MessageRequest{
			ID:             req.FirstMessage.ID,
			SenderUsername: req.FirstMessage.SenderUsername,
			Text:           req.FirstMessage.Text,
		},
	})
	if err != nil {
		failService(c, err)
		return
	}

	middleware.LoggerFrom(c).Info().
		Str("conversation_id", res.ConversationID).
		Msg("conversation started")

	ok(c, http.StatusCreated, StartConversationResponse{
		ConversationID: res.ConversationID,
		CreatedAt:      res.CreatedAt,
	})
}

// ListConversations returns one page of the requesting user's conversations,
// ordered by last activity (most recent first).
//
// Query parameters: username (required), limit, order (asc|desc, default
// desc), continuationToken, and lastSeenConversationTime (exclusive lower
// bound on last activity).
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	username := c.Query("username")
	if username == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username query parameter is required")
		return
	}

	params := services.ListConversationsParams{
		Limit:                    h.clampLimit(c),
		Order:                    docstore.Order(c.Query("order")),
		ContinuationToken:        c.Query("continuationToken"),
		LastSeenConversationTime: utils.ParseInt64Default(c.Query("lastSeenConversationTime"), 0),
	}

	page, next, err := h.conversations.GetConversations(ctx, username, params)
	if err != nil {
		failService(c, err)
		return
	}
	middleware.ObservePageSize("conversations", len(page))

	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations:     page,
		ContinuationToken: next,
	})
}
