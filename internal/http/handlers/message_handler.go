// Message HTTP handlers.
//
// This file exposes REST endpoints for messages within a conversation:
//   - POST /conversations/{conversationId}/messages (append a message)
//   - GET  /conversations/{conversationId}/messages (list, newest first)
//
// Message ids are chosen by the client, which makes retries observable: a
// resend of an already-delivered id is answered with 409 rather than creating
// a second copy.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
	"github.com/nadimakk/go-chat-service/internal/http/middleware"
	"github.com/nadimakk/go-chat-service/internal/services"
	"github.com/nadimakk/go-chat-service/internal/utils"
)

//
// DTOs
//

// PostMessageResponse reports the server timestamp assigned to the message.
type PostMessageResponse struct {
	CreatedAt int64 `json:"createdUnixTime"`
}

// ListMessagesResponse contains one page of a conversation's messages.
// ContinuationToken is empty on the final page.
type ListMessagesResponse struct {
	Messages          []domain.Message `json:"messages"`
	ContinuationToken string           `json:"continuationToken,omitempty"`
}

//
// Handlers
//

// PostMessage appends a message to an existing conversation.
//
// Responses: 201 with the assigned timestamp, 400 on malformed input, 403
// when the sender is not a participant, 404 when the conversation or sender
// profile does not exist, 409 when the message id was already delivered.
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("conversationId")

	var req MessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id, senderUsername, and text are required")
		return
	}

	createdAt, err := h.conversations.PostMessage(ctx, conversationID, false, services.MessageRequest{
		ID:             req.ID,
		SenderUsername: req.SenderUsername,
		Text:           req.Text,
	})
	if err != nil {
		failService(c, err)
		return
	}

	middleware.LoggerFrom(c).Info().
		Str("conversation_id", conversationID).
		Str("message_id", req.ID).
		Msg("message posted")

	ok(c, http.StatusCreated, PostMessageResponse{CreatedAt: createdAt})
}

// ListMessages returns one page of a conversation's messages, newest first.
//
// Query parameters: limit, order (asc|desc, default desc),
// continuationToken, and lastSeenMessageTime (exclusive lower bound on
// message timestamps).
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	params := services.ListMessagesParams{
		ConversationID:      c.Param("conversationId"),
		Limit:               h.clampLimit(c),
		Order:               docstore.Order(c.Query("order")),
		ContinuationToken:   c.Query("continuationToken"),
		LastSeenMessageTime: utils.ParseInt64Default(c.Query("lastSeenMessageTime"), 0),
	}

	page, next, err := h.conversations.GetMessages(ctx, params)
	if err != nil {
		failService(c, err)
		return
	}
	middleware.ObservePageSize("messages", len(page))

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:          page,
		ContinuationToken: next,
	})
}
