// Profile HTTP handlers.
//
// This file exposes REST endpoints for user profiles:
//   - POST /profiles            (register a profile)
//   - GET  /profiles/{username} (fetch a profile)
//
// Handlers are transport-thin: they validate and bind input, delegate to the
// application services, and translate results into HTTP responses. This file
// also carries the service contracts and the Handlers wiring shared by the
// conversation and message endpoints.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nadimakk/go-chat-service/internal/domain"
	"github.com/nadimakk/go-chat-service/internal/services"
)

//
// Service contracts (context-aware)
//

// ProfileService defines profile operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ProfileService interface {
	// Create registers a new profile.
	Create(ctx context.Context, p domain.Profile) error
	// Get returns a profile, or (nil, nil) when absent.
	Get(ctx context.Context, username string) (*domain.Profile, error)
}

// ConversationService defines conversation and message operations consumed
// by HTTP handlers.
type ConversationService interface {
	// StartConversation creates a conversation together with its first message.
	StartConversation(ctx context.Context, req services.StartConversationRequest) (*services.StartConversationResult, error)
	// PostMessage appends a message to an existing conversation.
	PostMessage(ctx context.Context, conversationID string, isFirstMessage bool, req services.MessageRequest) (int64, error)
	// GetMessages returns one page of a conversation's messages.
	GetMessages(ctx context.Context, p services.ListMessagesParams) ([]domain.Message, string, error)
	// GetConversations returns one page of a user's conversation list.
	GetConversations(ctx context.Context, username string, p services.ListConversationsParams) ([]services.ConversationSummary, string, error)
}

//
// Handler wiring
//

// PageLimits bounds client-requested page sizes.
type PageLimits struct {
	Default int // applied when the client omits limit
	Max     int // hard cap on requested limits
}

// Handlers groups HTTP endpoints for profiles, conversations, and messages.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	profiles      ProfileService
	conversations ConversationService
	limits        PageLimits
}

// New constructs a Handlers instance bound to the given services.
func New(profiles ProfileService, conversations ConversationService, limits PageLimits) *Handlers {
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Handlers{profiles: profiles, conversations: conversations, limits: limits}
}

//
// DTOs
//

// CreateProfileRequest is the JSON payload for registering a profile.
type CreateProfileRequest struct {
	Username         string `json:"username" binding:"required,min=1"`
	FirstName        string `json:"firstName" binding:"required,min=1"`
	LastName         string `json:"lastName" binding:"required,min=1"`
	ProfilePictureID string `json:"profilePictureId"`
}

//
// Handlers
//

// CreateProfile registers a new user profile.
//
// Responses: 201 with the stored profile, 400 on malformed input, 409 when
// the username is already taken.
func (h *Handlers) CreateProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, firstName, and lastName are required")
		return
	}

	p := domain.Profile{
		Username:         req.Username,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		ProfilePictureID: req.ProfilePictureID,
	}
	if err := h.profiles.Create(ctx, p); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetProfile fetches a profile by username.
//
// Responses: 200 with the profile, 404 when no profile is registered.
func (h *Handlers) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	p, err := h.profiles.Get(ctx, username)
	if err != nil {
		failService(c, err)
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found: "+username)
		return
	}
	ok(c, http.StatusOK, p)
}
