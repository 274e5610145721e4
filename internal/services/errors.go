// Package services implements the business logic for profiles,
// conversations, and messages. This file centralizes the service-level
// error taxonomy so that handlers can map outcomes to HTTP results
// consistently.
//
// Translation into user-facing messages or status codes is performed at the
// handler layer, never here.
package services

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input. It is always
	// raised before any I/O and is never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUserNotFound indicates that a referenced username has no profile.
	ErrUserNotFound = errors.New("user not found")

	// ErrConversationNotFound indicates that the conversation has no
	// messages, i.e. it does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageExists is returned when a message id was already delivered
	// to the conversation. On the post path the stored timestamp has been
	// refreshed before this error is raised, so callers observe a
	// consistent timestamp while still being able to tell "already
	// delivered" from "newly delivered".
	ErrMessageExists = errors.New("message already exists")

	// ErrProfileExists is returned when the username is already taken.
	ErrProfileExists = errors.New("profile already exists")

	// ErrForbidden is returned when the sender is not a participant of the
	// conversation being posted to.
	ErrForbidden = errors.New("sender is not a participant of this conversation")

	// ErrInvalidCursor is returned for stale or foreign pagination tokens.
	// Distinct from "no more pages", which is the absence of a token.
	ErrInvalidCursor = errors.New("invalid continuation token")

	// ErrServiceUnavailable is returned when the underlying document store
	// is unreachable. It is surfaced as-is and never retried internally.
	ErrServiceUnavailable = errors.New("storage temporarily unavailable")
)
