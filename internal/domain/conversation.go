package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ConversationIDSeparator joins the two participant usernames of a
// conversation id. Usernames must not contain it; profile creation rejects
// offenders so that SplitConversationID stays unambiguous.
const ConversationIDSeparator = "_"

// ErrInvalidConversationID is returned by DeriveConversationID and
// SplitConversationID for inputs that cannot form, or be parsed as, a
// two-party conversation id.
var ErrInvalidConversationID = errors.New("invalid conversation id")

// DeriveConversationID builds the canonical id for the conversation between
// two usernames. The id is order-independent: the usernames are sorted
// lexicographically before joining, so Derive(a, b) == Derive(b, a).
func DeriveConversationID(usernameA, usernameB string) (string, error) {
	a := strings.TrimSpace(usernameA)
	b := strings.TrimSpace(usernameB)
	if a == "" || b == "" {
		return "", fmt.Errorf("%w: participant username is blank", ErrInvalidConversationID)
	}
	if a == b {
		return "", fmt.Errorf("%w: participants must be distinct", ErrInvalidConversationID)
	}
	if a > b {
		a, b = b, a
	}
	return a + ConversationIDSeparator + b, nil
}

// SplitConversationID recovers the two participant usernames from a
// conversation id. The id must contain exactly one separator occurrence
// producing two non-empty parts.
func SplitConversationID(conversationID string) (string, string, error) {
	parts := strings.Split(conversationID, ConversationIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidConversationID, conversationID)
	}
	return parts[0], parts[1], nil
}
