// Package domain defines the core data model for profiles, messages, and
// the per-user conversation index, plus the conversation-key derivation
// shared by every layer above the document store.
package domain

// Profile represents a registered user. Profiles are keyed by username,
// which doubles as the partition key in the profile collection.
//
// Fields:
//   - Username: unique identifier; must not contain the conversation-key
//     separator (enforced at creation time).
//   - FirstName / LastName: display names.
//   - ProfilePictureID: reference into external blob storage; the service
//     only stores the id.
type Profile struct {
	Username         string `json:"username"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	ProfilePictureID string `json:"profilePictureId,omitempty"`
}

// Message is a single message inside a conversation. Its identity is the
// pair (ConversationID, ID); once created it is immutable except for the
// controlled timestamp refresh applied on duplicate delivery.
//
// CreatedAt is Unix milliseconds captured from the server clock once per
// post operation. Ordering for pagination is by this stored value, not by
// arrival order.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderUsername string `json:"senderUsername"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"createdUnixTime"`
}

// UserConversationEntry is one row of the denormalized per-user conversation
// index: the pair (Username, ConversationID) with the conversation's last
// activity time. A two-party conversation always yields two entries, one per
// participant, converging to the same LastModified after each post.
type UserConversationEntry struct {
	Username       string `json:"username"`
	ConversationID string `json:"conversationId"`
	LastModified   int64  `json:"lastModifiedUnixTime"`
}
