// Package repo implements the persistence layer for profiles, messages, and
// the per-user conversation index on top of the document-store contract.
//
// Error semantics:
//   - Malformed input is rejected with ErrInvalidArgument before any I/O.
//   - Creating a row that already exists returns ErrConflict; stores never
//     silently overwrite on the create path.
//   - A continuation token that does not decode against the query being run
//     returns ErrInvalidCursor.
//   - A missing row on point reads is an absent value (nil, nil), not an
//     error; callers needing a hard error wrap it themselves.
//   - Backend failures propagate wrapped in docstore.ErrUnavailable.
package repo

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidArgument is returned for blank identifiers, non-positive
	// limits, and negative timestamps. Always detected before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when a create hits an existing identity.
	ErrConflict = errors.New("record already exists")

	// ErrInvalidCursor is returned for continuation tokens the store did
	// not issue for the query at hand.
	ErrInvalidCursor = errors.New("invalid continuation token")
)

// isBlank reports whether s is empty or whitespace-only.
func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
