// Package cursor implements the opaque continuation tokens handed out by
// paginated queries. A token is the base64url-encoded JSON of a keyset
// position; it embeds the query shape (partition, order, time filter) so a
// token replayed against a different query is rejected instead of silently
// returning the wrong page.
//
// Absence of a token means "first page" on the way in and "no more pages"
// on the way out; an undecodable or foreign token is an error, which keeps
// the two conditions distinguishable for callers.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid is returned when a token is not one this codec issued, or was
// issued for a different query shape.
var ErrInvalid = errors.New("invalid continuation token")

// Position is the resume point encoded in a token.
//
// Partition, Order, and Since pin the query shape the token belongs to.
// LastKey and LastSeq identify the last row of the served page: LastKey is
// the row's ordering value (Unix milliseconds) and LastSeq the store's
// insertion-order tie-break, kept as a string so both integer sequences
// (SQLite) and ObjectIDs (Mongo) fit.
type Position struct {
	Partition string `json:"p"`
	Order     string `json:"o"`
	Since     int64  `json:"f"`
	LastKey   int64  `json:"k"`
	LastSeq   string `json:"s"`
}

// Encode serializes a position into an opaque token.
func Encode(p Position) string {
	raw, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token back into a position. It fails with ErrInvalid for
// anything Encode could not have produced.
func Decode(token string) (Position, error) {
	var p Position
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

// Matches reports whether the token position was issued for the given query
// shape. Stores use it to reject tokens replayed with different parameters.
func (p Position) Matches(partition, order string, since int64) bool {
	return p.Partition == partition && p.Order == order && p.Since == since
}
