// Package docstore defines the document-store contract the persistence layer
// is built on: point reads/writes/deletes addressed by (partition key, id)
// plus a filtered, ordered, keyset-paginated query that returns an opaque
// continuation token. Implementations live in subpackages (SQLite, MongoDB)
// and are interchangeable behind this contract.
package docstore

import (
	"context"
	"errors"
)

// Sentinel errors shared by all implementations.
var (
	// ErrNotFound reports a missing document on point reads.
	ErrNotFound = errors.New("document not found")
	// ErrConflict reports an Insert against an existing (partition, id).
	ErrConflict = errors.New("document already exists")
	// ErrInvalidToken reports a continuation token that this store did not
	// issue for the query being executed.
	ErrInvalidToken = errors.New("invalid continuation token")
	// ErrUnavailable wraps transient backend failures (connectivity,
	// timeouts). Callers surface it as service-unavailable; they never
	// retry inside this layer.
	ErrUnavailable = errors.New("document store unavailable")
)

// Order is the direction of a paginated query.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Document is one stored row. OrderKey is the value queries filter and sort
// on (Unix milliseconds throughout this service); Data is the JSON-encoded
// payload owned by the caller.
type Document struct {
	PartitionKey string
	ID           string
	OrderKey     int64
	Data         []byte
}

// Query describes one page request scoped to a single partition.
//
// After is an exclusive lower bound on OrderKey (applied in both
// directions). Token resumes a previous page and must have been issued by
// the same store for the same partition/order/after shape.
type Query struct {
	PartitionKey string
	Limit        int
	Order        Order
	After        int64
	Token        string
}

// Page is a query result. NextToken is empty when no further rows exist.
type Page struct {
	Documents []Document
	NextToken string
}

// Collection is the set of point and query operations over one logical
// document collection. Implementations are safe for concurrent use.
type Collection interface {
	// Insert stores a new document, failing with ErrConflict when the
	// (partition, id) pair already exists. It never overwrites.
	Insert(ctx context.Context, doc Document) error

	// Put stores a document with create-or-replace semantics.
	Put(ctx context.Context, doc Document) error

	// Get returns the document at (partition, id), or ErrNotFound.
	Get(ctx context.Context, partitionKey, id string) (*Document, error)

	// Delete removes the document at (partition, id). Absence is not an
	// error.
	Delete(ctx context.Context, partitionKey, id string) error

	// Query returns one ordered page of documents for q, plus a
	// continuation token when more rows exist. Tokens issued for a
	// different query shape fail with ErrInvalidToken.
	Query(ctx context.Context, q Query) (*Page, error)

	// HasAny reports whether at least one document exists in the
	// partition.
	HasAny(ctx context.Context, partitionKey string) (bool, error)
}

// Store hands out named collections. Backends map a collection to a table
// (SQLite) or a native collection (MongoDB).
type Store interface {
	Collection(name string) Collection
}
