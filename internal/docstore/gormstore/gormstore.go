// Package gormstore implements the docstore contract on SQLite via GORM
// (pure-Go driver). All collections share one table; rows carry the logical
// collection name, the partition key, the document id, and an autoincrement
// sequence that provides the insertion-order tie-break for pagination.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/nadimakk/go-chat-service/internal/cursor"
	"github.com/nadimakk/go-chat-service/internal/docstore"
)

// documentRow is the persisted shape of a docstore.Document.
//
// Seq is the global autoincrement primary key; within one partition it
// observes insertion order, which is the tie-break for equal OrderKey
// values and part of every continuation token.
type documentRow struct {
	Seq          int64  `gorm:"primaryKey;autoIncrement"`
	Collection   string `gorm:"uniqueIndex:ux_doc_identity,priority:1;index:idx_doc_order,priority:1;not null;size:64"`
	PartitionKey string `gorm:"uniqueIndex:ux_doc_identity,priority:2;index:idx_doc_order,priority:2;not null;size:512"`
	DocID        string `gorm:"uniqueIndex:ux_doc_identity,priority:3;not null;size:512"`
	OrderKey     int64  `gorm:"index:idx_doc_order,priority:3;not null"`
	Data         []byte `gorm:"not null"`
	UpdatedAt    time.Time
}

// TableName returns the database table name for documentRow.
func (documentRow) TableName() string { return "documents" }

// Store is a SQLite-backed docstore.Store.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path, applies PRAGMAs and
// pool settings, installs the OpenTelemetry tracing plugin, and migrates
// the documents table.
func Open(path string) (*Store, error) {
	// Fail early if the parent directory does not exist (instead of the
	// opaque sqlite "out of memory (14)").
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Collection returns the named logical collection.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{db: s.db, name: name}
}

type collection struct {
	db   *gorm.DB
	name string
}

// Insert stores a new document, mapping the unique-index violation on
// (collection, partition, id) to docstore.ErrConflict.
func (c *collection) Insert(ctx context.Context, doc docstore.Document) error {
	row := c.toRow(doc)
	err := c.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return docstore.ErrConflict
	}
	return unavailable(err)
}

// Put stores a document with create-or-replace semantics. Replacing keeps
// the original Seq, so a refreshed document does not move in the
// insertion-order tie-break.
func (c *collection) Put(ctx context.Context, doc docstore.Document) error {
	row := c.toRow(doc)
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "collection"}, {Name: "partition_key"}, {Name: "doc_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"order_key", "data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Get returns the document at (partition, id), or docstore.ErrNotFound.
func (c *collection) Get(ctx context.Context, partitionKey, id string) (*docstore.Document, error) {
	var row documentRow
	err := c.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND doc_id = ?", c.name, partitionKey, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, docstore.ErrNotFound
		}
		return nil, unavailable(err)
	}
	doc := row.toDocument()
	return &doc, nil
}

// Delete removes the document at (partition, id); absence is not an error.
func (c *collection) Delete(ctx context.Context, partitionKey, id string) error {
	err := c.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND doc_id = ?", c.name, partitionKey, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Query serves one keyset-paginated page. It fetches limit+1 rows to decide
// whether a continuation token is due; the token encodes the query shape
// plus the (order_key, seq) position of the last served row.
func (c *collection) Query(ctx context.Context, q docstore.Query) (*docstore.Page, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("gormstore: query limit must be positive, got %d", q.Limit)
	}

	tx := c.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND order_key > ?", c.name, q.PartitionKey, q.After)

	if q.Token != "" {
		pos, err := cursor.Decode(q.Token)
		if err != nil {
			return nil, docstore.ErrInvalidToken
		}
		if !pos.Matches(q.PartitionKey, string(q.Order), q.After) {
			return nil, docstore.ErrInvalidToken
		}
		seq, err := strconv.ParseInt(pos.LastSeq, 10, 64)
		if err != nil {
			return nil, docstore.ErrInvalidToken
		}
		if q.Order == docstore.OrderDesc {
			tx = tx.Where("(order_key < ? OR (order_key = ? AND seq < ?))", pos.LastKey, pos.LastKey, seq)
		} else {
			tx = tx.Where("(order_key > ? OR (order_key = ? AND seq > ?))", pos.LastKey, pos.LastKey, seq)
		}
	}

	if q.Order == docstore.OrderDesc {
		tx = tx.Order("order_key DESC, seq DESC")
	} else {
		tx = tx.Order("order_key ASC, seq ASC")
	}

	var rows []documentRow
	if err := tx.Limit(q.Limit + 1).Find(&rows).Error; err != nil {
		return nil, unavailable(err)
	}

	page := &docstore.Page{}
	more := len(rows) > q.Limit
	if more {
		rows = rows[:q.Limit]
	}
	for _, r := range rows {
		page.Documents = append(page.Documents, r.toDocument())
	}
	if more {
		last := rows[len(rows)-1]
		page.NextToken = cursor.Encode(cursor.Position{
			Partition: q.PartitionKey,
			Order:     string(q.Order),
			Since:     q.After,
			LastKey:   last.OrderKey,
			LastSeq:   strconv.FormatInt(last.Seq, 10),
		})
	}
	return page, nil
}

// HasAny reports whether the partition holds at least one document.
func (c *collection) HasAny(ctx context.Context, partitionKey string) (bool, error) {
	var rows []documentRow
	err := c.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ?", c.name, partitionKey).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return false, unavailable(err)
	}
	return len(rows) > 0, nil
}

func (c *collection) toRow(doc docstore.Document) documentRow {
	return documentRow{
		Collection:   c.name,
		PartitionKey: doc.PartitionKey,
		DocID:        doc.ID,
		OrderKey:     doc.OrderKey,
		Data:         doc.Data,
		UpdatedAt:    time.Now().UTC(),
	}
}

func (r documentRow) toDocument() docstore.Document {
	return docstore.Document{
		PartitionKey: r.PartitionKey,
		ID:           r.DocID,
		OrderKey:     r.OrderKey,
		Data:         r.Data,
	}
}

// unavailable wraps backend errors so callers can map them to the
// service-unavailable taxonomy without depending on gorm.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
}
