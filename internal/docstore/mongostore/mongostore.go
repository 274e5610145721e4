// Package mongostore implements the docstore contract on MongoDB. Each
// logical collection maps to a native collection; the ObjectID assigned at
// insert provides the insertion-order tie-break for pagination, mirroring
// the autoincrement sequence of the SQLite backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nadimakk/go-chat-service/internal/cursor"
	"github.com/nadimakk/go-chat-service/internal/docstore"
)

type documentRow struct {
	OID          bson.ObjectID `bson:"_id,omitempty"`
	PartitionKey string        `bson:"partition_key"`
	DocID        string        `bson:"doc_id"`
	OrderKey     int64         `bson:"order_key"`
	Data         []byte        `bson:"data"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

// Store is a MongoDB-backed docstore.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and verifies connectivity.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the identity and ordering indexes for the named
// collections. Called once at startup with the collection names the
// service uses.
func (s *Store) EnsureIndexes(ctx context.Context, names ...string) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "partition_key", Value: 1}, {Key: "doc_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_doc_identity"),
		},
		{
			Keys: bson.D{{Key: "partition_key", Value: 1}, {Key: "order_key", Value: 1}},
		},
	}
	for _, name := range names {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("mongostore: indexes for %s: %w", name, err)
		}
	}
	return nil
}

// Collection returns the named collection.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{coll: s.db.Collection(name)}
}

type collection struct {
	coll *mongo.Collection
}

func identity(partitionKey, id string) bson.D {
	return bson.D{{Key: "partition_key", Value: partitionKey}, {Key: "doc_id", Value: id}}
}

// Insert stores a new document, mapping the duplicate-key error on the
// unique (partition, id) index to docstore.ErrConflict.
func (c *collection) Insert(ctx context.Context, doc docstore.Document) error {
	row := toRow(doc)
	row.OID = bson.NewObjectID()
	_, err := c.coll.InsertOne(ctx, row)
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return docstore.ErrConflict
	}
	return unavailable(err)
}

// Put stores a document with create-or-replace semantics. The replacement
// omits _id, so a replaced document keeps its ObjectID and therefore its
// position in the insertion-order tie-break.
func (c *collection) Put(ctx context.Context, doc docstore.Document) error {
	_, err := c.coll.ReplaceOne(ctx, identity(doc.PartitionKey, doc.ID), toRow(doc),
		options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Get returns the document at (partition, id), or docstore.ErrNotFound.
func (c *collection) Get(ctx context.Context, partitionKey, id string) (*docstore.Document, error) {
	var row documentRow
	err := c.coll.FindOne(ctx, identity(partitionKey, id)).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, unavailable(err)
	}
	doc := row.toDocument()
	return &doc, nil
}

// Delete removes the document at (partition, id); absence is not an error.
func (c *collection) Delete(ctx context.Context, partitionKey, id string) error {
	if _, err := c.coll.DeleteOne(ctx, identity(partitionKey, id)); err != nil {
		return unavailable(err)
	}
	return nil
}

// Query serves one keyset-paginated page, fetching limit+1 rows to decide
// token issuance. Token positions carry the last row's ObjectID hex as the
// tie-break sequence.
func (c *collection) Query(ctx context.Context, q docstore.Query) (*docstore.Page, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("mongostore: query limit must be positive, got %d", q.Limit)
	}

	filter := bson.D{
		{Key: "partition_key", Value: q.PartitionKey},
		{Key: "order_key", Value: bson.D{{Key: "$gt", Value: q.After}}},
	}

	if q.Token != "" {
		pos, err := cursor.Decode(q.Token)
		if err != nil {
			return nil, docstore.ErrInvalidToken
		}
		if !pos.Matches(q.PartitionKey, string(q.Order), q.After) {
			return nil, docstore.ErrInvalidToken
		}
		oid, err := bson.ObjectIDFromHex(pos.LastSeq)
		if err != nil {
			return nil, docstore.ErrInvalidToken
		}
		cmp := "$gt"
		if q.Order == docstore.OrderDesc {
			cmp = "$lt"
		}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "order_key", Value: bson.D{{Key: cmp, Value: pos.LastKey}}}},
			bson.D{
				{Key: "order_key", Value: pos.LastKey},
				{Key: "_id", Value: bson.D{{Key: cmp, Value: oid}}},
			},
		}})
	}

	dir := 1
	if q.Order == docstore.OrderDesc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "order_key", Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(q.Limit + 1))

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	var rows []documentRow
	if err := cur.All(ctx, &rows); err != nil {
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
			LastSeq:   last.OID.Hex(),
		})
	}
	return page, nil
}

// HasAny reports whether the partition holds at least one document.
func (c *collection) HasAny(ctx context.Context, partitionKey string) (bool, error) {
	n, err := c.coll.CountDocuments(ctx,
		bson.D{{Key: "partition_key", Value: partitionKey}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func toRow(doc docstore.Document) documentRow {
	return documentRow{
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

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
}
