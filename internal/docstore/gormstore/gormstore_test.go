package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nadimakk/go-chat-service/internal/docstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func doc(partition, id string, key int64) docstore.Document {
	return docstore.Document{
		PartitionKey: partition,
		ID:           id,
		OrderKey:     key,
		Data:         []byte(`{"id":"` + id + `"}`),
	}
}

func TestInsert_ConflictOnSameIdentity(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	if err := c.Insert(ctx, doc("alice_bob", "m1", 100)); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := c.Insert(ctx, doc("alice_bob", "m1", 200)); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("second Insert err = %v; want ErrConflict", err)
	}
	// Same id in another partition or another collection is not a conflict.
	if err := c.Insert(ctx, doc("alice_carol", "m1", 100)); err != nil {
		t.Fatalf("Insert other partition: %v", err)
	}
	other := openTestStore(t) // separate db, sanity only
	_ = other
}

func TestCollections_AreIsolated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	msgs := s.Collection("messages")
	idx := s.Collection("entries")

	if err := msgs.Insert(ctx, doc("alice", "x", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(ctx, doc("alice", "x", 1)); err != nil {
		t.Fatalf("Insert same identity in other collection: %v", err)
	}
	if _, err := idx.Get(ctx, "alice", "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Get missing err = %v; want ErrNotFound", err)
	}
}

func TestPut_ReplacesAndKeepsOrderStable(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("entries")

	if err := c.Put(ctx, doc("alice", "alice_bob", 100)); err != nil {
		t.Fatalf("Put create: %v", err)
	}
	if err := c.Put(ctx, doc("alice", "alice_bob", 900)); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err := c.Get(ctx, "alice", "alice_bob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OrderKey != 900 {
		t.Fatalf("OrderKey after replace = %d; want 900", got.OrderKey)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	if err := c.Insert(ctx, doc("p", "m1", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := c.Delete(ctx, "p", "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "p", "m1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := c.Get(ctx, "p", "m1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Get after delete err = %v; want ErrNotFound", err)
	}
}

func TestHasAny(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	ok, err := c.HasAny(ctx, "alice_bob")
	if err != nil || ok {
		t.Fatalf("HasAny empty = (%v, %v); want (false, nil)", ok, err)
	}
	if err := c.Insert(ctx, doc("alice_bob", "m1", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ok, err = c.HasAny(ctx, "alice_bob")
	if err != nil || !ok {
		t.Fatalf("HasAny = (%v, %v); want (true, nil)", ok, err)
	}
}

// Walking pages with limit=1 must visit every row exactly once, in order,
// with no token on the final page.
func TestQuery_CursorWalkAsc(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		if err := c.Insert(ctx, doc("alice_bob", id, int64(100+i*10))); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	var seen []string
	token := ""
	for pages := 0; ; pages++ {
		if pages > 10 {
			t.Fatalf("cursor walk did not terminate")
		}
		page, err := c.Query(ctx, docstore.Query{
			PartitionKey: "alice_bob",
			Limit:        1,
			Order:        docstore.OrderAsc,
			Token:        token,
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		for _, d := range page.Documents {
			seen = append(seen, d.ID)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	want := []string{"m1", "m2", "m3", "m4"}
	if len(seen) != len(want) {
		t.Fatalf("walk saw %v; want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("walk saw %v; want %v", seen, want)
		}
	}
}

func TestQuery_DescOrderAndSinceFilter(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("entries")

	for i, id := range []string{"a", "b", "c"} {
		if err := c.Insert(ctx, doc("alice", id, int64(10*(i+1)))); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	page, err := c.Query(ctx, docstore.Query{
		PartitionKey: "alice",
		Limit:        10,
		Order:        docstore.OrderDesc,
		After:        10, // excludes "a"
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Documents) != 2 || page.Documents[0].ID != "c" || page.Documents[1].ID != "b" {
		t.Fatalf("desc page = %+v; want [c b]", page.Documents)
	}
	if page.NextToken != "" {
		t.Fatalf("NextToken = %q; want empty on final page", page.NextToken)
	}
}

// Equal order keys fall back to insertion order, and the tie-break stays
// stable across a cursor chain.
func TestQuery_EqualOrderKeysStableTieBreak(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("entries")

	for _, id := range []string{"first", "second", "third"} {
		if err := c.Insert(ctx, doc("bob", id, 500)); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	var seen []string
	token := ""
	for {
		page, err := c.Query(ctx, docstore.Query{
			PartitionKey: "bob",
			Limit:        1,
			Order:        docstore.OrderAsc,
			Token:        token,
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		for _, d := range page.Documents {
			seen = append(seen, d.ID)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("tie-break walk = %v; want %v", seen, want)
		}
	}
}

// Rows inserted between pages in positions the cursor already passed must
// not cause replays or skips of the remaining rows.
func TestQuery_StableAcrossConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	for i, id := range []string{"m1", "m2", "m3"} {
		if err := c.Insert(ctx, doc("p", id, int64(100+i*100))); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	first, err := c.Query(ctx, docstore.Query{PartitionKey: "p", Limit: 1, Order: docstore.OrderDesc})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if first.Documents[0].ID != "m3" {
		t.Fatalf("first desc row = %s; want m3", first.Documents[0].ID)
	}

	// New row above the cursor position; the chain continues below it.
	if err := c.Insert(ctx, doc("p", "m4", 999)); err != nil {
		t.Fatalf("Insert m4: %v", err)
	}

	rest, err := c.Query(ctx, docstore.Query{
		PartitionKey: "p", Limit: 10, Order: docstore.OrderDesc, Token: first.NextToken,
	})
	if err != nil {
		t.Fatalf("Query rest: %v", err)
	}
	if len(rest.Documents) != 2 || rest.Documents[0].ID != "m2" || rest.Documents[1].ID != "m1" {
		t.Fatalf("rest = %+v; want [m2 m1]", rest.Documents)
	}
}

func TestQuery_RejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	c := openTestStore(t).Collection("messages")

	for i := 0; i < 3; i++ {
		if err := c.Insert(ctx, doc("p", string(rune('a'+i)), int64(i+1))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	page, err := c.Query(ctx, docstore.Query{PartitionKey: "p", Limit: 1, Order: docstore.OrderAsc})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	cases := map[string]docstore.Query{
		"garbage token":   {PartitionKey: "p", Limit: 1, Order: docstore.OrderAsc, Token: "!!not-a-token!!"},
		"other partition": {PartitionKey: "q", Limit: 1, Order: docstore.OrderAsc, Token: page.NextToken},
		"other order":     {PartitionKey: "p", Limit: 1, Order: docstore.OrderDesc, Token: page.NextToken},
		"other filter":    {PartitionKey: "p", Limit: 1, Order: docstore.OrderAsc, After: 7, Token: page.NextToken},
	}
	for name, q := range cases {
		if _, err := c.Query(ctx, q); !errors.Is(err, docstore.ErrInvalidToken) {
			t.Errorf("%s: err = %v; want ErrInvalidToken", name, err)
		}
	}
}
