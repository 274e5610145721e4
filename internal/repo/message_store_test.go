package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/docstore/gormstore"
	"github.com/nadimakk/go-chat-service/internal/domain"
)

func openTestStore(t *testing.T) docstore.Store {
	t.Helper()
	s, err := gormstore.Open(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("gormstore.Open: %v", err)
	}
	return s
}

func msg(conv, id, sender string, at int64) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: conv,
		SenderUsername: sender,
		Text:           "hello " + id,
		CreatedAt:      at,
	}
}

func TestMessageStore_Add_Validation(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	cases := map[string]domain.Message{
		"blank conversation": msg("", "m1", "alice", 1),
		"blank id":           msg("alice_bob", "  ", "alice", 1),
		"blank sender":       msg("alice_bob", "m1", "", 1),
		"blank text":         {ID: "m1", ConversationID: "alice_bob", SenderUsername: "alice", Text: " ", CreatedAt: 1},
		"negative timestamp": msg("alice_bob", "m1", "alice", -5),
	}
	for name, m := range cases {
		if err := s.Add(ctx, m); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: Add err = %v; want ErrInvalidArgument", name, err)
		}
	}
}

func TestMessageStore_Add_ConflictNeverOverwrites(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	if err := s.Add(ctx, msg("alice_bob", "m1", "alice", 100)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, msg("alice_bob", "m1", "alice", 999)); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate Add err = %v; want ErrConflict", err)
	}
	got, err := s.Get(ctx, "alice_bob", "m1")
	if err != nil || got == nil {
		t.Fatalf("Get = (%v, %v)", got, err)
	}
	if got.CreatedAt != 100 {
		t.Fatalf("CreatedAt after conflict = %d; want unchanged 100", got.CreatedAt)
	}
}

func TestMessageStore_Get_AbsentIsNil(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	got, err := s.Get(context.Background(), "alice_bob", "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get missing = %+v; want nil", got)
	}
}

func TestMessageStore_UpdateCreatedAt(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	if err := s.Add(ctx, msg("alice_bob", "m1", "alice", 100)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.UpdateCreatedAt(ctx, "alice_bob", "m1", 250); err != nil {
		t.Fatalf("UpdateCreatedAt: %v", err)
	}
	got, err := s.Get(ctx, "alice_bob", "m1")
	if err != nil || got == nil {
		t.Fatalf("Get = (%v, %v)", got, err)
	}
	if got.CreatedAt != 250 {
		t.Fatalf("CreatedAt = %d; want 250", got.CreatedAt)
	}
	if got.Text != "hello m1" || got.SenderUsername != "alice" {
		t.Fatalf("update touched more than the timestamp: %+v", got)
	}

	// Missing message is a no-op.
	if err := s.UpdateCreatedAt(ctx, "alice_bob", "missing", 5); err != nil {
		t.Fatalf("UpdateCreatedAt missing: %v", err)
	}
}

func TestMessageStore_List_PaginatesWithoutLossOrDuplication(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	ids := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range ids {
		if err := s.Add(ctx, msg("alice_bob", id, "alice", int64(100+i))); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	var seen []string
	token := ""
	for {
		page, next, err := s.List(ctx, "alice_bob", 1, docstore.OrderAsc, token, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for _, m := range page {
			seen = append(seen, m.ID)
		}
		if next == "" {
			break
		}
		token = next
	}
	if len(seen) != len(ids) {
		t.Fatalf("walk saw %v; want %v", seen, ids)
	}
	for i := range ids {
		if seen[i] != ids[i] {
			t.Fatalf("walk saw %v; want %v", seen, ids)
		}
	}
}

func TestMessageStore_List_Validation(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	if _, _, err := s.List(ctx, "alice_bob", 0, docstore.OrderAsc, "", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("limit=0 err = %v; want ErrInvalidArgument", err)
	}
	if _, _, err := s.List(ctx, "alice_bob", 5, docstore.OrderAsc, "", -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("since=-1 err = %v; want ErrInvalidArgument", err)
	}
	if _, _, err := s.List(ctx, " ", 5, docstore.OrderAsc, "", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank conversation err = %v; want ErrInvalidArgument", err)
	}
	if _, _, err := s.List(ctx, "alice_bob", 5, docstore.OrderAsc, "bogus-token", 0); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("bad token err = %v; want ErrInvalidCursor", err)
	}
}

func TestMessageStore_ConversationExists(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	ok, err := s.ConversationExists(ctx, "alice_bob")
	if err != nil || ok {
		t.Fatalf("ConversationExists empty = (%v, %v); want (false, nil)", ok, err)
	}
	if err := s.Add(ctx, msg("alice_bob", "m1", "alice", 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ok, err = s.ConversationExists(ctx, "alice_bob")
	if err != nil || !ok {
		t.Fatalf("ConversationExists = (%v, %v); want (true, nil)", ok, err)
	}
}

func TestMessageStore_Delete_Idempotent(t *testing.T) {
	s := NewMessageStore(openTestStore(t))
	ctx := context.Background()

	if err := s.Add(ctx, msg("alice_bob", "m1", "alice", 1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Delete(ctx, "alice_bob", "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "alice_bob", "m1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
