package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/nadimakk/go-chat-service/internal/domain"
)

func TestProfileStore_CreateGet(t *testing.T) {
	s := NewProfileStore(openTestStore(t))
	ctx := context.Background()

	p := domain.Profile{Username: "alice", FirstName: "Alice", LastName: "Liddell"}
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, "alice")
	if err != nil || got == nil {
		t.Fatalf("Get = (%v, %v)", got, err)
	}
	if *got != p {
		t.Fatalf("Get = %+v; want %+v", *got, p)
	}
}

func TestProfileStore_Create_Conflict(t *testing.T) {
	s := NewProfileStore(openTestStore(t))
	ctx := context.Background()

	if err := s.Create(ctx, domain.Profile{Username: "alice", FirstName: "A", LastName: "L"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, domain.Profile{Username: "alice", FirstName: "B", LastName: "M"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate Create err = %v; want ErrConflict", err)
	}
}

func TestProfileStore_Get_AbsentIsNil(t *testing.T) {
	s := NewProfileStore(openTestStore(t))
	got, err := s.Get(context.Background(), "ghost")
	if err != nil || got != nil {
		t.Fatalf("Get missing = (%v, %v); want (nil, nil)", got, err)
	}
}

func TestProfileStore_Validation(t *testing.T) {
	s := NewProfileStore(openTestStore(t))
	ctx := context.Background()

	if err := s.Create(ctx, domain.Profile{Username: " "}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Create blank err = %v; want ErrInvalidArgument", err)
	}
	if _, err := s.Get(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Get blank err = %v; want ErrInvalidArgument", err)
	}
	if err := s.Delete(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Delete blank err = %v; want ErrInvalidArgument", err)
	}
}
