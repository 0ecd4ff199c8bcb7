package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moodtape/audiogen/pkg/audiogen"
)

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := &Job{
		ID:        "job-1",
		UserID:    "user-1",
		Status:    audiogen.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || got.Status != audiogen.StatusPending {
		t.Errorf("got %+v", got)
	}

	// Records are copies: mutating the returned job must not leak back.
	got.Status = audiogen.StatusFailed
	again, _ := s.Get(ctx, "job-1")
	if again.Status != audiogen.StatusPending {
		t.Error("stored record mutated through returned copy")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
