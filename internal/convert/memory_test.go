package convert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stillcast/stillcast-api/internal/media"
)

func testRecord(id string, createdAt time.Time) *Record {
	return &Record{
		ID:          id,
		Status:      StatusCompleted,
		Message:     SuccessMessage,
		Bitrate:     media.Bitrate192k,
		ImageName:   "cover.png",
		AudioName:   "track.mp3",
		OutputSize:  1024,
		CreatedAt:   createdAt,
		CompletedAt: createdAt.Add(2 * time.Second),
	}
}

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	record := testRecord("tok-1", time.Now())
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := repo.FindByID(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Message != SuccessMessage || found.OutputSize != 1024 {
		t.Errorf("found record mismatch: %+v", found)
	}

	// Mutating the returned clone must not affect the stored record.
	found.Message = "tampered"
	again, err := repo.FindByID(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if again.Message != SuccessMessage {
		t.Error("stored record was mutated through a returned clone")
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryRepository_List_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		if err := repo.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].ID != "new" || records[2].ID != "old" {
		t.Errorf("records not newest-first: %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if err := repo.Save(ctx, testRecord("tok-1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, "tok-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "tok-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound on double delete, got %v", err)
	}
}
