package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

func newRecord(id string) *domain.Announcement {
	now := time.Now()
	return &domain.Announcement{
		ID:         id,
		Text:       "text " + id,
		Speed:      domain.DefaultSpeed,
		Source:     domain.SourceOperator,
		StartedAt:  now,
		FinishedAt: now,
	}
}

func TestMemoryHistoryCRUD(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	h := NewMemoryHistory(10, log)
	ctx := context.Background()

	// Save.
	if err := h.Save(ctx, newRecord("a1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Get.
	got, err := h.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "text a1" {
		t.Fatalf("expected text a1, got %q", got.Text)
	}

	// Get nonexistent.
	if _, err := h.Get(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Overwrite keeps one entry.
	upd := newRecord("a1")
	upd.Err = "synthesis error"
	if err := h.Save(ctx, upd); err != nil {
		t.Fatalf("save: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", h.Len())
	}
	got, _ = h.Get(ctx, "a1")
	if got.Err != "synthesis error" {
		t.Fatalf("expected overwritten error, got %q", got.Err)
	}
}

func TestMemoryHistoryListNewestFirst(t *testing.T) {
	h := NewMemoryHistory(10, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		h.Save(ctx, newRecord(fmt.Sprintf("a%d", i)))
	}

	all, _ := h.List(ctx, 0)
	if len(all) != 5 {
		t.Fatalf("expected 5 records, got %d", len(all))
	}
	if all[0].ID != "a5" || all[4].ID != "a1" {
		t.Fatalf("expected newest first, got %s..%s", all[0].ID, all[4].ID)
	}

	top, _ := h.List(ctx, 2)
	if len(top) != 2 || top[0].ID != "a5" || top[1].ID != "a4" {
		t.Fatalf("unexpected limited list: %v", top)
	}
}

func TestMemoryHistoryEvictsOldest(t *testing.T) {
	h := NewMemoryHistory(3, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		h.Save(ctx, newRecord(fmt.Sprintf("a%d", i)))
	}

	if h.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", h.Len())
	}
	if _, err := h.Get(ctx, "a2"); err != domain.ErrNotFound {
		t.Fatalf("expected a2 evicted, got %v", err)
	}
	if _, err := h.Get(ctx, "a3"); err != nil {
		t.Fatalf("expected a3 kept, got %v", err)
	}
}

func TestMemoryHistoryReturnsCopies(t *testing.T) {
	h := NewMemoryHistory(0, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	rec := newRecord("a1")
	h.Save(ctx, rec)
	rec.Text = "mutated"

	got, _ := h.Get(ctx, "a1")
	if got.Text != "text a1" {
		t.Fatalf("store should not alias caller's record, got %q", got.Text)
	}
}
