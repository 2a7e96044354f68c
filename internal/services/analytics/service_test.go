package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

type analyticsStoreStub struct {
	userID int64
	events []model.Event
}

func (s *analyticsStoreStub) InsertBatch(_ context.Context, userID int64, events []model.Event) error {
	s.userID = userID
	s.events = append([]model.Event(nil), events...)
	return nil
}

func TestIngestBatchLimitValidation(t *testing.T) {
	store := &analyticsStoreStub{}
	svc := NewService(store, Config{MaxBatchSize: 100})

	events := make([]BatchEvent, 0, 101)
	for i := 0; i < 101; i++ {
		events = append(events, BatchEvent{Name: "evt", TS: 1})
	}

	err := svc.IngestBatch(context.Background(), 42, events)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestIngestBatchSavesRows(t *testing.T) {
	store := &analyticsStoreStub{}
	svc := NewService(store, Config{MaxBatchSize: 100})
	fixedNow := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	err := svc.IngestBatch(context.Background(), 42, []BatchEvent{
		{Name: "feed_open", TS: 1_700_000_000, Props: map[string]any{"tab": "feed"}},
		{Name: "like_click", TS: 1_700_000_000_500, Props: map[string]any{"target_id": 1001}},
		{Name: "app_background", TS: 0, Props: nil},
	})
	if err != nil {
		t.Fatalf("ingest batch: %v", err)
	}

	if store.userID != 42 {
		t.Fatalf("unexpected user id in store: %d", store.userID)
	}
	if len(store.events) != 3 {
		t.Fatalf("unexpected event rows count: got %d want 3", len(store.events))
	}
	if store.events[0].OccurredAt.Unix() != 1_700_000_000 {
		t.Fatalf("unexpected seconds ts conversion: %v", store.events[0].OccurredAt)
	}
	if store.events[1].OccurredAt.UnixMilli() != 1_700_000_000_500 {
		t.Fatalf("unexpected milliseconds ts conversion: %v", store.events[1].OccurredAt)
	}
	if !store.events[2].OccurredAt.Equal(fixedNow) {
		t.Fatalf("unexpected fallback ts: got %v want %v", store.events[2].OccurredAt, fixedNow)
	}
	if len(store.events[0].Properties) == 0 {
		t.Fatal("props were not encoded")
	}
}

func TestIngestBatchRejectsBlankName(t *testing.T) {
	svc := NewService(&analyticsStoreStub{}, Config{})

	err := svc.IngestBatch(context.Background(), 42, []BatchEvent{{Name: "  ", TS: 1}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
