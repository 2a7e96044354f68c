package cleanup

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

type expirerStub struct {
	expired int64
	at      time.Time
}

func (s *expirerStub) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	s.at = now
	return s.expired, nil
}

func (s *expirerStub) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	s.at = now
	return s.expired, nil
}

type prunerStub struct {
	cutoff time.Time
}

func (s *prunerStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 3, nil
}

func TestRunPrunesWithConfiguredRetention(t *testing.T) {
	purchases := &expirerStub{expired: 2}
	subscriptions := &expirerStub{}
	events := &prunerStub{}

	job := New(purchases, subscriptions, events, 48*time.Hour, zap.NewNop())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup: %v", err)
	}

	wantCutoff := fixed.Add(-48 * time.Hour)
	if !events.cutoff.Equal(wantCutoff) {
		t.Fatalf("unexpected event cutoff: got %v want %v", events.cutoff, wantCutoff)
	}
	if !purchases.at.Equal(fixed) {
		t.Fatalf("purchases expired at %v, want %v", purchases.at, fixed)
	}
}

func TestRunSkipsMissingStores(t *testing.T) {
	job := New(nil, nil, nil, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run with no stores: %v", err)
	}
}
