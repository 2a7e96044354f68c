package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

const defaultMaxBatchSize = 100

var ErrValidation = errors.New("analytics: invalid batch")

type Store interface {
	InsertBatch(ctx context.Context, userID int64, events []model.Event) error
}

type Config struct {
	MaxBatchSize int
}

type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// BatchEvent is one client-side event. TS accepts unix seconds or millis.
type BatchEvent struct {
	Name  string         `json:"name"`
	TS    int64          `json:"ts"`
	Props map[string]any `json:"props,omitempty"`
}

func NewService(store Store, cfg Config) *Service {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	return &Service{store: store, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) IngestBatch(ctx context.Context, userID int64, events []BatchEvent) error {
	if s.store == nil {
		return fmt.Errorf("analytics store is nil")
	}
	if userID <= 0 || len(events) == 0 || len(events) > s.cfg.MaxBatchSize {
		return ErrValidation
	}

	now := s.now()
	rows := make([]model.Event, 0, len(events))
	for _, event := range events {
		name := strings.TrimSpace(event.Name)
		if name == "" {
			return ErrValidation
		}

		var props json.RawMessage
		if len(event.Props) > 0 {
			encoded, err := json.Marshal(event.Props)
			if err != nil {
				return ErrValidation
			}
			props = encoded
		}

		rows = append(rows, model.Event{
			UserID:     userID,
			Name:       name,
			Properties: props,
			OccurredAt: parseTS(event.TS, now),
		})
	}

	if err := s.store.InsertBatch(ctx, userID, rows); err != nil {
		return fmt.Errorf("insert events batch: %w", err)
	}
	return nil
}

func parseTS(ts int64, fallback time.Time) time.Time {
	if ts <= 0 {
		return fallback
	}
	if ts >= 1_000_000_000_000 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
