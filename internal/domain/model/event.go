package model

import (
	"encoding/json"
	"time"
)

// Event is one client analytics record, inserted in batches.
type Event struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Name       string          `json:"name"`
	Properties json.RawMessage `json:"properties,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}
