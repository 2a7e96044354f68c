package model

import "time"

// Photo is one profile gallery slot. ObjectKey points into the media
// bucket; the public URL is presigned on read.
type Photo struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Position  int       `json:"position"`
	ObjectKey string    `json:"-"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
