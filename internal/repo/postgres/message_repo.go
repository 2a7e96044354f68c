package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert stores a message under its client-generated id. A duplicate id is
// not an error: the stored row comes back with created=false so retries
// collapse onto the first delivery.
func (r *MessageRepo) Insert(ctx context.Context, msg model.Message) (model.Message, bool, error) {
	if msg.ID == "" || msg.MatchID <= 0 || msg.SenderUserID <= 0 {
		return model.Message{}, false, fmt.Errorf("invalid message payload")
	}
	now := msg.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return model.Message{}, false, fmt.Errorf("encode message payload: %w", err)
	}

	var stored model.Message
	var rawPayload []byte
	err = r.pool.QueryRow(ctx, `
INSERT INTO messages (id, match_id, sender_user_id, kind, payload, preview, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
RETURNING id, match_id, sender_user_id, payload, read_at, created_at
`, msg.ID, msg.MatchID, msg.SenderUserID, string(msg.Payload.Kind), payload, msg.Payload.Preview(), now.UTC()).Scan(
		&stored.ID,
		&stored.MatchID,
		&stored.SenderUserID,
		&rawPayload,
		&stored.ReadAt,
		&stored.CreatedAt,
	)
	if err == nil {
		if err := json.Unmarshal(rawPayload, &stored.Payload); err != nil {
			return model.Message{}, false, fmt.Errorf("decode message payload: %w", err)
		}
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Message{}, false, fmt.Errorf("insert message: %w", err)
	}

	existing, err := r.GetByID(ctx, msg.ID)
	if err != nil {
		return model.Message{}, false, err
	}
	return existing, false, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (model.Message, error) {
	if id == "" {
		return model.Message{}, fmt.Errorf("invalid message id")
	}

	var (
		msg        model.Message
		rawPayload []byte
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, match_id, sender_user_id, payload, read_at, created_at
FROM messages
WHERE id = $1
`, id).Scan(&msg.ID, &msg.MatchID, &msg.SenderUserID, &rawPayload, &msg.ReadAt, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, ErrMessageNotFound
		}
		return model.Message{}, fmt.Errorf("get message: %w", err)
	}
	if err := json.Unmarshal(rawPayload, &msg.Payload); err != nil {
		return model.Message{}, fmt.Errorf("decode message payload: %w", err)
	}

	return msg, nil
}

// ListByMatch pages a conversation backwards in time. A zero before means
// "from the newest". Rows come back newest first.
func (r *MessageRepo) ListByMatch(ctx context.Context, matchID int64, before time.Time, beforeID string, limit int) ([]model.Message, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Hour)
		beforeID = ""
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, match_id, sender_user_id, payload, read_at, created_at
FROM messages
WHERE match_id = $1
  AND (created_at, id::text) < ($2::timestamptz, COALESCE(NULLIF($3, ''), 'ffffffff-ffff-ffff-ffff-ffffffffffff'))
ORDER BY created_at DESC, id DESC
LIMIT $4
`, matchID, before.UTC(), beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		var (
			msg        model.Message
			rawPayload []byte
		)
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.SenderUserID, &rawPayload, &msg.ReadAt, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(rawPayload, &msg.Payload); err != nil {
			return nil, fmt.Errorf("decode message payload: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

// MarkRead stamps every unread message in the match that the reader did not
// send. Returns the ids that changed so realtime receipts carry them.
func (r *MessageRepo) MarkRead(ctx context.Context, matchID, readerUserID int64, at time.Time) ([]string, error) {
	if matchID <= 0 || readerUserID <= 0 {
		return nil, fmt.Errorf("invalid read payload")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	rows, err := r.pool.Query(ctx, `
UPDATE messages
SET read_at = $3
WHERE match_id = $1 AND sender_user_id <> $2 AND read_at IS NULL
RETURNING id
`, matchID, readerUserID, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan read message id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate read message ids: %w", rows.Err())
	}

	return ids, nil
}

func (r *MessageRepo) CountByMatch(ctx context.Context, matchID int64) (int, error) {
	if matchID <= 0 {
		return 0, fmt.Errorf("invalid match id")
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)::int FROM messages WHERE match_id = $1
`, matchID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}
