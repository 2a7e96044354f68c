package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// MatchSummary is a match joined with the other participant's card and the
// newest message, shaped for conversation lists.
type MatchSummary struct {
	ID            int64
	OtherUserID   int64
	DisplayName   string
	Age           int
	City          string
	State         string
	PhotoURL      string
	Verified      bool
	Status        string
	LastPreview   string
	LastMessageAt *time.Time
	UnreadCount   int
	LastActiveAt  *time.Time
	CreatedAt     time.Time
}

// CreateIfMissing inserts the canonical (a<b) pair as an active match.
// Returns the match and whether this call created it. A previously ended
// pair stays ended: rows are never resurrected here.
func (r *MatchRepo) CreateIfMissing(ctx context.Context, tx pgx.Tx, userID, targetID int64, direct bool, now time.Time) (model.Match, bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return model.Match{}, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return model.Match{}, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := userID, targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	var m model.Match
	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	status,
	direct,
	created_at,
	updated_at
) VALUES ($1, $2, 'active', $3, $4, $4)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING id, user_a_id, user_b_id, status, direct, created_at, updated_at
`, userA, userB, direct, now.UTC()).Scan(
		&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.Direct, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	existing, err := r.getByPairTx(ctx, tx, userA, userB)
	if err != nil {
		return model.Match{}, false, err
	}
	return existing, false, nil
}

func (r *MatchRepo) getByPairTx(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Match, error) {
	var m model.Match
	err := tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, direct, created_at, updated_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, userA, userB).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.Direct, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match by pair: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID int64) (model.Match, error) {
	if matchID <= 0 {
		return model.Match{}, fmt.Errorf("invalid match id")
	}

	var m model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, direct, created_at, updated_at
FROM matches
WHERE id = $1
`, matchID).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.Direct, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}

	return m, nil
}

func (r *MatchRepo) GetByPair(ctx context.Context, userID, targetID int64) (model.Match, error) {
	if userID <= 0 || targetID <= 0 {
		return model.Match{}, fmt.Errorf("invalid match pair")
	}

	userA, userB := userID, targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	var m model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, direct, created_at, updated_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, userA, userB).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.Status, &m.Direct, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match by pair: %w", err)
	}

	return m, nil
}

// ListForUser returns the user's active matches joined with the other
// participant's profile and last-message info, newest activity first.
func (r *MatchRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]MatchSummary, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END AS other_user_id,
	COALESCE(p.display_name, ''),
	COALESCE(DATE_PART('year', AGE(NOW(), p.birthdate::timestamp))::int, 0),
	COALESCE(p.city, ''),
	COALESCE(p.state, ''),
	COALESCE(p.primary_photo_url, ''),
	COALESCE(p.verified, FALSE),
	m.status,
	lm.preview,
	lm.created_at,
	COALESCE(un.unread, 0),
	p.last_active_at,
	m.created_at
FROM matches m
JOIN profiles p ON p.user_id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
LEFT JOIN LATERAL (
	SELECT preview, created_at
	FROM messages
	WHERE match_id = m.id
	ORDER BY created_at DESC, id DESC
	LIMIT 1
) lm ON TRUE
LEFT JOIN LATERAL (
	SELECT COUNT(*)::int AS unread
	FROM messages
	WHERE match_id = m.id AND sender_user_id <> $1 AND read_at IS NULL
) un ON TRUE
WHERE
	(m.user_a_id = $1 OR m.user_b_id = $1)
	AND m.status = 'active'
ORDER BY COALESCE(lm.created_at, m.created_at) DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchSummary, 0, limit)
	for rows.Next() {
		var (
			item    MatchSummary
			preview *string
		)
		if err := rows.Scan(
			&item.ID,
			&item.OtherUserID,
			&item.DisplayName,
			&item.Age,
			&item.City,
			&item.State,
			&item.PhotoURL,
			&item.Verified,
			&item.Status,
			&preview,
			&item.LastMessageAt,
			&item.UnreadCount,
			&item.LastActiveAt,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match summary: %w", err)
		}
		if preview != nil {
			item.LastPreview = *preview
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return items, nil
}

// SetStatus flips a match to the given lifecycle status. Ending a match is
// a status change, never a row delete.
func (r *MatchRepo) SetStatus(ctx context.Context, tx pgx.Tx, matchID int64, status string, now time.Time) error {
	if matchID <= 0 {
		return fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE matches
SET status = $2, updated_at = $3
WHERE id = $1
`, matchID, status, now.UTC())
	if err != nil {
		return fmt.Errorf("set match status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// EndActiveForPair flips the pair's active match to unmatched. Used when
// one side withdraws their like; a pair without an active match is a no-op.
func (r *MatchRepo) EndActiveForPair(ctx context.Context, tx pgx.Tx, userID, targetID int64, now time.Time) error {
	if userID <= 0 || targetID <= 0 {
		return fmt.Errorf("invalid match pair")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := userID, targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	_, err := tx.Exec(ctx, `
UPDATE matches
SET status = $3, updated_at = $4
WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'
`, userA, userB, model.MatchStatusUnmatched, now.UTC())
	if err != nil {
		return fmt.Errorf("end match for pair: %w", err)
	}
	return nil
}

// SuspendAllForUser flips every active match of the user to suspended.
// Used when moderation suspends an account.
func (r *MatchRepo) SuspendAllForUser(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE matches
SET status = 'suspended', updated_at = $2
WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'active'
`, userID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("suspend matches: %w", err)
	}
	return result.RowsAffected(), nil
}
