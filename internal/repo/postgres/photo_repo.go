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

var ErrPhotoLimit = errors.New("active photo limit reached")

var ErrPhotoNotFound = errors.New("photo not found")

type PhotoRepo struct {
	pool *pgxpool.Pool
}

func NewPhotoRepo(pool *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{pool: pool}
}

// Create appends a photo at the end of the gallery. The count check and the
// insert share one transaction so concurrent uploads cannot blow past the cap.
func (r *PhotoRepo) Create(ctx context.Context, userID int64, objectKey string, maxActive int, now time.Time) (model.Photo, error) {
	if userID <= 0 || objectKey == "" {
		return model.Photo{}, fmt.Errorf("invalid photo insert")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var photo model.Photo
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var active int
		if err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM (
	SELECT 1
	FROM profile_photos
	WHERE user_id = $1 AND status = 'active'
	FOR UPDATE
) locked
`, userID).Scan(&active); err != nil {
			return fmt.Errorf("count active photos: %w", err)
		}
		if maxActive > 0 && active >= maxActive {
			return ErrPhotoLimit
		}

		if err := tx.QueryRow(ctx, `
INSERT INTO profile_photos (user_id, position, object_key, status, created_at)
VALUES ($1, $2, $3, 'active', $4)
RETURNING id
`, userID, active+1, objectKey, now.UTC()).Scan(&photo.ID); err != nil {
			return fmt.Errorf("insert photo: %w", err)
		}

		photo.UserID = userID
		photo.Position = active + 1
		photo.ObjectKey = objectKey
		photo.CreatedAt = now.UTC()
		return nil
	})
	if err != nil {
		return model.Photo{}, err
	}
	return photo, nil
}

func (r *PhotoRepo) ListActive(ctx context.Context, userID int64) ([]model.Photo, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, position, object_key, created_at
FROM profile_photos
WHERE user_id = $1 AND status = 'active'
ORDER BY position ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.Position, &p.ObjectKey, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// Remove soft-deletes the photo and closes the position gap.
func (r *PhotoRepo) Remove(ctx context.Context, userID, photoID int64) (string, error) {
	if userID <= 0 || photoID <= 0 {
		return "", fmt.Errorf("invalid photo delete")
	}

	var objectKey string
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var position int
		err := tx.QueryRow(ctx, `
UPDATE profile_photos
SET status = 'deleted'
WHERE id = $1 AND user_id = $2 AND status = 'active'
RETURNING object_key, position
`, photoID, userID).Scan(&objectKey, &position)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPhotoNotFound
		}
		if err != nil {
			return fmt.Errorf("delete photo: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE profile_photos
SET position = position - 1
WHERE user_id = $1 AND status = 'active' AND position > $2
`, userID, position); err != nil {
			return fmt.Errorf("repack photo positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}
