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

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Get(ctx context.Context, userID int64) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, fmt.Errorf("invalid user id")
	}

	var p model.Profile
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	COALESCE(display_name, ''),
	COALESCE(bio, ''),
	birthdate,
	COALESCE(DATE_PART('year', AGE(NOW(), birthdate::timestamp))::int, 0),
	COALESCE(gender, ''),
	COALESCE(seeking, ''),
	COALESCE(religion, ''),
	COALESCE(city_id, 0),
	COALESCE(city, ''),
	COALESCE(state, ''),
	COALESCE(interests, '{}'),
	COALESCE(verified, FALSE),
	COALESCE(read_receipts_enabled, TRUE),
	last_lat,
	last_lon,
	last_active_at,
	COALESCE(primary_photo_url, ''),
	created_at,
	updated_at
FROM profiles
WHERE user_id = $1
`, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Bio,
		&p.Birthdate,
		&p.Age,
		&p.Gender,
		&p.Seeking,
		&p.Religion,
		&p.CityID,
		&p.City,
		&p.State,
		&p.Interests,
		&p.Verified,
		&p.ReadReceiptsEnabled,
		&p.LastLat,
		&p.LastLon,
		&p.LastActiveAt,
		&p.PrimaryPhotoURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

// Save upserts the editable profile fields. Location, photos and privacy
// flags have their own writers.
func (r *ProfileRepo) Save(ctx context.Context, p model.Profile) error {
	if p.UserID <= 0 {
		return fmt.Errorf("invalid profile payload")
	}

	const query = `
INSERT INTO profiles (
	user_id,
	display_name,
	bio,
	birthdate,
	gender,
	seeking,
	religion,
	city_id,
	city,
	state,
	interests,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	bio = EXCLUDED.bio,
	birthdate = EXCLUDED.birthdate,
	gender = EXCLUDED.gender,
	seeking = EXCLUDED.seeking,
	religion = EXCLUDED.religion,
	city_id = EXCLUDED.city_id,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	interests = EXCLUDED.interests,
	updated_at = NOW()
`

	if _, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.DisplayName,
		p.Bio,
		p.Birthdate,
		p.Gender,
		p.Seeking,
		p.Religion,
		p.CityID,
		p.City,
		p.State,
		p.Interests,
	); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	return nil
}

func (r *ProfileRepo) SaveLocation(ctx context.Context, userID, cityID int64, city, state string, lat, lon float64, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	const query = `
INSERT INTO profiles (
	user_id,
	display_name,
	city_id,
	city,
	state,
	last_lat,
	last_lon,
	last_active_at,
	created_at,
	updated_at
) VALUES ($1, '', $2, $3, $4, $5, $6, $7, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	city_id = EXCLUDED.city_id,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	last_lat = EXCLUDED.last_lat,
	last_lon = EXCLUDED.last_lon,
	last_active_at = EXCLUDED.last_active_at,
	updated_at = NOW()
`

	if _, err := r.pool.Exec(ctx, query, userID, cityID, city, state, lat, lon, at.UTC()); err != nil {
		return fmt.Errorf("save profile location: %w", err)
	}

	return nil
}

func (r *ProfileRepo) SetPrimaryPhoto(ctx context.Context, userID int64, url string) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles
SET primary_photo_url = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, url); err != nil {
		return fmt.Errorf("set primary photo: %w", err)
	}

	return nil
}

func (r *ProfileRepo) SetReadReceipts(ctx context.Context, userID int64, enabled bool) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles
SET read_receipts_enabled = $2, updated_at = NOW()
WHERE user_id = $1
`, userID, enabled); err != nil {
		return fmt.Errorf("set read receipts: %w", err)
	}

	return nil
}

func (r *ProfileRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles
SET last_active_at = $2
WHERE user_id = $1
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}

	return nil
}

// GetFilterPrefs returns the stored feed filters, or zero prefs when the
// user never saved any.
func (r *ProfileRepo) GetFilterPrefs(ctx context.Context, userID int64) (model.FilterPrefs, error) {
	if userID <= 0 {
		return model.FilterPrefs{}, fmt.Errorf("invalid user id")
	}

	var prefs model.FilterPrefs
	err := r.pool.QueryRow(ctx, `
SELECT age_min, age_max, COALESCE(city_id, 0), COALESCE(state, ''), COALESCE(religion, ''),
	max_distance_km, verified_only, COALESCE(interests, '{}')
FROM filter_prefs
WHERE user_id = $1
`, userID).Scan(
		&prefs.AgeMin,
		&prefs.AgeMax,
		&prefs.CityID,
		&prefs.State,
		&prefs.Religion,
		&prefs.MaxDistanceKM,
		&prefs.VerifiedOnly,
		&prefs.Interests,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.FilterPrefs{}, nil
		}
		return model.FilterPrefs{}, fmt.Errorf("get filter prefs: %w", err)
	}

	return prefs, nil
}

func (r *ProfileRepo) SaveFilterPrefs(ctx context.Context, userID int64, prefs model.FilterPrefs) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	const query = `
INSERT INTO filter_prefs (
	user_id,
	age_min,
	age_max,
	city_id,
	state,
	religion,
	max_distance_km,
	verified_only,
	interests,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	age_min = EXCLUDED.age_min,
	age_max = EXCLUDED.age_max,
	city_id = EXCLUDED.city_id,
	state = EXCLUDED.state,
	religion = EXCLUDED.religion,
	max_distance_km = EXCLUDED.max_distance_km,
	verified_only = EXCLUDED.verified_only,
	interests = EXCLUDED.interests,
	updated_at = NOW()
`

	if _, err := r.pool.Exec(ctx, query,
		userID,
		prefs.AgeMin,
		prefs.AgeMax,
		prefs.CityID,
		prefs.State,
		prefs.Religion,
		prefs.MaxDistanceKM,
		prefs.VerifiedOnly,
		prefs.Interests,
	); err != nil {
		return fmt.Errorf("save filter prefs: %w", err)
	}

	return nil
}
