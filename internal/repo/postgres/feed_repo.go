package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FeedRepo struct {
	pool *pgxpool.Pool
}

func NewFeedRepo(pool *pgxpool.Pool) *FeedRepo {
	return &FeedRepo{pool: pool}
}

type FeedQuery struct {
	ViewerUserID    int64
	ViewerGender    string
	Seeking         string
	AgeMin          int
	AgeMax          int
	CityID          int64
	State           string
	Religion        string
	RadiusKM        int
	VerifiedOnly    bool
	Interests       []string
	ViewerLat       *float64
	ViewerLon       *float64
	HasCursor       bool
	CursorPriority  int
	CursorCreatedAt time.Time
	CursorUserID    int64
	Limit           int
	Now             time.Time
}

type FeedCandidate struct {
	UserID           int64
	DisplayName      string
	Bio              string
	Age              int
	CityID           int64
	City             string
	State            string
	Religion         string
	Interests        []string
	Verified         bool
	PhotoURL         string
	InterestPriority int
	DistanceKM       *float64
	CreatedAt        time.Time
}

// ListCandidates pages discovery candidates with every exclusion applied in
// SQL: already swiped, blocked either way, matched, suspended, and the
// viewer themselves. Interest overlap ranks first, then newest profiles.
func (r *FeedRepo) ListCandidates(ctx context.Context, q FeedQuery) ([]FeedCandidate, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}

	candGender, candSeeking := mutualPreference(q.ViewerGender, q.Seeking)
	applyCity := q.CityID > 0
	applyState := strings.TrimSpace(q.State) != ""
	applyReligion := strings.TrimSpace(q.Religion) != ""
	applyRadius := q.ViewerLat != nil && q.ViewerLon != nil && q.RadiusKM > 0
	interests := normalizeInterests(q.Interests)
	hasInterests := len(interests) > 0
	cursorCreatedAt := q.CursorCreatedAt.UTC()
	if cursorCreatedAt.IsZero() {
		cursorCreatedAt = time.Unix(0, 0).UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	p.user_id,
	p.display_name,
	COALESCE(p.bio, ''),
	DATE_PART('year', AGE($2::timestamptz, p.birthdate::timestamp))::int AS age,
	COALESCE(p.city_id, 0),
	COALESCE(p.city, ''),
	COALESCE(p.state, ''),
	COALESCE(p.religion, ''),
	COALESCE(p.interests, '{}'),
	COALESCE(p.verified, FALSE),
	COALESCE(p.primary_photo_url, ''),
	CASE
		WHEN $18::boolean = TRUE AND COALESCE(array_length(p.interests, 1), 0) > 0 AND p.interests && $17::text[]
		THEN 1 ELSE 0
	END AS interest_priority,
	CASE
		WHEN $13::boolean = TRUE AND p.last_lat IS NOT NULL AND p.last_lon IS NOT NULL
		THEN 6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
			COS(RADIANS($14::float8)) * COS(RADIANS(p.last_lat)) * COS(RADIANS(p.last_lon) - RADIANS($15::float8))
			+ SIN(RADIANS($14::float8)) * SIN(RADIANS(p.last_lat))
		)))
		ELSE NULL
	END AS distance_km,
	p.created_at
FROM profiles p
JOIN users u ON u.id = p.user_id
WHERE
	u.suspended = FALSE
	AND p.user_id <> $1
	AND p.birthdate IS NOT NULL
	AND ($5::boolean = FALSE OR LOWER(p.gender) = LOWER($6))
	AND (
		$3::boolean = FALSE
		OR LOWER(COALESCE(p.seeking, '')) IN ('all', 'any', '')
		OR LOWER(p.seeking) = LOWER($4)
	)
	AND DATE_PART('year', AGE($2::timestamptz, p.birthdate::timestamp))::int BETWEEN $7 AND $8
	AND ($9::boolean = FALSE OR p.city_id = $10)
	AND ($11::boolean = FALSE OR UPPER(COALESCE(p.state, '')) = UPPER($12))
	AND ($19::boolean = FALSE OR LOWER(COALESCE(p.religion, '')) = LOWER($20))
	AND ($21::boolean = FALSE OR COALESCE(p.verified, FALSE) = TRUE)
	AND NOT EXISTS (
		SELECT 1 FROM swipes s
		WHERE s.actor_user_id = $1 AND s.target_user_id = p.user_id
	)
	AND NOT EXISTS (
		SELECT 1 FROM blocks b
		WHERE (b.blocker_user_id = $1 AND b.blocked_user_id = p.user_id)
		   OR (b.blocker_user_id = p.user_id AND b.blocked_user_id = $1)
	)
	AND NOT EXISTS (
		SELECT 1 FROM matches m
		WHERE m.user_a_id = LEAST($1::bigint, p.user_id)
		  AND m.user_b_id = GREATEST($1::bigint, p.user_id)
	)
	AND (
		$13::boolean = FALSE
		OR (
			p.last_lat IS NOT NULL
			AND p.last_lon IS NOT NULL
			AND (
				6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
					COS(RADIANS($14::float8)) * COS(RADIANS(p.last_lat)) * COS(RADIANS(p.last_lon) - RADIANS($15::float8))
					+ SIN(RADIANS($14::float8)) * SIN(RADIANS(p.last_lat))
				)))
			) <= $16::float8
		)
	)
	AND (
		$22::boolean = FALSE
		OR (
			(
				CASE
					WHEN $18::boolean = TRUE AND COALESCE(array_length(p.interests, 1), 0) > 0 AND p.interests && $17::text[]
					THEN 1 ELSE 0
				END
			) < $23::int
			OR (
				(
					CASE
						WHEN $18::boolean = TRUE AND COALESCE(array_length(p.interests, 1), 0) > 0 AND p.interests && $17::text[]
						THEN 1 ELSE 0
					END
				) = $23::int
				AND (
					p.created_at < $24::timestamptz
					OR (p.created_at = $24::timestamptz AND p.user_id < $25::bigint)
				)
			)
		)
	)
ORDER BY interest_priority DESC, p.created_at DESC, p.user_id DESC
LIMIT $26
`,
		q.ViewerUserID,           // $1
		q.Now.UTC(),              // $2
		candSeeking != "",        // $3
		candSeeking,              // $4
		candGender != "",         // $5
		candGender,               // $6
		q.AgeMin,                 // $7
		q.AgeMax,                 // $8
		applyCity,                // $9
		q.CityID,                 // $10
		applyState,               // $11
		q.State,                  // $12
		applyRadius,              // $13
		floatOrZero(q.ViewerLat), // $14
		floatOrZero(q.ViewerLon), // $15
		float64(q.RadiusKM),      // $16
		interests,                // $17
		hasInterests,             // $18
		applyReligion,            // $19
		q.Religion,               // $20
		q.VerifiedOnly,           // $21
		q.HasCursor,              // $22
		q.CursorPriority,         // $23
		cursorCreatedAt,          // $24
		q.CursorUserID,           // $25
		q.Limit,                  // $26
	)
	if err != nil {
		return nil, fmt.Errorf("list feed candidates: %w", err)
	}
	defer rows.Close()

	items := make([]FeedCandidate, 0, q.Limit)
	for rows.Next() {
		var item FeedCandidate
		if err := rows.Scan(
			&item.UserID,
			&item.DisplayName,
			&item.Bio,
			&item.Age,
			&item.CityID,
			&item.City,
			&item.State,
			&item.Religion,
			&item.Interests,
			&item.Verified,
			&item.PhotoURL,
			&item.InterestPriority,
			&item.DistanceKM,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feed candidate: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate feed candidates: %w", rows.Err())
	}

	return items, nil
}

// mutualPreference reduces the viewer's profile to the two discovery
// predicates: candidates must present the gender the viewer seeks, and must
// themselves seek the viewer's gender (or be open to anyone). An empty
// return disables the corresponding predicate.
func mutualPreference(viewerGender, seeking string) (candGender, candSeeking string) {
	open := func(v string) bool {
		return v == "" || v == "all" || v == "any"
	}

	if v := strings.ToLower(strings.TrimSpace(seeking)); !open(v) {
		candGender = v
	}
	if v := strings.ToLower(strings.TrimSpace(viewerGender)); !open(v) {
		candSeeking = v
	}
	return candGender, candSeeking
}

func normalizeInterests(interests []string) []string {
	if len(interests) == 0 {
		return nil
	}

	out := make([]string, 0, len(interests))
	seen := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		value := strings.ToLower(strings.TrimSpace(interest))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func floatOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
