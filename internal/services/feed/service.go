package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/domain/rules"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	feedPhotoURLTTL = 5 * time.Minute
)

var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidCursor = errors.New("invalid cursor")
)

type Repository interface {
	ListCandidates(ctx context.Context, q pgrepo.FeedQuery) ([]pgrepo.FeedCandidate, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
	GetFilterPrefs(ctx context.Context, userID int64) (model.FilterPrefs, error)
}

type TierStore interface {
	ActiveTier(ctx context.Context, userID int64, at time.Time) (enums.Tier, error)
}

type PhotoURLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	DefaultAgeMin   int
	DefaultAgeMax   int
	DefaultRadiusKM int
	MaxRadiusKM     int
}

type Dependencies struct {
	Repo        Repository
	Profiles    ProfileStore
	Tiers       TierStore
	PhotoSigner PhotoURLSigner
}

type Service struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
}

type Item struct {
	UserID      int64    `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Age         int      `json:"age"`
	CityID      int64    `json:"city_id"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Religion    string   `json:"religion"`
	Interests   []string `json:"interests"`
	Verified    bool     `json:"verified"`
	PhotoURL    *string  `json:"photo_url"`
	DistanceKM  *float64 `json:"distance_km"`
}

type Result struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type pageCursor struct {
	Priority  int   `json:"p"`
	CreatedAt int64 `json:"t"`
	UserID    int64 `json:"i"`
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultAgeMin <= 0 {
		cfg.DefaultAgeMin = 18
	}
	if cfg.DefaultAgeMax <= 0 {
		cfg.DefaultAgeMax = 45
	}
	if cfg.DefaultRadiusKM <= 0 {
		cfg.DefaultRadiusKM = 50
	}
	if cfg.MaxRadiusKM <= 0 {
		cfg.MaxRadiusKM = 300
	}

	return &Service{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
}

// Get pages discovery candidates for the viewer. City and state overrides in
// the stored filters only apply when the viewer's tier unlocks them; everyone
// else browses their own city.
func (s *Service) Get(ctx context.Context, userID int64, cursor string, limit int) (Result, error) {
	if userID <= 0 {
		return Result{}, ErrValidation
	}
	if s.deps.Repo == nil || s.deps.Profiles == nil {
		return Result{}, fmt.Errorf("feed dependencies are not configured")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	decoded, hasCursor, err := decodeCursor(cursor)
	if err != nil {
		return Result{}, err
	}

	viewer, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Result{Items: []Item{}}, nil
		}
		return Result{}, err
	}
	if viewer.CityID <= 0 && strings.TrimSpace(viewer.State) == "" {
		return Result{Items: []Item{}}, nil
	}

	prefs, err := s.deps.Profiles.GetFilterPrefs(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	prefs = s.applyTierGate(ctx, userID, viewer, prefs)

	ageMin, ageMax := normalizeAgeRange(prefs.AgeMin, prefs.AgeMax, s.cfg.DefaultAgeMin, s.cfg.DefaultAgeMax)
	radius := normalizeRadius(prefs.MaxDistanceKM, s.cfg.DefaultRadiusKM, s.cfg.MaxRadiusKM)

	query := pgrepo.FeedQuery{
		ViewerUserID: userID,
		ViewerGender: viewer.Gender,
		Seeking:      viewer.Seeking,
		AgeMin:       ageMin,
		AgeMax:       ageMax,
		CityID:       prefs.CityID,
		State:        prefs.State,
		Religion:     prefs.Religion,
		RadiusKM:     radius,
		VerifiedOnly: prefs.VerifiedOnly,
		Interests:    prefs.Interests,
		ViewerLat:    viewer.LastLat,
		ViewerLon:    viewer.LastLon,
		HasCursor:    hasCursor,
		Limit:        limit,
		Now:          s.now().UTC(),
	}
	if hasCursor {
		query.CursorPriority = decoded.Priority
		query.CursorCreatedAt = time.UnixMilli(decoded.CreatedAt).UTC()
		query.CursorUserID = decoded.UserID
	}

	candidates, err := s.deps.Repo.ListCandidates(ctx, query)
	if err != nil {
		return Result{}, err
	}

	items := make([]Item, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, Item{
			UserID:      candidate.UserID,
			DisplayName: candidate.DisplayName,
			Bio:         candidate.Bio,
			Age:         candidate.Age,
			CityID:      candidate.CityID,
			City:        candidate.City,
			State:       candidate.State,
			Religion:    candidate.Religion,
			Interests:   append([]string(nil), candidate.Interests...),
			Verified:    candidate.Verified,
			PhotoURL:    s.buildPhotoURL(ctx, candidate.PhotoURL),
			DistanceKM:  candidate.DistanceKM,
		})
	}

	result := Result{Items: items}
	if len(candidates) == limit {
		last := candidates[len(candidates)-1]
		next, err := encodeCursor(pageCursor{
			Priority:  last.InterestPriority,
			CreatedAt: last.CreatedAt.UTC().UnixMilli(),
			UserID:    last.UserID,
		})
		if err != nil {
			return Result{}, err
		}
		result.NextCursor = next
	}

	return result, nil
}

// applyTierGate pins free viewers to their own city. Missing tier data is
// treated as free rather than failing the whole feed.
func (s *Service) applyTierGate(ctx context.Context, userID int64, viewer model.Profile, prefs model.FilterPrefs) model.FilterPrefs {
	tier := enums.TierNone
	if s.deps.Tiers != nil {
		if value, err := s.deps.Tiers.ActiveTier(ctx, userID, s.now().UTC()); err == nil {
			tier = value
		}
	}

	caps := rules.CapabilitiesFor(tier)
	if !caps.CityStateFilter {
		prefs.CityID = viewer.CityID
		prefs.State = ""
		return prefs
	}

	if prefs.CityID <= 0 && strings.TrimSpace(prefs.State) == "" {
		prefs.CityID = viewer.CityID
	}
	return prefs
}

func (s *Service) buildPhotoURL(ctx context.Context, key string) *string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		value := trimmed
		return &value
	}
	if s.deps.PhotoSigner == nil {
		return nil
	}

	url, err := s.deps.PhotoSigner.PresignGet(ctx, trimmed, feedPhotoURLTTL)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(url)
	if value == "" {
		return nil
	}
	return &value
}

func normalizeAgeRange(ageMin, ageMax, defaultMin, defaultMax int) (int, int) {
	if ageMin < 18 {
		ageMin = defaultMin
	}
	if ageMax <= 0 {
		ageMax = defaultMax
	}
	if ageMin > ageMax {
		ageMin, ageMax = ageMax, ageMin
	}
	return ageMin, ageMax
}

func normalizeRadius(radius, fallback, max int) int {
	if radius <= 0 {
		radius = fallback
	}
	if radius > max {
		radius = max
	}
	return radius
}

func decodeCursor(raw string) (pageCursor, bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return pageCursor{}, false, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}

	var cursor pageCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}
	if cursor.CreatedAt <= 0 || cursor.UserID <= 0 || cursor.Priority < 0 || cursor.Priority > 1 {
		return pageCursor{}, false, ErrInvalidCursor
	}

	return cursor, true, nil
}

func encodeCursor(cursor pageCursor) (string, error) {
	payload, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("marshal feed cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}
