package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

const maxInterests = 10

var (
	ErrValidation  = errors.New("validation error")
	ErrAgeRejected = errors.New("age rejected")
	ErrNotFound    = errors.New("profile not found")
	ErrUnknownCity = errors.New("unknown city")
)

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
	Save(ctx context.Context, p model.Profile) error
	SaveLocation(ctx context.Context, userID, cityID int64, city, state string, lat, lon float64, at time.Time) error
	SetReadReceipts(ctx context.Context, userID int64, enabled bool) error
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
	GetFilterPrefs(ctx context.Context, userID int64) (model.FilterPrefs, error)
	SaveFilterPrefs(ctx context.Context, userID int64, prefs model.FilterPrefs) error
}

type Gate interface {
	Require(ctx context.Context, userID int64, feature entitlements.Feature) (entitlements.Snapshot, error)
}

// City is a supported city from configuration; profile and filter city ids
// must resolve against this set.
type City struct {
	ID    int64
	Name  string
	State string
}

type Dependencies struct {
	Store  ProfileStore
	Gate   Gate
	Cities []City
}

type Service struct {
	deps   Dependencies
	cities map[int64]City
	now    func() time.Time
}

type Input struct {
	DisplayName string
	Bio         string
	Birthdate   time.Time
	Gender      string
	Seeking     string
	Religion    string
	CityID      int64
	Interests   []string
}

func NewService(deps Dependencies) *Service {
	cities := make(map[int64]City, len(deps.Cities))
	for _, city := range deps.Cities {
		cities[city.ID] = city
	}

	return &Service{
		deps:   deps,
		cities: cities,
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, ErrValidation
	}
	if s.deps.Store == nil {
		return model.Profile{}, fmt.Errorf("profile store is nil")
	}

	profile, err := s.deps.Store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, err
	}

	return profile, nil
}

// Update validates and saves the editable profile fields. Returns whether
// the profile is complete enough to enter discovery.
func (s *Service) Update(ctx context.Context, userID int64, in Input) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if s.deps.Store == nil {
		return false, fmt.Errorf("profile store is nil")
	}

	normalized, err := s.normalizeAndValidateInput(in)
	if err != nil {
		return false, err
	}

	city, ok := s.cities[normalized.CityID]
	if normalized.CityID > 0 && !ok {
		return false, ErrUnknownCity
	}

	birthdate := normalized.Birthdate.UTC()
	if err := s.deps.Store.Save(ctx, model.Profile{
		UserID:      userID,
		DisplayName: normalized.DisplayName,
		Bio:         normalized.Bio,
		Birthdate:   &birthdate,
		Gender:      normalized.Gender,
		Seeking:     normalized.Seeking,
		Religion:    normalized.Religion,
		CityID:      normalized.CityID,
		City:        city.Name,
		State:       city.State,
		Interests:   normalized.Interests,
	}); err != nil {
		return false, fmt.Errorf("save profile: %w", err)
	}

	return isProfileCompleted(normalized), nil
}

func (s *Service) UpdateLocation(ctx context.Context, userID, cityID int64, lat, lon float64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	if s.deps.Store == nil {
		return fmt.Errorf("profile store is nil")
	}

	city, ok := s.cities[cityID]
	if !ok {
		return ErrUnknownCity
	}

	return s.deps.Store.SaveLocation(ctx, userID, city.ID, city.Name, city.State, lat, lon, s.now().UTC())
}

func (s *Service) SetReadReceipts(ctx context.Context, userID int64, enabled bool) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.deps.Store == nil {
		return fmt.Errorf("profile store is nil")
	}

	return s.deps.Store.SetReadReceipts(ctx, userID, enabled)
}

func (s *Service) TouchActive(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.deps.Store == nil {
		return fmt.Errorf("profile store is nil")
	}

	return s.deps.Store.TouchLastActive(ctx, userID, s.now().UTC())
}

func (s *Service) Filters(ctx context.Context, userID int64) (model.FilterPrefs, error) {
	if userID <= 0 {
		return model.FilterPrefs{}, ErrValidation
	}
	if s.deps.Store == nil {
		return model.FilterPrefs{}, fmt.Errorf("profile store is nil")
	}

	return s.deps.Store.GetFilterPrefs(ctx, userID)
}

// SaveFilters persists discovery filters. Pointing the filter at another city
// or a whole state is a paid feature; the gate rejects it with an upgrade
// offer for lower tiers.
func (s *Service) SaveFilters(ctx context.Context, userID int64, prefs model.FilterPrefs) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.deps.Store == nil {
		return fmt.Errorf("profile store is nil")
	}

	if prefs.AgeMin != 0 && prefs.AgeMin < 18 {
		return fmt.Errorf("age_min below 18: %w", ErrValidation)
	}
	if prefs.AgeMax != 0 && prefs.AgeMax < prefs.AgeMin {
		return fmt.Errorf("age range inverted: %w", ErrValidation)
	}
	if prefs.MaxDistanceKM < 0 {
		return fmt.Errorf("negative distance: %w", ErrValidation)
	}
	prefs.State = strings.ToUpper(strings.TrimSpace(prefs.State))
	prefs.Religion = strings.ToLower(strings.TrimSpace(prefs.Religion))
	prefs.Interests = normalizeInterests(prefs.Interests)

	if prefs.CityID > 0 {
		if _, ok := s.cities[prefs.CityID]; !ok {
			return ErrUnknownCity
		}
	}

	if s.needsCityStateGate(ctx, userID, prefs) {
		if s.deps.Gate == nil {
			return fmt.Errorf("entitlement gate is nil")
		}
		if _, err := s.deps.Gate.Require(ctx, userID, entitlements.FeatureCityStateFilter); err != nil {
			return err
		}
	}

	return s.deps.Store.SaveFilterPrefs(ctx, userID, prefs)
}

// needsCityStateGate reports whether the filter points outside the user's own
// city. Selecting your own city (or nothing) stays free.
func (s *Service) needsCityStateGate(ctx context.Context, userID int64, prefs model.FilterPrefs) bool {
	if prefs.State != "" {
		return true
	}
	if prefs.CityID <= 0 {
		return false
	}

	own, err := s.deps.Store.Get(ctx, userID)
	if err != nil {
		return true
	}
	return prefs.CityID != own.CityID
}

func (s *Service) normalizeAndValidateInput(in Input) (Input, error) {
	if in.Birthdate.IsZero() {
		return Input{}, fmt.Errorf("birthdate is required: %w", ErrValidation)
	}
	if ageYears(in.Birthdate, s.now()) < 18 {
		return Input{}, ErrAgeRejected
	}

	out := Input{
		DisplayName: strings.TrimSpace(in.DisplayName),
		Bio:         strings.TrimSpace(in.Bio),
		Birthdate:   in.Birthdate,
		Gender:      strings.ToLower(strings.TrimSpace(in.Gender)),
		Seeking:     strings.ToLower(strings.TrimSpace(in.Seeking)),
		Religion:    strings.ToLower(strings.TrimSpace(in.Religion)),
		CityID:      in.CityID,
		Interests:   normalizeInterests(in.Interests),
	}

	if out.DisplayName == "" {
		return Input{}, fmt.Errorf("display name is required: %w", ErrValidation)
	}
	if _, ok := allowedGenders[out.Gender]; !ok {
		return Input{}, fmt.Errorf("gender %q is not allowed: %w", out.Gender, ErrValidation)
	}
	if _, ok := allowedSeeking[out.Seeking]; !ok {
		return Input{}, fmt.Errorf("seeking %q is not allowed: %w", out.Seeking, ErrValidation)
	}
	if out.Religion != "" {
		if _, ok := allowedReligions[out.Religion]; !ok {
			return Input{}, fmt.Errorf("religion %q is not allowed: %w", out.Religion, ErrValidation)
		}
	}
	if len(out.Interests) > maxInterests {
		out.Interests = out.Interests[:maxInterests]
	}

	return out, nil
}

func normalizeInterests(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

func isProfileCompleted(in Input) bool {
	return !in.Birthdate.IsZero() &&
		in.DisplayName != "" &&
		in.Gender != "" &&
		in.Seeking != "" &&
		in.Religion != "" &&
		in.CityID > 0
}

func ageYears(birthdate time.Time, now time.Time) int {
	b := birthdate.UTC()
	n := now.UTC()

	years := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		years--
	}

	return years
}

var allowedGenders = map[string]struct{}{
	"male":   {},
	"female": {},
}

var allowedSeeking = map[string]struct{}{
	"male":   {},
	"female": {},
	"all":    {},
}

var allowedReligions = map[string]struct{}{
	"catolica":      {},
	"evangelica":    {},
	"protestante":   {},
	"batista":       {},
	"pentecostal":   {},
	"adventista":    {},
	"presbiteriana": {},
	"espirita":      {},
	"outra":         {},
}
