package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

type memStore struct {
	profile    model.Profile
	hasProfile bool
	savedPrefs *model.FilterPrefs
}

func (m *memStore) Get(context.Context, int64) (model.Profile, error) {
	return m.profile, nil
}

func (m *memStore) Save(_ context.Context, p model.Profile) error {
	m.profile = p
	m.hasProfile = true
	return nil
}

func (m *memStore) SaveLocation(_ context.Context, userID, cityID int64, city, state string, lat, lon float64, _ time.Time) error {
	m.profile.UserID = userID
	m.profile.CityID = cityID
	m.profile.City = city
	m.profile.State = state
	m.profile.LastLat = &lat
	m.profile.LastLon = &lon
	return nil
}

func (m *memStore) SetReadReceipts(_ context.Context, _ int64, enabled bool) error {
	m.profile.ReadReceiptsEnabled = enabled
	return nil
}

func (m *memStore) TouchLastActive(context.Context, int64, time.Time) error {
	return nil
}

func (m *memStore) GetFilterPrefs(context.Context, int64) (model.FilterPrefs, error) {
	if m.savedPrefs == nil {
		return model.FilterPrefs{}, nil
	}
	return *m.savedPrefs, nil
}

func (m *memStore) SaveFilterPrefs(_ context.Context, _ int64, prefs model.FilterPrefs) error {
	m.savedPrefs = &prefs
	return nil
}

type allowGate struct{}

func (allowGate) Require(context.Context, int64, entitlements.Feature) (entitlements.Snapshot, error) {
	return entitlements.Snapshot{Tier: enums.TierSilver}, nil
}

type denyGate struct{}

func (denyGate) Require(context.Context, int64, entitlements.Feature) (entitlements.Snapshot, error) {
	return entitlements.Snapshot{}, &entitlements.DenialError{
		Feature:      entitlements.FeatureCityStateFilter,
		CurrentTier:  enums.TierNone,
		RequiredTier: enums.TierSilver,
	}
}

func testCities() []City {
	return []City{
		{ID: 3550308, Name: "São Paulo", State: "SP"},
		{ID: 3304557, Name: "Rio de Janeiro", State: "RJ"},
	}
}

func completeInput() Input {
	return Input{
		DisplayName: "João",
		Bio:         "Tenor no coral da igreja",
		Birthdate:   time.Date(1994, 5, 20, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
		Seeking:     "female",
		Religion:    "Batista",
		CityID:      3550308,
		Interests:   []string{"Música", "música", "Viagens"},
	}
}

func TestUpdateRejectsMinor(t *testing.T) {
	store := &memStore{}
	svc := NewService(Dependencies{Store: store, Cities: testCities()})
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	in := completeInput()
	in.Birthdate = time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Update(context.Background(), 1, in); !errors.Is(err, ErrAgeRejected) {
		t.Fatalf("minor must be rejected, got %v", err)
	}
	if store.hasProfile {
		t.Fatal("rejected input must not be saved")
	}
}

func TestUpdateCompletesProfile(t *testing.T) {
	store := &memStore{}
	svc := NewService(Dependencies{Store: store, Cities: testCities()})

	completed, err := svc.Update(context.Background(), 1, completeInput())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !completed {
		t.Fatal("full input must complete the profile")
	}
	if store.profile.City != "São Paulo" || store.profile.State != "SP" {
		t.Fatalf("city must resolve from config, got %q/%q", store.profile.City, store.profile.State)
	}
	if store.profile.Religion != "batista" {
		t.Fatalf("religion must normalize, got %q", store.profile.Religion)
	}
	if len(store.profile.Interests) != 2 {
		t.Fatalf("interests must dedupe, got %v", store.profile.Interests)
	}
}

func TestUpdateRejectsUnknownCity(t *testing.T) {
	svc := NewService(Dependencies{Store: &memStore{}, Cities: testCities()})

	in := completeInput()
	in.CityID = 999

	if _, err := svc.Update(context.Background(), 1, in); !errors.Is(err, ErrUnknownCity) {
		t.Fatalf("unknown city must be rejected, got %v", err)
	}
}

func TestSaveFiltersGatesOtherCity(t *testing.T) {
	store := &memStore{profile: model.Profile{UserID: 1, CityID: 3550308}}
	svc := NewService(Dependencies{Store: store, Gate: denyGate{}, Cities: testCities()})

	err := svc.SaveFilters(context.Background(), 1, model.FilterPrefs{CityID: 3304557})
	var denial *entitlements.DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("another city needs the paid filter, got %v", err)
	}
	if store.savedPrefs != nil {
		t.Fatal("denied filters must not be saved")
	}
}

func TestSaveFiltersOwnCityStaysFree(t *testing.T) {
	store := &memStore{profile: model.Profile{UserID: 1, CityID: 3550308}}
	svc := NewService(Dependencies{Store: store, Gate: denyGate{}, Cities: testCities()})

	if err := svc.SaveFilters(context.Background(), 1, model.FilterPrefs{CityID: 3550308, AgeMin: 20, AgeMax: 30}); err != nil {
		t.Fatalf("own city must stay free, got %v", err)
	}
	if store.savedPrefs == nil || store.savedPrefs.CityID != 3550308 {
		t.Fatalf("filters must be saved, got %+v", store.savedPrefs)
	}
}

func TestSaveFiltersNormalizesState(t *testing.T) {
	store := &memStore{profile: model.Profile{UserID: 1, CityID: 3550308}}
	svc := NewService(Dependencies{Store: store, Gate: allowGate{}, Cities: testCities()})

	if err := svc.SaveFilters(context.Background(), 1, model.FilterPrefs{State: " sp "}); err != nil {
		t.Fatalf("save filters: %v", err)
	}
	if store.savedPrefs.State != "SP" {
		t.Fatalf("state must uppercase, got %q", store.savedPrefs.State)
	}
}
