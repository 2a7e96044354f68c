package model

import "time"

type Profile struct {
	UserID              int64      `json:"user_id"`
	DisplayName         string     `json:"display_name"`
	Bio                 string     `json:"bio"`
	Birthdate           *time.Time `json:"birthdate"`
	Age                 int        `json:"age"`
	Gender              string     `json:"gender"`
	Seeking             string     `json:"seeking"`
	Religion            string     `json:"religion"`
	CityID              int64      `json:"city_id"`
	City                string     `json:"city"`
	State               string     `json:"state"`
	Interests           []string   `json:"interests"`
	Verified            bool       `json:"verified"`
	ReadReceiptsEnabled bool       `json:"read_receipts_enabled"`
	LastLat             *float64   `json:"last_lat"`
	LastLon             *float64   `json:"last_lon"`
	LastActiveAt        *time.Time `json:"last_active_at"`
	PrimaryPhotoURL     string     `json:"primary_photo_url"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// FilterPrefs is the viewer's persisted discovery filter. A zero CityID/State
// means "my own city"; paid tiers may point it elsewhere.
type FilterPrefs struct {
	AgeMin        int      `json:"age_min"`
	AgeMax        int      `json:"age_max"`
	CityID        int64    `json:"city_id"`
	State         string   `json:"state"`
	Religion      string   `json:"religion"`
	MaxDistanceKM int      `json:"max_distance_km"`
	VerifiedOnly  bool     `json:"verified_only"`
	Interests     []string `json:"interests"`
}
