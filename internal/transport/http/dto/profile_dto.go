package dto

import "github.com/encontrocomfe/backend/internal/domain/model"

type ProfileUpdateRequest struct {
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Birthdate   string   `json:"birthdate"`
	Gender      string   `json:"gender"`
	Seeking     string   `json:"seeking"`
	Religion    string   `json:"religion"`
	CityID      int64    `json:"city_id"`
	Interests   []string `json:"interests"`
}

type ProfileUpdateResponse struct {
	Completed bool `json:"profile_completed"`
}

type LocationUpdateRequest struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	CityID int64   `json:"city_id,omitempty"`
}

type LocationUpdateResponse struct {
	CityID int64  `json:"city_id"`
	City   string `json:"city"`
	State  string `json:"state"`
}

type ReadReceiptsRequest struct {
	Enabled bool `json:"enabled"`
}

type FiltersResponse struct {
	Filters model.FilterPrefs `json:"filters"`
}

type CityResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}
