package handlers

import (
	"errors"
	"net/http"
	"time"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	entsvc "github.com/encontrocomfe/backend/internal/services/entitlements"
	geosvc "github.com/encontrocomfe/backend/internal/services/geo"
	profilesvc "github.com/encontrocomfe/backend/internal/services/profiles"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type ProfileHandler struct {
	profiles *profilesvc.Service
	geo      *geosvc.Service
}

func NewProfileHandler(profiles *profilesvc.Service, geo *geosvc.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, geo: geo}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	profile, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, profilesvc.ErrNotFound) {
			writeNotFound(w, "PROFILE_NOT_FOUND", "profile does not exist yet")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	var birthdate time.Time
	if req.Birthdate != "" {
		parsed, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "birthdate must be YYYY-MM-DD")
			return
		}
		birthdate = parsed
	}

	completed, err := h.profiles.Update(r.Context(), identity.UserID, profilesvc.Input{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Birthdate:   birthdate,
		Gender:      req.Gender,
		Seeking:     req.Seeking,
		Religion:    req.Religion,
		CityID:      req.CityID,
		Interests:   req.Interests,
	})
	if err != nil {
		switch {
		case errors.Is(err, profilesvc.ErrAgeRejected):
			writeForbidden(w, "AGE_REJECTED", "you must be at least 18 years old")
		case errors.Is(err, profilesvc.ErrUnknownCity):
			writeBadRequest(w, "UNKNOWN_CITY", "city is not supported")
		case errors.Is(err, profilesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile fields")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to save profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfileUpdateResponse{Completed: completed})
}

// UpdateLocation snaps coordinates to the nearest supported city unless an
// explicit city id comes with the request.
func (h *ProfileHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.LocationUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if req.CityID > 0 {
		if err := h.profiles.UpdateLocation(r.Context(), identity.UserID, req.CityID, req.Lat, req.Lon); err != nil {
			switch {
			case errors.Is(err, profilesvc.ErrUnknownCity):
				writeBadRequest(w, "UNKNOWN_CITY", "city is not supported")
			case errors.Is(err, profilesvc.ErrValidation):
				writeBadRequest(w, "VALIDATION_ERROR", "invalid location")
			default:
				writeInternal(w, "INTERNAL_ERROR", "failed to save location")
			}
			return
		}
		httperrors.Write(w, http.StatusOK, dto.LocationUpdateResponse{CityID: req.CityID})
		return
	}

	if h.geo == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "city_id is required")
		return
	}
	city, err := h.geo.UpdateProfileLocation(r.Context(), identity.UserID, req.Lat, req.Lon)
	if err != nil {
		if errors.Is(err, geosvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid coordinates")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to save location")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LocationUpdateResponse{
		CityID: city.ID,
		City:   city.Name,
		State:  city.State,
	})
}

func (h *ProfileHandler) SetReadReceipts(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.ReadReceiptsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.profiles.SetReadReceipts(r.Context(), identity.UserID, req.Enabled); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to save preference")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (h *ProfileHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	prefs, err := h.profiles.Filters(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load filters")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FiltersResponse{Filters: prefs})
}

func (h *ProfileHandler) SaveFilters(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.FiltersResponse
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.profiles.SaveFilters(r.Context(), identity.UserID, req.Filters); err != nil {
		var denial *entsvc.DenialError
		switch {
		case errors.As(err, &denial):
			writeUpgradeRequired(w, denial)
		case errors.Is(err, profilesvc.ErrUnknownCity):
			writeBadRequest(w, "UNKNOWN_CITY", "city is not supported")
		case errors.Is(err, profilesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid filter values")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to save filters")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, req)
}

// Cities lists the supported launch cities for onboarding pickers.
func (h *ProfileHandler) Cities(w http.ResponseWriter, _ *http.Request) {
	if h.geo == nil {
		httperrors.Write(w, http.StatusOK, map[string]any{"cities": []dto.CityResponse{}})
		return
	}

	cities := h.geo.Cities()
	out := make([]dto.CityResponse, 0, len(cities))
	for _, city := range cities {
		out = append(out, dto.CityResponse{ID: city.ID, Name: city.Name, State: city.State})
	}
	httperrors.Write(w, http.StatusOK, map[string]any{"cities": out})
}
