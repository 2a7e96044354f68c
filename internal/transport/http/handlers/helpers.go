package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	entsvc "github.com/encontrocomfe/backend/internal/services/entitlements"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	return newStrictDecoder(r.Body).Decode(target)
}

func newStrictDecoder(r io.Reader) *json.Decoder {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name, fallback string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		raw = fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeUpgradeRequired renders an entitlement denial as the payload the
// client's upgrade dialog consumes.
func writeUpgradeRequired(w http.ResponseWriter, denial *entsvc.DenialError) {
	httperrors.Write(w, http.StatusForbidden, httperrors.UpgradeRequiredError{
		Code:         "UPGRADE_REQUIRED",
		Message:      "this feature requires a higher plan",
		Feature:      string(denial.Feature),
		CurrentTier:  string(denial.CurrentTier),
		RequiredTier: string(denial.RequiredTier),
		Plan:         denial.Plan,
	})
}
