package errors

import (
	"encoding/json"
	"net/http"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// UpgradeRequiredError is the 403 body for entitlement denials. Plan points
// at the cheapest plan that unlocks the feature so the client can render
// the upgrade dialog without a second request.
type UpgradeRequiredError struct {
	Code         string      `json:"code"`
	Message      string      `json:"message"`
	Feature      string      `json:"feature"`
	CurrentTier  string      `json:"current_tier"`
	RequiredTier string      `json:"required_tier"`
	Plan         *model.Plan `json:"plan,omitempty"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
