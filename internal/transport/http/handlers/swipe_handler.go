package handlers

import (
	"errors"
	"net/http"
	"time"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	swipesvc "github.com/encontrocomfe/backend/internal/services/swipes"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, req.Direction)
	if err != nil {
		if tooFast, ok := swipesvc.IsTooFast(err); ok {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "swiping too fast, slow down",
				RetryAfterSec: tooFast.RetryAfter(),
			})
			return
		}
		switch {
		case errors.Is(err, swipesvc.ErrDailyLimit):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
				Code:    "LIKE_LIMIT_REACHED",
				Message: "daily like limit reached",
			})
		case errors.Is(err, swipesvc.ErrSuperLikeLimit):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.APIError{
				Code:    "SUPER_LIKE_LIMIT_REACHED",
				Message: "daily super like limit reached",
			})
		case errors.Is(err, swipesvc.ErrSelfSwipe):
			writeBadRequest(w, "VALIDATION_ERROR", "cannot swipe yourself")
		case errors.Is(err, swipesvc.ErrUnsupportedAction):
			writeBadRequest(w, "VALIDATION_ERROR", "unsupported swipe direction")
		case errors.Is(err, swipesvc.ErrTargetUnavailable):
			writeNotFound(w, "TARGET_UNAVAILABLE", "target profile is unavailable")
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to apply swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		Replay:         result.Replay,
		MatchCreated:   result.MatchCreated,
		Match:          result.Match,
		MatchCard:      result.MatchCard,
		LikesRemaining: result.LikesRemaining,
	})
}

func (h *SwipeHandler) Quota(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	remaining, resetsAt, err := h.service.LikesRemaining(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load like quota")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LikesQuotaResponse{
		Remaining: remaining,
		ResetsAt:  resetsAt.UTC().Format(time.RFC3339),
	})
}
