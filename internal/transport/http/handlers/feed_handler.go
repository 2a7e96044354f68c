package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	feedsvc "github.com/encontrocomfe/backend/internal/services/feed"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := queryInt(r, "limit", "0")

	result, err := h.service.Get(r.Context(), identity.UserID, cursor, limit)
	if err != nil {
		switch {
		case errors.Is(err, feedsvc.ErrInvalidCursor):
			writeBadRequest(w, "INVALID_CURSOR", "cursor is malformed")
		case errors.Is(err, feedsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid feed request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load feed")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, result)
}
