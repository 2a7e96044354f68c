package handlers

import (
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	likesvc "github.com/encontrocomfe/backend/internal/services/likes"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type LikesHandler struct {
	service *likesvc.Service
}

func NewLikesHandler(service *likesvc.Service) *LikesHandler {
	return &LikesHandler{service: service}
}

func (h *LikesHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	limit := queryInt(r, "limit", "50")
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	result, err := h.service.Incoming(r.Context(), identity.UserID, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load incoming likes")
		return
	}

	httperrors.Write(w, http.StatusOK, result)
}
