package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	pushsvc "github.com/encontrocomfe/backend/internal/services/push"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type PushHandler struct {
	service *pushsvc.Service
}

func NewPushHandler(service *pushsvc.Service) *PushHandler {
	return &PushHandler{service: service}
}

func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var req dto.PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.RegisterToken(r.Context(), identity.UserID, req.Token, req.Platform); err != nil {
		if errors.Is(err, pushsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "token and platform are required")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to register push token")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *PushHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var req dto.PushUnregisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Unregister(r.Context(), req.Token); err != nil {
		if errors.Is(err, pushsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "token is required")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to unregister push token")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
