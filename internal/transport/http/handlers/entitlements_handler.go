package handlers

import (
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	entsvc "github.com/encontrocomfe/backend/internal/services/entitlements"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type EntitlementsHandler struct {
	service *entsvc.Service
}

func NewEntitlementsHandler(service *entsvc.Service) *EntitlementsHandler {
	return &EntitlementsHandler{service: service}
}

func (h *EntitlementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	snapshot, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load entitlements")
		return
	}

	httperrors.Write(w, http.StatusOK, snapshot)
}

func (h *EntitlementsHandler) Plans(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PlansResponse{Plans: h.service.Plans()})
}
