package handlers

import (
	"net/http"

	devsvc "github.com/encontrocomfe/backend/internal/services/devotional"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type DevotionalHandler struct {
	service *devsvc.Service
}

func NewDevotionalHandler(service *devsvc.Service) *DevotionalHandler {
	return &DevotionalHandler{service: service}
}

func (h *DevotionalHandler) Today(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "DEVOTIONAL_SERVICE_UNAVAILABLE", "devotional service is unavailable")
		return
	}

	devotional, err := h.service.Today(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load devotional")
		return
	}

	httperrors.Write(w, http.StatusOK, devotional)
}
