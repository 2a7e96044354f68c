package handlers

import (
	"errors"
	"net/http"

	analyticsvc "github.com/encontrocomfe/backend/internal/services/analytics"
	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type EventsHandler struct {
	service *analyticsvc.Service
}

func NewEventsHandler(service *analyticsvc.Service) *EventsHandler {
	return &EventsHandler{service: service}
}

func (h *EventsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ANALYTICS_SERVICE_UNAVAILABLE", "analytics service is unavailable")
		return
	}

	var req struct {
		Events []analyticsvc.BatchEvent `json:"events"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.IngestBatch(r.Context(), identity.UserID, req.Events); err != nil {
		if errors.Is(err, analyticsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid event batch")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to record events")
		return
	}

	httperrors.Write(w, http.StatusAccepted, dto.OKResponse{OK: true})
}
