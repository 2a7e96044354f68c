package handlers

import (
	"errors"
	"net/http"

	"github.com/encontrocomfe/backend/internal/domain/model"
	adminsvc "github.com/encontrocomfe/backend/internal/services/admin"
	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	pushsvc "github.com/encontrocomfe/backend/internal/services/push"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type AdminHandler struct {
	service *adminsvc.Service
	push    *pushsvc.Service
}

func NewAdminHandler(service *adminsvc.Service, push *pushsvc.Service) *AdminHandler {
	return &AdminHandler{service: service, push: push}
}

func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return
	}

	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", "50")

	reports, err := h.service.ListReports(r.Context(), status, limit)
	if err != nil {
		if errors.Is(err, adminsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown report status")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to list reports")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReportsResponse{Reports: reports})
}

func (h *AdminHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return
	}

	reportID, ok := pathInt64(r, "reportID")
	if !ok {
		writeBadRequest(w, "INVALID_REPORT_ID", "report id must be a positive integer")
		return
	}

	var req dto.ResolveReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	err := h.service.ResolveReport(r.Context(), identity.UserID, adminsvc.ResolveInput{
		ReportID:    reportID,
		Resolution:  req.Resolution,
		Dismiss:     req.Dismiss,
		SuspendUser: req.SuspendUser,
	})
	if err != nil {
		switch {
		case errors.Is(err, adminsvc.ErrReportNotFound):
			writeNotFound(w, "REPORT_NOT_FOUND", "report not found")
		case errors.Is(err, adminsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid resolution")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve report")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminHandler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return
	}

	targetID, ok := pathInt64(r, "userID")
	if !ok {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	var req dto.SuspendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.SuspendUser(r.Context(), identity.UserID, targetID, req.Reason); err != nil {
		switch {
		case errors.Is(err, adminsvc.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, adminsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid suspension request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to suspend user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminHandler) UnsuspendUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return
	}

	targetID, ok := pathInt64(r, "userID")
	if !ok {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	if err := h.service.UnsuspendUser(r.Context(), identity.UserID, targetID); err != nil {
		switch {
		case errors.Is(err, adminsvc.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, adminsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unsuspend user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return
	}

	limit := queryInt(r, "limit", "100")
	entries, err := h.service.AuditTrail(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load audit trail")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"entries": entries})
}

// CampaignAudience previews how many users a campaign filter reaches, so the
// admin screen can show the count before anything is sent.
func (h *AdminHandler) CampaignAudience(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var audience model.CampaignAudience
	if err := decodeJSON(r, &audience); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	count, err := h.push.Audience(r.Context(), audience)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to count audience")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AudienceResponse{Count: count})
}

func (h *AdminHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeInternal(w, "PUSH_SERVICE_UNAVAILABLE", "push service is unavailable")
		return
	}

	var req dto.CampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.push.SendCampaign(r.Context(), pushsvc.Campaign{
		Title:     req.Title,
		Body:      req.Body,
		TargetURL: req.TargetURL,
		Audience:  req.Audience,
	})
	if err != nil {
		switch {
		case errors.Is(err, pushsvc.ErrEmptyAudience):
			httperrors.Write(w, http.StatusUnprocessableEntity, httperrors.APIError{
				Code:    "EMPTY_AUDIENCE",
				Message: "campaign audience matches no users",
			})
		case errors.Is(err, pushsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "title and body are required")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to send campaign")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, result)
}
