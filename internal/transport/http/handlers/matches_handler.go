package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	matchsvc "github.com/encontrocomfe/backend/internal/services/matches"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchsvc.Service
}

func NewMatchesHandler(service *matchsvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	limit := queryInt(r, "limit", "50")
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	summaries, err := h.service.List(r.Context(), identity.UserID, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list matches")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"matches": summaries})
}

func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	match, err := h.service.Get(r.Context(), identity.UserID, matchID)
	if err != nil {
		if errors.Is(err, matchsvc.ErrMatchNotFound) {
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load match")
		return
	}

	httperrors.Write(w, http.StatusOK, match)
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	targetID, ok := pathInt64(r, "userID")
	if !ok {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	if err := h.service.Unmatch(r.Context(), identity.UserID, targetID); err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "no active match with that user")
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MatchesHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	targetID, ok := pathInt64(r, "userID")
	if !ok {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	if err := h.service.Block(r.Context(), identity.UserID, targetID); err != nil {
		if errors.Is(err, matchsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid block request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to block user")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MatchesHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	targetID, ok := pathInt64(r, "userID")
	if !ok {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	var req dto.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	reportID, err := h.service.Report(r.Context(), identity.UserID, targetID, req.Reason, req.Details, req.Block)
	if err != nil {
		if tooMany, ok := matchsvc.IsTooManyReports(err); ok {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_MANY_REPORTS",
				Message:       "too many reports, slow down",
				RetryAfterSec: tooMany.RetryAfter(),
			})
			return
		}
		if unavailable, ok := matchsvc.IsTempUnavailable(err); ok {
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.RateLimitError{
				Code:          "TEMPORARILY_UNAVAILABLE",
				Message:       "reporting is temporarily unavailable",
				RetryAfterSec: unavailable.RetryAfter(),
			})
			return
		}
		switch {
		case errors.Is(err, matchsvc.ErrInvalidReportReason):
			writeBadRequest(w, "INVALID_REPORT_REASON", "unknown report reason")
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid report request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to file report")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ReportResponse{ReportID: reportID})
}
