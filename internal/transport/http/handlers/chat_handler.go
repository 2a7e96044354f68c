package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	chatsvc "github.com/encontrocomfe/backend/internal/services/chat"
	entsvc "github.com/encontrocomfe/backend/internal/services/entitlements"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

// RateLimiter throttles message sends per user. Optional.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (int64, bool, error)
}

type ChatHandler struct {
	service *chatsvc.Service
	limiter RateLimiter
}

func NewChatHandler(service *chatsvc.Service, limiter RateLimiter) *ChatHandler {
	return &ChatHandler{service: service, limiter: limiter}
}

// allowSend fails open when the limiter store errors; chat availability wins
// over strict throttling.
func (h *ChatHandler) allowSend(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if h.limiter == nil {
		return true
	}
	retryAfter, ok, err := h.limiter.Allow(r.Context(), userID)
	if err != nil {
		return true
	}
	if !ok {
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "MESSAGE_RATE_LIMITED",
			Message:       "sending too fast, slow down",
			RetryAfterSec: retryAfter,
		})
		return false
	}
	return true
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	limit := queryInt(r, "limit", "50")
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, "INVALID_CURSOR", "before must be an RFC3339 timestamp")
			return
		}
		before = parsed
	}
	beforeID := r.URL.Query().Get("before_id")

	messages, err := h.service.List(r.Context(), identity.UserID, matchID, before, beforeID, limit)
	if err != nil {
		if errors.Is(err, chatsvc.ErrMatchNotFound) {
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load messages")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Messages: messages})
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if !h.allowSend(w, r, identity.UserID) {
		return
	}

	result, err := h.service.Send(r.Context(), identity.UserID, matchID, sendInput(req))
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{Message: result.Message, Replay: result.Replay})
}

func (h *ChatHandler) SendDirect(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendDirectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.TargetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id is required")
		return
	}
	if !h.allowSend(w, r, identity.UserID) {
		return
	}

	result, err := h.service.SendDirect(r.Context(), identity.UserID, req.TargetID, sendInput(req.SendMessageRequest))
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{Message: result.Message, Replay: result.Replay})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	ids, err := h.service.MarkRead(r.Context(), identity.UserID, matchID)
	if err != nil {
		if errors.Is(err, chatsvc.ErrMatchNotFound) {
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to mark messages read")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{MessageIDs: ids})
}

func (h *ChatHandler) StartCall(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	var req dto.StartCallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.StartCall(r.Context(), identity.UserID, matchID, req.Kind)
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{Message: result.Message, Replay: result.Replay})
}

func (h *ChatHandler) writeSendError(w http.ResponseWriter, err error) {
	var denial *entsvc.DenialError
	switch {
	case errors.As(err, &denial):
		writeUpgradeRequired(w, denial)
	case errors.Is(err, chatsvc.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, chatsvc.ErrMatchEnded):
		writeConflict(w, "MATCH_ENDED", "match is no longer active")
	case errors.Is(err, chatsvc.ErrBlocked):
		writeForbidden(w, "CONVERSATION_BLOCKED", "conversation is blocked")
	case errors.Is(err, chatsvc.ErrTargetUnavailable):
		writeNotFound(w, "TARGET_UNAVAILABLE", "target user is unavailable")
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to send message")
	}
}

func sendInput(req dto.SendMessageRequest) chatsvc.SendInput {
	return chatsvc.SendInput{
		ID:       req.ID,
		Kind:     req.Kind,
		Text:     req.Text,
		URL:      req.URL,
		Card:     req.Card,
		CallKind: req.CallKind,
		CallRoom: req.CallRoom,
		Body:     req.Body,
	}
}
