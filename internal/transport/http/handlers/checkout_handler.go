package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	paysvc "github.com/encontrocomfe/backend/internal/services/payments"
	"github.com/encontrocomfe/backend/internal/transport/http/dto"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

const maxWebhookBody = 64 << 10

type CheckoutHandler struct {
	service       *paysvc.Service
	webhookSecret string
}

func NewCheckoutHandler(service *paysvc.Service, webhookSecret string) *CheckoutHandler {
	return &CheckoutHandler{service: service, webhookSecret: webhookSecret}
}

func (h *CheckoutHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.CheckoutIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	purchase, err := h.service.CreateIntent(r.Context(), identity.UserID, paysvc.CreateInput{
		PlanID:   req.PlanID,
		Contact:  req.Contact,
		Bumps:    req.Bumps,
		Source:   req.Source,
		Provider: req.Provider,
	})
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrUnknownPlan):
			writeBadRequest(w, "UNKNOWN_PLAN", "unknown plan id")
		case errors.Is(err, paysvc.ErrUnknownBump):
			writeBadRequest(w, "UNKNOWN_BUMP", "unknown order bump id")
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid checkout request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create checkout intent")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, purchase)
}

func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	purchaseID := chi.URLParam(r, "purchaseID")
	if purchaseID == "" {
		writeBadRequest(w, "INVALID_PURCHASE_ID", "purchase id is required")
		return
	}

	purchase, err := h.service.Status(r.Context(), identity.UserID, purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrPurchaseNotFound):
			writeNotFound(w, "PURCHASE_NOT_FOUND", "purchase not found")
		case errors.Is(err, paysvc.ErrPurchaseExpired):
			httperrors.Write(w, http.StatusGone, httperrors.APIError{
				Code:    "PURCHASE_EXPIRED",
				Message: "purchase intent expired",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load purchase")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, purchase)
}

// Webhook accepts provider confirmations. The body is authenticated with an
// HMAC-SHA256 signature over the raw payload; a bad or missing signature is
// rejected before anything is parsed.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "failed to read request body")
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		writeUnauthorized(w, "INVALID_SIGNATURE", "webhook signature mismatch")
		return
	}

	var req dto.WebhookRequest
	decoder := newStrictDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.ConfirmWebhook(r.Context(), paysvc.WebhookInput{
		PurchaseID:  req.PurchaseID,
		Provider:    req.Provider,
		ExternalRef: req.ExternalRef,
		Status:      req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrPurchaseNotFound):
			writeNotFound(w, "PURCHASE_NOT_FOUND", "purchase not found")
		case errors.Is(err, paysvc.ErrPurchaseExpired):
			httperrors.Write(w, http.StatusGone, httperrors.APIError{
				Code:    "PURCHASE_EXPIRED",
				Message: "purchase intent expired",
			})
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid webhook payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process webhook")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{
		Purchase:         result.Purchase,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// DevConfirm confirms a purchase without a provider. Only enabled in local
// and staging stacks.
func (h *CheckoutHandler) DevConfirm(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	purchaseID := chi.URLParam(r, "purchaseID")
	if purchaseID == "" {
		writeBadRequest(w, "INVALID_PURCHASE_ID", "purchase id is required")
		return
	}

	result, err := h.service.DevConfirm(r.Context(), purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrDevConfirmDisabled):
			writeForbidden(w, "DEV_CONFIRM_DISABLED", "dev confirmation is disabled")
		case errors.Is(err, paysvc.ErrPurchaseNotFound):
			writeNotFound(w, "PURCHASE_NOT_FOUND", "purchase not found")
		case errors.Is(err, paysvc.ErrPurchaseExpired):
			httperrors.Write(w, http.StatusGone, httperrors.APIError{
				Code:    "PURCHASE_EXPIRED",
				Message: "purchase intent expired",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to confirm purchase")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{
		Purchase:         result.Purchase,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

func (h *CheckoutHandler) Plans(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.PlansResponse{Plans: h.service.Plans()})
}

func (h *CheckoutHandler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" {
		// No secret configured means webhooks are disabled for signing;
		// dev stacks use the dev-confirm endpoint instead.
		return false
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
