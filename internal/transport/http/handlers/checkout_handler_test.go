package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	paysvc "github.com/encontrocomfe/backend/internal/services/payments"
)

type purchaseStoreStub struct {
	byExternalRef map[string]model.Purchase
	calls         int
}

func (s *purchaseStoreStub) CreatePending(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	return p, nil
}

func (s *purchaseStoreStub) GetByID(ctx context.Context, purchaseID string) (model.Purchase, error) {
	return model.Purchase{}, pgrepo.ErrPurchaseNotFound
}

func (s *purchaseStoreStub) GetByExternalRef(ctx context.Context, provider, externalRef string) (model.Purchase, error) {
	s.calls++
	if p, ok := s.byExternalRef[provider+":"+externalRef]; ok {
		return p, nil
	}
	return model.Purchase{}, pgrepo.ErrPurchaseNotFound
}

func (s *purchaseStoreStub) MarkConfirmed(ctx context.Context, tx pgx.Tx, purchaseID, externalRef string, now time.Time) (model.Purchase, bool, error) {
	return model.Purchase{}, false, pgrepo.ErrPurchaseNotFound
}

func signWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := &purchaseStoreStub{}
	svc := paysvc.NewService(paysvc.Dependencies{Purchases: store}, paysvc.Config{})
	h := NewCheckoutHandler(svc, "topsecret")

	body := []byte(`{"provider":"pix","external_ref":"tx-1","status":"paid"}`)

	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	resp := httptest.NewRecorder()

	h.Webhook(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", resp.Code, http.StatusUnauthorized)
	}
	if store.calls != 0 {
		t.Fatalf("store touched despite bad signature: %d calls", store.calls)
	}
}

func TestWebhookRejectsWhenNoSecretConfigured(t *testing.T) {
	svc := paysvc.NewService(paysvc.Dependencies{Purchases: &purchaseStoreStub{}}, paysvc.Config{})
	h := NewCheckoutHandler(svc, "")

	body := []byte(`{"provider":"pix","external_ref":"tx-1","status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signWebhook("whatever", body))
	resp := httptest.NewRecorder()

	h.Webhook(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", resp.Code, http.StatusUnauthorized)
	}
}

func TestWebhookReplayReturnsAlreadyProcessed(t *testing.T) {
	confirmed := model.Purchase{
		ID:          "pur-1",
		UserID:      7,
		PlanID:      "prata_mensal",
		Provider:    "pix",
		Status:      model.PurchaseStatusConfirmed,
		ExternalRef: "tx-1",
	}
	store := &purchaseStoreStub{byExternalRef: map[string]model.Purchase{
		"pix:tx-1": confirmed,
	}}
	svc := paysvc.NewService(paysvc.Dependencies{Purchases: store}, paysvc.Config{})
	h := NewCheckoutHandler(svc, "topsecret")

	body := []byte(`{"purchase_id":"pur-1","provider":"pix","external_ref":"tx-1","status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signWebhook("topsecret", body))
	resp := httptest.NewRecorder()

	h.Webhook(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Purchase         model.Purchase `json:"purchase"`
		AlreadyProcessed bool           `json:"already_processed"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.AlreadyProcessed {
		t.Fatalf("expected already_processed on replay")
	}
	if payload.Purchase.ID != "pur-1" {
		t.Fatalf("unexpected purchase id %q", payload.Purchase.ID)
	}
}

func TestWebhookUnknownPurchase(t *testing.T) {
	store := &purchaseStoreStub{}
	svc := paysvc.NewService(paysvc.Dependencies{Purchases: store}, paysvc.Config{})
	h := NewCheckoutHandler(svc, "topsecret")

	body := []byte(`{"provider":"pix","external_ref":"tx-404","status":"paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signWebhook("topsecret", body))
	resp := httptest.NewRecorder()

	h.Webhook(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", resp.Code, http.StatusNotFound)
	}
}
