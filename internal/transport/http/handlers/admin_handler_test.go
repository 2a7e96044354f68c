package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/domain/model"
	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	pushsvc "github.com/encontrocomfe/backend/internal/services/push"
)

type tokenStoreStub struct {
	audience  int
	tokens    []string
	dispatchN int
}

func (s *tokenStoreStub) Subscribe(ctx context.Context, userID int64, token, platform string, now time.Time) error {
	return nil
}

func (s *tokenStoreStub) DeleteToken(ctx context.Context, token string) error { return nil }

func (s *tokenStoreStub) TokensForUser(ctx context.Context, userID int64) ([]string, error) {
	return nil, nil
}

func (s *tokenStoreStub) CountAudience(ctx context.Context, a model.CampaignAudience) (int, error) {
	return s.audience, nil
}

func (s *tokenStoreStub) AudienceTokens(ctx context.Context, a model.CampaignAudience) ([]string, error) {
	s.dispatchN++
	return s.tokens, nil
}

func TestSendCampaignRejectsZeroAudience(t *testing.T) {
	store := &tokenStoreStub{audience: 0}
	push := pushsvc.NewService(pushsvc.Dependencies{
		Tokens: store,
		Logger: zap.NewNop(),
	}, pushsvc.Config{DryRun: true})
	h := NewAdminHandler(nil, push)

	body, _ := json.Marshal(map[string]any{
		"title":    "Novidade",
		"body":     "Venha conferir",
		"audience": map[string]any{"tier": "gold", "state": "AC"},
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 1, Role: "admin"}))
	resp := httptest.NewRecorder()

	h.SendCampaign(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: got %d body %s", resp.Code, resp.Body.String())
	}
	if store.dispatchN != 0 {
		t.Fatalf("tokens fetched despite empty audience")
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "EMPTY_AUDIENCE" {
		t.Fatalf("unexpected error code %q", payload.Code)
	}
}

func TestSendCampaignReportsDeliveries(t *testing.T) {
	store := &tokenStoreStub{audience: 2, tokens: []string{"tok-1", "tok-2", "tok-3"}}
	push := pushsvc.NewService(pushsvc.Dependencies{
		Tokens: store,
		Logger: zap.NewNop(),
	}, pushsvc.Config{DryRun: true})
	h := NewAdminHandler(nil, push)

	body, _ := json.Marshal(map[string]any{
		"title":    "Novidade",
		"body":     "Venha conferir",
		"audience": map[string]any{},
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 1, Role: "admin"}))
	resp := httptest.NewRecorder()

	h.SendCampaign(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", resp.Code, resp.Body.String())
	}

	var result model.CampaignResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Audience != 2 {
		t.Fatalf("unexpected audience: got %d want 2", result.Audience)
	}
	if result.Delivered != 3 {
		t.Fatalf("dry run should count every token delivered, got %d", result.Delivered)
	}
}

func TestCampaignAudiencePreview(t *testing.T) {
	store := &tokenStoreStub{audience: 17}
	push := pushsvc.NewService(pushsvc.Dependencies{
		Tokens: store,
		Logger: zap.NewNop(),
	}, pushsvc.Config{})
	h := NewAdminHandler(nil, push)

	body := []byte(`{"tier":"silver"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/campaigns/audience", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: 1, Role: "admin"}))
	resp := httptest.NewRecorder()

	h.CampaignAudience(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 17 {
		t.Fatalf("unexpected audience count %d", payload.Count)
	}
}
