package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

type memTokens struct {
	byUser  map[int64][]string
	deleted []string
}

func (m *memTokens) Subscribe(_ context.Context, userID int64, token, _ string, _ time.Time) error {
	if m.byUser == nil {
		m.byUser = make(map[int64][]string)
	}
	m.byUser[userID] = append(m.byUser[userID], token)
	return nil
}

func (m *memTokens) DeleteToken(_ context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	return nil
}

func (m *memTokens) TokensForUser(_ context.Context, userID int64) ([]string, error) {
	return m.byUser[userID], nil
}

func (m *memTokens) CountAudience(_ context.Context, _ model.CampaignAudience) (int, error) {
	n := 0
	for _, tokens := range m.byUser {
		if len(tokens) > 0 {
			n++
		}
	}
	return n, nil
}

func (m *memTokens) AudienceTokens(_ context.Context, _ model.CampaignAudience) ([]string, error) {
	var out []string
	for _, tokens := range m.byUser {
		out = append(out, tokens...)
	}
	return out, nil
}

type messengerStub struct {
	calls []*messaging.MulticastMessage
	resp  func(msg *messaging.MulticastMessage) *messaging.BatchResponse
}

func (m *messengerStub) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	m.calls = append(m.calls, msg)
	if m.resp != nil {
		return m.resp(msg), nil
	}
	return &messaging.BatchResponse{SuccessCount: len(msg.Tokens)}, nil
}

func TestSendCampaignRejectsEmptyAudience(t *testing.T) {
	messenger := &messengerStub{}
	svc := NewService(Dependencies{Tokens: &memTokens{}, Messenger: messenger}, Config{})

	_, err := svc.SendCampaign(context.Background(), Campaign{
		Title: "Devocional",
		Body:  "A palavra de hoje chegou",
	})
	if !errors.Is(err, ErrEmptyAudience) {
		t.Fatalf("want ErrEmptyAudience, got %v", err)
	}
	if len(messenger.calls) != 0 {
		t.Fatalf("nothing should reach FCM on an empty audience, got %d calls", len(messenger.calls))
	}
}

func TestSendCampaignCountsDeliveries(t *testing.T) {
	tokens := &memTokens{byUser: map[int64][]string{
		1: {"tok-a"},
		2: {"tok-b", "tok-c"},
	}}
	messenger := &messengerStub{resp: func(msg *messaging.MulticastMessage) *messaging.BatchResponse {
		return &messaging.BatchResponse{
			SuccessCount: len(msg.Tokens) - 1,
			FailureCount: 1,
			Responses:    make([]*messaging.SendResponse, len(msg.Tokens)),
		}
	}}
	svc := NewService(Dependencies{Tokens: tokens, Messenger: messenger}, Config{})

	res, err := svc.SendCampaign(context.Background(), Campaign{
		Title:     "Novidade",
		Body:      "Planos com desconto",
		TargetURL: "https://encontrocomfe.com.br/planos",
		Audience:  model.CampaignAudience{State: "SP"},
	})
	if err != nil {
		t.Fatalf("SendCampaign: %v", err)
	}
	if res.Audience != 2 {
		t.Fatalf("audience = %d, want 2 users", res.Audience)
	}
	if res.Delivered != 2 || res.Failed != 1 {
		t.Fatalf("delivered/failed = %d/%d, want 2/1", res.Delivered, res.Failed)
	}
	if len(messenger.calls) != 1 {
		t.Fatalf("expected one multicast batch, got %d", len(messenger.calls))
	}
	if got := messenger.calls[0].Data["url"]; got != "https://encontrocomfe.com.br/planos" {
		t.Fatalf("data url = %q", got)
	}
}

func TestDryRunSkipsMessenger(t *testing.T) {
	tokens := &memTokens{byUser: map[int64][]string{1: {"tok-a"}}}
	messenger := &messengerStub{}
	svc := NewService(Dependencies{Tokens: tokens, Messenger: messenger}, Config{DryRun: true})

	res, err := svc.SendCampaign(context.Background(), Campaign{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("SendCampaign: %v", err)
	}
	if res.Delivered != 1 || len(messenger.calls) != 0 {
		t.Fatalf("dry run should count without dispatching, got delivered=%d calls=%d", res.Delivered, len(messenger.calls))
	}
}

func TestRegisterTokenValidation(t *testing.T) {
	svc := NewService(Dependencies{Tokens: &memTokens{}}, Config{})

	if err := svc.RegisterToken(context.Background(), 0, "tok", "web"); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for bad user id, got %v", err)
	}
	if err := svc.RegisterToken(context.Background(), 1, "   ", "web"); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for blank token, got %v", err)
	}
	if err := svc.RegisterToken(context.Background(), 1, "tok", "web"); err != nil {
		t.Fatalf("RegisterToken: %v", err)
	}
}

func TestNotifyNewMessageTargetsRecipientsOnly(t *testing.T) {
	tokens := &memTokens{byUser: map[int64][]string{
		7: {"tok-7"},
		8: {"tok-8"},
	}}
	messenger := &messengerStub{}
	svc := NewService(Dependencies{Tokens: tokens, Messenger: messenger}, Config{})

	svc.NotifyNewMessage(model.Message{
		ID:           "m-1",
		MatchID:      42,
		SenderUserID: 7,
		Payload:      model.TextPayload("oi, tudo bem?"),
	}, []int64{8})

	if len(messenger.calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(messenger.calls))
	}
	if got := messenger.calls[0].Tokens; len(got) != 1 || got[0] != "tok-8" {
		t.Fatalf("dispatched to %v, want only the recipient's token", got)
	}
	if messenger.calls[0].Data["match_id"] != "42" {
		t.Fatalf("data match_id = %q", messenger.calls[0].Data["match_id"])
	}
}
