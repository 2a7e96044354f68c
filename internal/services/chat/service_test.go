package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

type memMessages struct {
	byID  map[string]model.Message
	order []string
}

func newMemMessages() *memMessages {
	return &memMessages{byID: make(map[string]model.Message)}
}

func (m *memMessages) Insert(_ context.Context, msg model.Message) (model.Message, bool, error) {
	if existing, ok := m.byID[msg.ID]; ok {
		return existing, false, nil
	}
	m.byID[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return msg, true, nil
}

func (m *memMessages) ListByMatch(_ context.Context, matchID int64, _ time.Time, _ string, _ int) ([]model.Message, error) {
	var out []model.Message
	for i := len(m.order) - 1; i >= 0; i-- {
		if msg := m.byID[m.order[i]]; msg.MatchID == matchID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) MarkRead(_ context.Context, matchID, readerUserID int64, at time.Time) ([]string, error) {
	var ids []string
	for id, msg := range m.byID {
		if msg.MatchID == matchID && msg.SenderUserID != readerUserID && msg.ReadAt == nil {
			msg.ReadAt = &at
			m.byID[id] = msg
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type matchStoreStub struct {
	match model.Match
}

func (s matchStoreStub) GetByID(context.Context, int64) (model.Match, error) {
	return s.match, nil
}

func (s matchStoreStub) CreateIfMissing(context.Context, pgx.Tx, int64, int64, bool, time.Time) (model.Match, bool, error) {
	return s.match, true, nil
}

type profilesStub struct {
	readReceipts bool
}

func (s profilesStub) Get(_ context.Context, userID int64) (model.Profile, error) {
	return model.Profile{UserID: userID, ReadReceiptsEnabled: s.readReceipts}, nil
}

type denyAllGate struct{}

func (denyAllGate) Require(context.Context, int64, entitlements.Feature) (entitlements.Snapshot, error) {
	return entitlements.Snapshot{}, &entitlements.DenialError{
		Feature:      entitlements.FeatureUnsolicitedMessages,
		CurrentTier:  enums.TierNone,
		RequiredTier: enums.TierGold,
	}
}

type notifyRecorder struct {
	newMessages int
	reads       int
}

func (n *notifyRecorder) NotifyNewMessage(model.Message, []int64) { n.newMessages++ }

func (n *notifyRecorder) NotifyMessagesRead(int64, int64, []string, []int64) { n.reads++ }

func activeMatch() model.Match {
	return model.Match{ID: 9, UserAID: 1, UserBID: 2, Status: model.MatchStatusActive}
}

func TestSendDuplicateIDCollapses(t *testing.T) {
	store := newMemMessages()
	notifier := &notifyRecorder{}
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchStoreStub{match: activeMatch()},
	})
	svc.SetNotifier(notifier)

	id := uuid.NewString()
	input := SendInput{ID: id, Kind: "text", Text: "Oi, tudo bem?"}

	first, err := svc.Send(context.Background(), 1, 9, input)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if first.Replay {
		t.Fatal("first delivery must not be a replay")
	}

	second, err := svc.Send(context.Background(), 1, 9, input)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if !second.Replay {
		t.Fatal("duplicate id must collapse onto the first delivery")
	}
	if second.Message.ID != first.Message.ID {
		t.Fatalf("replay must return the stored message, got %s want %s", second.Message.ID, first.Message.ID)
	}
	if len(store.byID) != 1 {
		t.Fatalf("store must hold one message, got %d", len(store.byID))
	}
	if notifier.newMessages != 1 {
		t.Fatalf("replay must not re-broadcast, got %d notifications", notifier.newMessages)
	}
}

func TestSendNormalizesLegacyBody(t *testing.T) {
	store := newMemMessages()
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchStoreStub{match: activeMatch()},
	})

	result, err := svc.Send(context.Background(), 1, 9, SendInput{Body: "[image:https://cdn.example.com/pic.jpg]"})
	if err != nil {
		t.Fatalf("send legacy body: %v", err)
	}
	if result.Message.Payload.Kind != model.MessageKindImage {
		t.Fatalf("legacy image body must normalize to the typed form, got %s", result.Message.Payload.Kind)
	}
	if result.Message.Payload.URL != "https://cdn.example.com/pic.jpg" {
		t.Fatalf("unexpected media url %q", result.Message.Payload.URL)
	}
}

func TestSendRejectsEndedMatch(t *testing.T) {
	ended := activeMatch()
	ended.Status = model.MatchStatusUnmatched
	svc := NewService(Dependencies{
		Messages: newMemMessages(),
		Matches:  matchStoreStub{match: ended},
	})

	if _, err := svc.Send(context.Background(), 1, 9, SendInput{Kind: "text", Text: "oi"}); !errors.Is(err, ErrMatchEnded) {
		t.Fatalf("ended match must reject sends, got %v", err)
	}
}

func TestSendHidesMatchFromOutsider(t *testing.T) {
	svc := NewService(Dependencies{
		Messages: newMemMessages(),
		Matches:  matchStoreStub{match: activeMatch()},
	})

	if _, err := svc.Send(context.Background(), 7, 9, SendInput{Kind: "text", Text: "oi"}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("outsider must get not-found, got %v", err)
	}
}

func TestMarkReadSkippedWhenReceiptsOff(t *testing.T) {
	store := newMemMessages()
	notifier := &notifyRecorder{}
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchStoreStub{match: activeMatch()},
		Profiles: profilesStub{readReceipts: false},
	})
	svc.SetNotifier(notifier)

	if _, err := svc.Send(context.Background(), 1, 9, SendInput{Kind: "text", Text: "oi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ids, err := svc.MarkRead(context.Background(), 2, 9)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("reads must be skipped when receipts are off, got %d ids", len(ids))
	}
	if notifier.reads != 0 {
		t.Fatal("no read receipt may be broadcast when receipts are off")
	}
}

func TestMarkReadStampsAndNotifies(t *testing.T) {
	store := newMemMessages()
	notifier := &notifyRecorder{}
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchStoreStub{match: activeMatch()},
		Profiles: profilesStub{readReceipts: true},
	})
	svc.SetNotifier(notifier)

	if _, err := svc.Send(context.Background(), 1, 9, SendInput{Kind: "text", Text: "oi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ids, err := svc.MarkRead(context.Background(), 2, 9)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one message marked read, got %d", len(ids))
	}
	if notifier.reads != 1 {
		t.Fatalf("read receipt must be broadcast once, got %d", notifier.reads)
	}
}

func TestSendDirectRequiresEntitlement(t *testing.T) {
	svc := NewService(Dependencies{
		Pool:     nil,
		Messages: newMemMessages(),
		Matches:  matchStoreStub{match: activeMatch()},
		Gate:     denyAllGate{},
	})

	_, err := svc.SendDirect(context.Background(), 1, 2, SendInput{Kind: "text", Text: "oi"})
	var denial *entitlements.DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("direct message without entitlement must be denied, got %v", err)
	}
	if denial.RequiredTier != enums.TierGold {
		t.Fatalf("denial must name the required tier, got %s", denial.RequiredTier)
	}
}

func TestStartCallEmbedsRoom(t *testing.T) {
	store := newMemMessages()
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchStoreStub{match: activeMatch()},
	})

	result, err := svc.StartCall(context.Background(), 1, 9, "video")
	if err != nil {
		t.Fatalf("start call: %v", err)
	}
	payload := result.Message.Payload
	if payload.Kind != model.MessageKindCallInvite || payload.CallKind != model.CallKindVideo {
		t.Fatalf("unexpected call payload %+v", payload)
	}
	if payload.CallRoom == "" {
		t.Fatal("call invite must carry a room id")
	}

	if _, err := svc.StartCall(context.Background(), 1, 9, "smoke-signal"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown call kind must be rejected, got %v", err)
	}
}
