package ws

import (
	"encoding/json"
	"testing"
)

func TestSubscribeHonorsAuthorizer(t *testing.T) {
	hub := NewHub(nil)
	hub.SetAuthorizer(func(userID, matchID int64) bool {
		return matchID == 42
	})

	client := NewClient(hub, nil, 7, nil)

	client.handleEvent(&Event{Type: EventTypeSubscribe, MatchID: 42})
	if !client.IsSubscribed(42) {
		t.Fatal("authorized subscription was rejected")
	}

	client.handleEvent(&Event{Type: EventTypeSubscribe, MatchID: 99})
	if client.IsSubscribed(99) {
		t.Fatal("unauthorized subscription was accepted")
	}

	var frame Event
	if err := json.Unmarshal(<-client.send, &frame); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	if frame.Type != EventTypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
}

func TestSubscribeAcceptsPayloadForm(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, 7, nil)

	payload, _ := json.Marshal(ConversationPayload{MatchID: 5})
	client.handleEvent(&Event{Type: EventTypeSubscribe, Payload: payload})
	if !client.IsSubscribed(5) {
		t.Fatal("payload-form subscribe did not register")
	}

	client.handleEvent(&Event{Type: EventTypeUnsubscribe, MatchID: 5})
	if client.IsSubscribed(5) {
		t.Fatal("unsubscribe did not remove the conversation")
	}
}

func TestTypingRequiresSubscription(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(hub, nil, 7, nil)

	client.handleEvent(&Event{Type: EventTypeTypingStart, MatchID: 3})

	var frame Event
	if err := json.Unmarshal(<-client.send, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != EventTypeError {
		t.Fatalf("typing without subscription should error, got %q", frame.Type)
	}
}
