package ws

import (
	"encoding/json"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

// Client → server event types.
const (
	EventTypeSubscribe   = "conversation.subscribe"
	EventTypeUnsubscribe = "conversation.unsubscribe"
	EventTypeTypingStart = "typing.start"
	EventTypeTypingStop  = "typing.stop"
	EventTypePing        = "ping"
)

// Server → client event types.
const (
	EventTypeMessageNew  = "message.new"
	EventTypeMessageRead = "message.read"
	EventTypeMatchNew    = "match.new"
	EventTypeTyping      = "typing"
	EventTypePresence    = "presence"
	EventTypePong        = "pong"
	EventTypeError       = "error"
)

// Event is the envelope for every websocket frame. MatchID scopes
// conversation events; broadcast events leave it zero.
type Event struct {
	Type      string          `json:"type"`
	MatchID   int64           `json:"match_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

type ConversationPayload struct {
	MatchID int64 `json:"match_id"`
}

type MessageNewPayload struct {
	model.Message
}

// MessageReadPayload carries ids so clients can dedupe repeated frames.
type MessageReadPayload struct {
	ReaderUserID int64    `json:"reader_user_id"`
	MessageIDs   []string `json:"message_ids"`
}

type MatchNewPayload struct {
	MatchID     int64 `json:"match_id"`
	OtherUserID int64 `json:"other_user_id"`
}

type TypingPayload struct {
	UserID int64 `json:"user_id"`
}

type PresencePayload struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewEvent(eventType string, matchID int64, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		MatchID:   matchID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
