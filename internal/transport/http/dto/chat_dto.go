package dto

import "github.com/encontrocomfe/backend/internal/domain/model"

type SendMessageRequest struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	Card     []byte `json:"card,omitempty"`
	CallKind string `json:"call_kind,omitempty"`
	CallRoom string `json:"call_room,omitempty"`
	Body     string `json:"body,omitempty"`
}

type SendDirectRequest struct {
	TargetID int64 `json:"target_id"`
	SendMessageRequest
}

type SendMessageResponse struct {
	Message model.Message `json:"message"`
	Replay  bool          `json:"replay"`
}

type MessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

type MarkReadResponse struct {
	MessageIDs []string `json:"message_ids"`
}

type StartCallRequest struct {
	Kind string `json:"kind"`
}
