package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindImage       MessageKind = "image"
	MessageKindAudio       MessageKind = "audio"
	MessageKindProfileCard MessageKind = "profile_card"
	MessageKindCallInvite  MessageKind = "call_invite"
)

const (
	CallKindVideo = "video"
	CallKindVoice = "voice"
)

var ErrInvalidPayload = errors.New("invalid message payload")

// MessagePayload is the discriminated message body. Exactly the fields for
// the given Kind are set; everything else stays zero.
type MessagePayload struct {
	Kind     MessageKind     `json:"kind"`
	Text     string          `json:"text,omitempty"`
	URL      string          `json:"url,omitempty"`
	Card     json.RawMessage `json:"card,omitempty"`
	CallKind string          `json:"call_kind,omitempty"`
	CallRoom string          `json:"call_room,omitempty"`
}

type Message struct {
	ID           string         `json:"id"`
	MatchID      int64          `json:"match_id"`
	SenderUserID int64          `json:"sender_user_id"`
	Payload      MessagePayload `json:"payload"`
	ReadAt       *time.Time     `json:"read_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func TextPayload(text string) MessagePayload {
	return MessagePayload{Kind: MessageKindText, Text: text}
}

func ImagePayload(url string) MessagePayload {
	return MessagePayload{Kind: MessageKindImage, URL: url}
}

func AudioPayload(url string) MessagePayload {
	return MessagePayload{Kind: MessageKindAudio, URL: url}
}

func CallInvitePayload(callKind, room string) MessagePayload {
	return MessagePayload{Kind: MessageKindCallInvite, CallKind: callKind, CallRoom: room}
}

// Validate checks the variant invariant: the fields required by Kind are
// present and no unknown kind sneaks through the wire.
func (p MessagePayload) Validate() error {
	switch p.Kind {
	case MessageKindText:
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: empty text", ErrInvalidPayload)
		}
	case MessageKindImage, MessageKindAudio:
		if !validMediaURL(p.URL) {
			return fmt.Errorf("%w: missing media url", ErrInvalidPayload)
		}
	case MessageKindProfileCard:
		if len(p.Card) == 0 || !json.Valid(p.Card) {
			return fmt.Errorf("%w: malformed profile card", ErrInvalidPayload)
		}
	case MessageKindCallInvite:
		if p.CallKind != CallKindVideo && p.CallKind != CallKindVoice {
			return fmt.Errorf("%w: unknown call kind %q", ErrInvalidPayload, p.CallKind)
		}
		if strings.TrimSpace(p.CallRoom) == "" {
			return fmt.Errorf("%w: missing call room", ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, p.Kind)
	}
	return nil
}

// Preview renders a short plain-text summary for conversation lists.
func (p MessagePayload) Preview() string {
	switch p.Kind {
	case MessageKindText:
		return p.Text
	case MessageKindImage:
		return "\U0001F4F7 Foto"
	case MessageKindAudio:
		return "\U0001F3A4 Áudio"
	case MessageKindProfileCard:
		return "Cartão de perfil"
	case MessageKindCallInvite:
		if p.CallKind == CallKindVoice {
			return "Chamada de voz"
		}
		return "Chamada de vídeo"
	default:
		return ""
	}
}

// ParseLegacyBody converts the old string-prefix convention
// ("[image:URL]", "[audio:URL]", "[profile-card:JSON]", "[video-call:ROOM]",
// "[audio-call:ROOM]") into a typed payload. Anything else is plain text.
func ParseLegacyBody(body string) MessagePayload {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		inner := trimmed[1 : len(trimmed)-1]
		if tag, rest, ok := strings.Cut(inner, ":"); ok {
			rest = strings.TrimSpace(rest)
			switch strings.ToLower(strings.TrimSpace(tag)) {
			case "image":
				if validMediaURL(rest) {
					return ImagePayload(rest)
				}
			case "audio":
				if validMediaURL(rest) {
					return AudioPayload(rest)
				}
			case "profile-card":
				if json.Valid([]byte(rest)) {
					return MessagePayload{Kind: MessageKindProfileCard, Card: json.RawMessage(rest)}
				}
			case "video-call":
				if rest != "" {
					return CallInvitePayload(CallKindVideo, rest)
				}
			case "audio-call", "voice-call":
				if rest != "" {
					return CallInvitePayload(CallKindVoice, rest)
				}
			}
		}
	}
	return TextPayload(body)
}

func validMediaURL(raw string) bool {
	value := strings.TrimSpace(raw)
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
