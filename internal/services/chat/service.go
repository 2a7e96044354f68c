package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchEnded        = errors.New("match is no longer active")
	ErrBlocked           = errors.New("conversation is blocked")
	ErrTargetUnavailable = errors.New("target user is unavailable")
)

type MessageStore interface {
	Insert(ctx context.Context, msg model.Message) (model.Message, bool, error)
	ListByMatch(ctx context.Context, matchID int64, before time.Time, beforeID string, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, matchID, readerUserID int64, at time.Time) ([]string, error)
}

type MatchStore interface {
	GetByID(ctx context.Context, matchID int64) (model.Match, error)
	CreateIfMissing(ctx context.Context, tx pgx.Tx, userID, targetID int64, direct bool, now time.Time) (model.Match, bool, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type BlockStore interface {
	Exists(ctx context.Context, userA, userB int64) (bool, error)
}

// Gate checks tier-locked features; denials carry upgrade plan metadata.
type Gate interface {
	Require(ctx context.Context, userID int64, feature entitlements.Feature) (entitlements.Snapshot, error)
}

// Notifier broadcasts realtime chat events to connected clients.
type Notifier interface {
	NotifyNewMessage(msg model.Message, recipients []int64)
	NotifyMessagesRead(matchID, readerUserID int64, messageIDs []string, recipients []int64)
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Messages MessageStore
	Matches  MatchStore
	Profiles ProfileStore
	Users    UserStore
	Blocks   BlockStore
	Gate     Gate
}

type Service struct {
	deps     Dependencies
	notifier Notifier
	now      func() time.Time
}

// SendInput is a client message. Either the typed payload fields or the
// legacy Body are set; Body is normalized to the typed form on receipt.
type SendInput struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Card     []byte `json:"card"`
	CallKind string `json:"call_kind"`
	CallRoom string `json:"call_room"`
	Body     string `json:"body"`
}

type SendResult struct {
	Message model.Message `json:"message"`
	Replay  bool          `json:"replay"`
}

func NewService(deps Dependencies) *Service {
	return &Service{
		deps: deps,
		now:  time.Now,
	}
}

// SetNotifier attaches the realtime broadcaster. Optional: without it, chat
// still persists and clients catch up by polling.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Send delivers a message into an existing conversation. Resends of the same
// client id collapse onto the first delivery.
func (s *Service) Send(ctx context.Context, senderID, matchID int64, input SendInput) (SendResult, error) {
	if senderID <= 0 || matchID <= 0 {
		return SendResult{}, ErrValidation
	}
	if s.deps.Messages == nil || s.deps.Matches == nil {
		return SendResult{}, fmt.Errorf("chat dependencies are not configured")
	}

	match, err := s.loadParticipantMatch(ctx, senderID, matchID)
	if err != nil {
		return SendResult{}, err
	}
	if !match.Active() {
		return SendResult{}, ErrMatchEnded
	}

	return s.deliver(ctx, senderID, match, input)
}

// SendDirect opens a conversation with a user the sender has not matched
// with. Gated: only tiers with unsolicited messaging may do this. The
// conversation is backed by a direct match so the usual chat flow applies.
func (s *Service) SendDirect(ctx context.Context, senderID, targetUserID int64, input SendInput) (SendResult, error) {
	if senderID <= 0 || targetUserID <= 0 || senderID == targetUserID {
		return SendResult{}, ErrValidation
	}
	if s.deps.Gate == nil {
		return SendResult{}, fmt.Errorf("chat dependencies are not configured")
	}
	if _, err := s.deps.Gate.Require(ctx, senderID, entitlements.FeatureUnsolicitedMessages); err != nil {
		return SendResult{}, err
	}
	if s.deps.Pool == nil || s.deps.Messages == nil || s.deps.Matches == nil {
		return SendResult{}, fmt.Errorf("chat dependencies are not configured")
	}

	if s.deps.Users != nil {
		target, err := s.deps.Users.GetByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return SendResult{}, ErrTargetUnavailable
			}
			return SendResult{}, err
		}
		if target.Suspended {
			return SendResult{}, ErrTargetUnavailable
		}
	}

	if s.deps.Blocks != nil {
		blocked, err := s.deps.Blocks.Exists(ctx, senderID, targetUserID)
		if err != nil {
			return SendResult{}, err
		}
		if blocked {
			return SendResult{}, ErrBlocked
		}
	}

	var match model.Match
	if err := pgrepo.WithTx(ctx, s.deps.Pool, func(txCtx context.Context, tx pgx.Tx) error {
		row, _, err := s.deps.Matches.CreateIfMissing(txCtx, tx, senderID, targetUserID, true, s.now().UTC())
		if err != nil {
			return err
		}
		match = row
		return nil
	}); err != nil {
		return SendResult{}, err
	}
	if !match.Active() {
		return SendResult{}, ErrMatchEnded
	}

	return s.deliver(ctx, senderID, match, input)
}

// List pages a conversation backwards from the cursor, newest first.
func (s *Service) List(ctx context.Context, userID, matchID int64, before time.Time, beforeID string, limit int) ([]model.Message, error) {
	if userID <= 0 || matchID <= 0 {
		return nil, ErrValidation
	}
	if s.deps.Messages == nil || s.deps.Matches == nil {
		return nil, fmt.Errorf("chat dependencies are not configured")
	}

	if _, err := s.loadParticipantMatch(ctx, userID, matchID); err != nil {
		return nil, err
	}

	return s.deps.Messages.ListByMatch(ctx, matchID, before, beforeID, limit)
}

// MarkRead stamps the other side's unread messages. Readers who turned read
// receipts off are skipped entirely, so their reads never leak.
func (s *Service) MarkRead(ctx context.Context, readerUserID, matchID int64) ([]string, error) {
	if readerUserID <= 0 || matchID <= 0 {
		return nil, ErrValidation
	}
	if s.deps.Messages == nil || s.deps.Matches == nil {
		return nil, fmt.Errorf("chat dependencies are not configured")
	}

	match, err := s.loadParticipantMatch(ctx, readerUserID, matchID)
	if err != nil {
		return nil, err
	}

	if s.deps.Profiles != nil {
		profile, err := s.deps.Profiles.Get(ctx, readerUserID)
		if err != nil && !errors.Is(err, pgrepo.ErrProfileNotFound) {
			return nil, err
		}
		if err == nil && !profile.ReadReceiptsEnabled {
			return nil, nil
		}
	}

	ids, err := s.deps.Messages.MarkRead(ctx, matchID, readerUserID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 && s.notifier != nil {
		s.notifier.NotifyMessagesRead(matchID, readerUserID, ids, []int64{match.OtherUser(readerUserID)})
	}

	return ids, nil
}

// StartCall sends a call invite into the conversation. The room id travels
// in-band so both clients join the same meeting room.
func (s *Service) StartCall(ctx context.Context, senderID, matchID int64, callKind string) (SendResult, error) {
	kind := strings.ToLower(strings.TrimSpace(callKind))
	switch kind {
	case model.CallKindVideo, model.CallKindVoice:
	case "audio":
		kind = model.CallKindVoice
	default:
		return SendResult{}, fmt.Errorf("%w: unknown call kind %q", ErrValidation, callKind)
	}

	room := fmt.Sprintf("ecf-%d-%s", matchID, uuid.NewString())
	return s.Send(ctx, senderID, matchID, SendInput{
		Kind:     string(model.MessageKindCallInvite),
		CallKind: kind,
		CallRoom: room,
	})
}

func (s *Service) deliver(ctx context.Context, senderID int64, match model.Match, input SendInput) (SendResult, error) {
	payload, err := resolvePayload(input)
	if err != nil {
		return SendResult{}, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return SendResult{}, fmt.Errorf("%w: message id must be a uuid", ErrValidation)
	}

	stored, created, err := s.deps.Messages.Insert(ctx, model.Message{
		ID:           id,
		MatchID:      match.ID,
		SenderUserID: senderID,
		Payload:      payload,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return SendResult{}, err
	}

	if created && s.notifier != nil {
		s.notifier.NotifyNewMessage(stored, []int64{match.OtherUser(senderID)})
	}

	return SendResult{Message: stored, Replay: !created}, nil
}

func (s *Service) loadParticipantMatch(ctx context.Context, userID, matchID int64) (model.Match, error) {
	match, err := s.deps.Matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, err
	}
	if !match.HasParticipant(userID) {
		return model.Match{}, ErrMatchNotFound
	}
	return match, nil
}

// resolvePayload builds the typed payload from the input, normalizing the
// legacy string-prefix body when no explicit kind is given.
func resolvePayload(input SendInput) (model.MessagePayload, error) {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		if strings.TrimSpace(input.Body) == "" {
			return model.MessagePayload{}, fmt.Errorf("%w: empty message", ErrValidation)
		}
		payload := model.ParseLegacyBody(input.Body)
		if err := payload.Validate(); err != nil {
			return model.MessagePayload{}, err
		}
		return payload, nil
	}

	payload := model.MessagePayload{
		Kind:     model.MessageKind(kind),
		Text:     input.Text,
		URL:      input.URL,
		CallKind: strings.ToLower(strings.TrimSpace(input.CallKind)),
		CallRoom: input.CallRoom,
	}
	if len(input.Card) > 0 {
		payload.Card = append([]byte(nil), input.Card...)
	}
	if err := payload.Validate(); err != nil {
		return model.MessagePayload{}, err
	}
	return payload, nil
}
