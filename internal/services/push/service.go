package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

var (
	ErrValidation    = errors.New("push: invalid input")
	ErrEmptyAudience = errors.New("push: campaign audience is empty")
)

// multicastBatch is the FCM hard limit on tokens per multicast request.
const multicastBatch = 500

type TokenStore interface {
	Subscribe(ctx context.Context, userID int64, token, platform string, now time.Time) error
	DeleteToken(ctx context.Context, token string) error
	TokensForUser(ctx context.Context, userID int64) ([]string, error)
	CountAudience(ctx context.Context, a model.CampaignAudience) (int, error)
	AudienceTokens(ctx context.Context, a model.CampaignAudience) ([]string, error)
}

// Messenger is the slice of the FCM client the service needs.
// *messaging.Client satisfies it.
type Messenger interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Dependencies struct {
	Tokens    TokenStore
	Messenger Messenger
	Logger    *zap.Logger
}

type Config struct {
	// DryRun skips FCM delivery while keeping audience accounting,
	// useful in local stacks without Firebase credentials.
	DryRun bool
}

type Service struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{deps: deps, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) RegisterToken(ctx context.Context, userID int64, token, platform string) error {
	if s.deps.Tokens == nil {
		return fmt.Errorf("push: token store is not configured")
	}
	if userID <= 0 || strings.TrimSpace(token) == "" {
		return ErrValidation
	}
	return s.deps.Tokens.Subscribe(ctx, userID, token, platform, s.now())
}

func (s *Service) Unregister(ctx context.Context, token string) error {
	if s.deps.Tokens == nil {
		return fmt.Errorf("push: token store is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return ErrValidation
	}
	return s.deps.Tokens.DeleteToken(ctx, token)
}

// Audience returns how many users a campaign selection would reach.
func (s *Service) Audience(ctx context.Context, a model.CampaignAudience) (int, error) {
	if s.deps.Tokens == nil {
		return 0, fmt.Errorf("push: token store is not configured")
	}
	return s.deps.Tokens.CountAudience(ctx, a)
}

type Campaign struct {
	Title     string
	Body      string
	TargetURL string
	Audience  model.CampaignAudience
}

// SendCampaign counts the audience first and rejects empty selections
// before anything is handed to FCM.
func (s *Service) SendCampaign(ctx context.Context, c Campaign) (model.CampaignResult, error) {
	if s.deps.Tokens == nil {
		return model.CampaignResult{}, fmt.Errorf("push: token store is not configured")
	}
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Body) == "" {
		return model.CampaignResult{}, ErrValidation
	}

	count, err := s.deps.Tokens.CountAudience(ctx, c.Audience)
	if err != nil {
		return model.CampaignResult{}, err
	}
	if count == 0 {
		return model.CampaignResult{}, ErrEmptyAudience
	}

	tokens, err := s.deps.Tokens.AudienceTokens(ctx, c.Audience)
	if err != nil {
		return model.CampaignResult{}, err
	}
	if len(tokens) == 0 {
		return model.CampaignResult{}, ErrEmptyAudience
	}

	data := map[string]string{"type": "campaign"}
	if u := strings.TrimSpace(c.TargetURL); u != "" {
		data["url"] = u
	}

	delivered, failed := s.dispatch(ctx, tokens, c.Title, c.Body, data)
	return model.CampaignResult{Audience: count, Delivered: delivered, Failed: failed}, nil
}

// NotifyMatch tells both sides of a fresh mutual like.
func (s *Service) NotifyMatch(ctx context.Context, match model.Match) {
	data := map[string]string{"type": "match.new", "match_id": fmt.Sprintf("%d", match.ID)}
	for _, uid := range []int64{match.UserAID, match.UserBID} {
		s.sendToUser(ctx, uid, "Novo match!", "Vocês combinaram. Comece a conversa.", data)
	}
}

// NotifyNewMessage pushes to everyone in recipients, normally the one
// participant who did not author the message.
func (s *Service) NotifyNewMessage(msg model.Message, recipients []int64) {
	ctx := context.Background()
	data := map[string]string{
		"type":     "message.new",
		"match_id": fmt.Sprintf("%d", msg.MatchID),
	}
	body := msg.Payload.Preview()
	for _, uid := range recipients {
		s.sendToUser(ctx, uid, "Nova mensagem", body, data)
	}
}

// NotifyMessagesRead is part of the chat notifier surface; read receipts
// travel over the websocket only, so push stays quiet.
func (s *Service) NotifyMessagesRead(matchID, readerUserID int64, messageIDs []string, recipients []int64) {
}

func (s *Service) sendToUser(ctx context.Context, userID int64, title, body string, data map[string]string) {
	if s.deps.Tokens == nil || userID <= 0 {
		return
	}
	tokens, err := s.deps.Tokens.TokensForUser(ctx, userID)
	if err != nil {
		s.deps.Logger.Warn("push tokens lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	s.dispatch(ctx, tokens, title, body, data)
}

func (s *Service) dispatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (delivered, failed int) {
	if s.cfg.DryRun || s.deps.Messenger == nil {
		return len(tokens), 0
	}

	for start := 0; start < len(tokens); start += multicastBatch {
		end := start + multicastBatch
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		resp, err := s.deps.Messenger.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: &messaging.Notification{Title: title, Body: body},
			Data:         data,
		})
		if err != nil {
			s.deps.Logger.Warn("fcm multicast failed", zap.Int("tokens", len(batch)), zap.Error(err))
			failed += len(batch)
			continue
		}
		delivered += resp.SuccessCount
		failed += resp.FailureCount
		s.pruneDead(ctx, batch, resp)
	}
	return delivered, failed
}

// pruneDead drops tokens FCM reports as no longer registered.
func (s *Service) pruneDead(ctx context.Context, batch []string, resp *messaging.BatchResponse) {
	for i, r := range resp.Responses {
		if r == nil || r.Error == nil || i >= len(batch) {
			continue
		}
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			if err := s.deps.Tokens.DeleteToken(ctx, batch[i]); err != nil {
				s.deps.Logger.Warn("prune push token failed", zap.Error(err))
			}
		}
	}
}
