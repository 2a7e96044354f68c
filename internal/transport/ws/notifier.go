package ws

import (
	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

// HubNotifier adapts the hub to the chat service's notifier surface and can
// chain to a secondary sink (push) for users without an open socket.
type HubNotifier struct {
	hub    *Hub
	logger *zap.Logger
}

func NewHubNotifier(hub *Hub, logger *zap.Logger) *HubNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubNotifier{hub: hub, logger: logger}
}

func (n *HubNotifier) NotifyNewMessage(msg model.Message, recipients []int64) {
	evt, err := NewEvent(EventTypeMessageNew, msg.MatchID, MessageNewPayload{Message: msg})
	if err != nil {
		n.logger.Warn("ws notifier marshal failed", zap.Error(err))
		return
	}
	for _, uid := range recipients {
		n.hub.SendToUser(uid, evt)
	}
}

func (n *HubNotifier) NotifyMessagesRead(matchID, readerUserID int64, messageIDs []string, recipients []int64) {
	evt, err := NewEvent(EventTypeMessageRead, matchID, MessageReadPayload{
		ReaderUserID: readerUserID,
		MessageIDs:   messageIDs,
	})
	if err != nil {
		return
	}
	for _, uid := range recipients {
		n.hub.SendToUser(uid, evt)
	}
}

// NotifyMatch tells both participants about a fresh mutual like.
func (n *HubNotifier) NotifyMatch(match model.Match) {
	for _, uid := range []int64{match.UserAID, match.UserBID} {
		evt, err := NewEvent(EventTypeMatchNew, match.ID, MatchNewPayload{
			MatchID:     match.ID,
			OtherUserID: match.OtherUser(uid),
		})
		if err != nil {
			return
		}
		n.hub.SendToUser(uid, evt)
	}
}
