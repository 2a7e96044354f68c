package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Hub routes frames to connected clients. One client per user; a second
// connection for the same user replaces the first.
type Hub struct {
	clients map[int64]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	direct     chan *directMsg

	// authorize gates conversation subscriptions. Set before Run.
	authorize func(userID, matchID int64) bool

	logger *zap.Logger
}

type broadcastMsg struct {
	matchID       int64
	data          []byte
	excludeUserID int64
}

type directMsg struct {
	userID int64
	data   []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		direct:     make(chan *directMsg, 256),
		logger:     logger,
	}
}

// SetAuthorizer installs the participant check used for subscriptions.
func (h *Hub) SetAuthorizer(fn func(userID, matchID int64) bool) {
	h.authorize = fn
}

// Run is the hub's event loop. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if old, ok := h.clients[client.userID]; ok {
				h.drop(old)
			}
			h.clients[client.userID] = client
			h.logger.Debug("ws client connected",
				zap.Int64("user_id", client.userID),
				zap.Int("total", len(h.clients)))
			h.broadcastPresence(client.userID, "online")

		case client := <-h.unregister:
			if current, ok := h.clients[client.userID]; ok && current == client {
				h.drop(client)
				h.logger.Debug("ws client disconnected",
					zap.Int64("user_id", client.userID),
					zap.Int("total", len(h.clients)))
				h.broadcastPresence(client.userID, "offline")
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				if msg.excludeUserID != 0 && client.userID == msg.excludeUserID {
					continue
				}
				if !client.IsSubscribed(msg.matchID) {
					continue
				}
				h.push(client, msg.data)
			}

		case msg := <-h.direct:
			if client, ok := h.clients[msg.userID]; ok {
				h.push(client, msg.data)
			}
		}
	}
}

// BroadcastToConversation fans an event out to everyone subscribed to the
// match, optionally skipping the sender.
func (h *Hub) BroadcastToConversation(matchID int64, event *Event, excludeUserID int64) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("ws marshal failed", zap.Error(err))
		return
	}
	h.broadcast <- &broadcastMsg{matchID: matchID, data: data, excludeUserID: excludeUserID}
}

func (h *Hub) SendToUser(userID int64, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.direct <- &directMsg{userID: userID, data: data}
}

func (h *Hub) handleTyping(sender *Client, event *Event) {
	if event.Type != EventTypeTypingStart {
		// typing.stop is timeout-driven on the client side
		return
	}
	evt, err := NewEvent(EventTypeTyping, event.MatchID, TypingPayload{UserID: sender.userID})
	if err != nil {
		return
	}
	h.BroadcastToConversation(event.MatchID, evt, sender.userID)
}

func (h *Hub) broadcastPresence(userID int64, status string) {
	evt, err := NewEvent(EventTypePresence, 0, PresencePayload{UserID: userID, Status: status})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		if client.userID == userID {
			continue
		}
		h.push(client, data)
	}
}

func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Slow consumer; drop the connection rather than block the hub.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client.userID]; ok && h.clients[client.userID] == client {
		delete(h.clients, client.userID)
	}
	close(client.send)
	close(client.done)
}
