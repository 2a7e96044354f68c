package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client is one authenticated websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	logger *zap.Logger

	// subscriptions tracks which conversations this connection listens to.
	subscriptions map[int64]struct{}
	mu            sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		userID:        userID,
		logger:        logger,
		subscriptions: make(map[int64]struct{}),
		send:          make(chan []byte, sendBufSize),
		done:          make(chan struct{}),
	}
}

func (c *Client) IsSubscribed(matchID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[matchID]
	return ok
}

func (c *Client) Subscribe(matchID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[matchID] = struct{}{}
}

func (c *Client) Unsubscribe(matchID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, matchID)
}

// ReadPump consumes frames until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				c.logger.Debug("ws read error", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump flushes the send queue and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeSubscribe:
		matchID, ok := c.conversationID(event)
		if !ok {
			return
		}
		if c.hub.authorize != nil && !c.hub.authorize(c.userID, matchID) {
			c.sendError("FORBIDDEN", "not a participant of this conversation")
			return
		}
		c.Subscribe(matchID)

	case EventTypeUnsubscribe:
		if matchID, ok := c.conversationID(event); ok {
			c.Unsubscribe(matchID)
		}

	case EventTypeTypingStart, EventTypeTypingStop:
		if event.MatchID <= 0 {
			c.sendError("INVALID_PAYLOAD", "match_id required for typing events")
			return
		}
		if !c.IsSubscribed(event.MatchID) {
			c.sendError("FORBIDDEN", "subscribe to the conversation first")
			return
		}
		c.hub.handleTyping(c, event)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) conversationID(event *Event) (int64, bool) {
	if event.MatchID > 0 {
		return event.MatchID, true
	}
	var p ConversationPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.MatchID <= 0 {
		c.sendError("INVALID_PAYLOAD", "match_id is required")
		return 0, false
	}
	return p.MatchID, true
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, 0, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
