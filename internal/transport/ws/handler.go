package ws

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/encontrocomfe/backend/internal/services/auth"
)

type TokenParser interface {
	ParseAccessToken(raw string) (auth.AccessClaims, error)
}

// ServeWS upgrades the request to a websocket. Browsers cannot set headers
// on websocket dials, so the access token travels as ?token=.
func ServeWS(hub *Hub, tokens TokenParser, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.ParseAccessToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Debug("ws accept failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, claims.UserID, logger)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
