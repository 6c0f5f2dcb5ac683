package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/middleware"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 2 * pingInterval
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler returns the GET /v1/ws endpoint. Browsers cannot set headers on
// a websocket handshake, so the token comes from the "token" query
// parameter.
func Handler(hub *Hub, resolver middleware.TokenResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			err := apperr.Access("missing token")
			c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
			return
		}
		id, err := resolver.Authenticate(token)
		if err != nil {
			c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{UserID: id.UserID, Conn: conn, Send: make(chan []byte, sendBuffer)}
		hub.Add(client)
		logger.Debug("websocket connected", zap.Int("u_id", id.UserID))

		go writeLoop(client)
		readLoop(client)

		hub.Remove(client)
		logger.Debug("websocket disconnected", zap.Int("u_id", id.UserID))
	}
}

// writeLoop drains Send and keeps the connection alive with pings. It
// closes the connection when Send is closed or a write fails.
func writeLoop(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames; it only exists to notice pongs and
// disconnects.
func readLoop(c *Client) {
	_ = c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
