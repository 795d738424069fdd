// Package realtime exposes the hub's channels as long-lived WebSocket
// streams. One socket carries one subscription; clients open as many
// sockets as they need.
package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/events"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// TokenValidator checks the JWT carried in the query string and returns
// the authenticated subject.
type TokenValidator func(token string) (userID, role string, err error)

// client is one WebSocket connection pumping a single hub subscription.
type client struct {
	conn   *websocket.Conn
	sub    *events.Subscription
	logger *zap.Logger
}

// ServeWs upgrades GET /ws?stream=...&token=... to a WebSocket and streams
// matching hub events until the consumer disconnects. Filtered streams
// take their key from lecture_id or lecture_question_id; the activity
// stream takes none.
func ServeWs(hub *events.Hub, logger *zap.Logger, validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		if _, _, err := validate(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		channel := events.Channel(c.Query("stream"))
		if !events.ValidChannel(channel) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stream"})
			return
		}
		key, ok := filterKey(c, channel)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid filter for stream"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		cl := &client{conn: conn, sub: hub.Subscribe(channel, key), logger: logger}
		go cl.writePump()
		cl.readPump()
	}
}

// filterKey extracts the subscription filter for the requested stream.
func filterKey(c *gin.Context, channel events.Channel) (string, bool) {
	switch channel {
	case events.ChannelLectureActivity:
		return "", true
	case events.ChannelLectureUpdated:
		v := c.Query("lecture_id")
		return v, v != ""
	default:
		v := c.Query("lecture_question_id")
		return v, v != ""
	}
}

// readPump only watches for consumer disconnect; subscribers never send
// application messages.
func (c *client) readPump() {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.sub.C:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
