package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a websocket connection following one project's activity.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	ProjectID string
	UserID    string

	// Buffered channel of outbound messages. Only the hub sends on and
	// closes it.
	Send chan []byte

	// Direct answers to this client's own messages; never closed.
	replies chan []byte
}

// NewClient creates a client for conn subscribed to projectID.
func NewClient(hub *Hub, conn *websocket.Conn, projectID, userID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		ProjectID: projectID,
		UserID:    userID,
		Send:      make(chan []byte, 32),
		replies:   make(chan []byte, 8),
	}
}

// Reply queues message for this client only. It reports false when the
// queue is full.
func (c *Client) Reply(message []byte) bool {
	select {
	case c.replies <- message:
		return true
	default:
		return false
	}
}

// ReadPump reads messages from the connection until it fails, handing each
// one to onMessage. It unregisters the client on return.
func (c *Client) ReadPump(onMessage func(*Client, []byte)) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("project_id", c.ProjectID).Msg("Websocket closed unexpectedly")
			}
			return
		}
		if onMessage != nil {
			onMessage(c, message)
		}
	}
}

// WritePump writes queued messages and keepalive pings to the connection
// until Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case message := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
