package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	ws "github.com/isdelr/uptask-be/internal/websocket"
)

// WebSocketHandler upgrades project members to an activity stream.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. checkOrigin decides
// which browser origins may connect.
func NewWebSocketHandler(hub *ws.Hub, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve handles the WebSocket connection request for the resolved project.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	s := scope(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, s.project.ID, s.user.ID)
	if !h.hub.Subscribe(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(handleIncomingWSMessage)
}

// handleIncomingWSMessage answers keepalive pings; the stream is otherwise
// one way.
func handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("project_id", client.ProjectID).Msg("Error decoding websocket message")
		return
	}

	reply := ws.NewErrorMessage("Acción desconocida: " + msg.Action)
	if msg.Action == "ping" {
		reply = ws.NewPongMessage()
	}
	client.Reply(reply)
}
