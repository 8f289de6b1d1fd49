package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

const (
	ActionActivity = "activity"
	ActionPong     = "pong"
	ActionError    = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

func encode(action string, payload any) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}

// NewActivityMessage wraps an activity entry for subscribers.
func NewActivityMessage(event any) []byte {
	return encode(ActionActivity, event)
}

// NewPongMessage answers a client ping.
func NewPongMessage() []byte {
	return encode(ActionPong, nil)
}

// NewErrorMessage reports a problem with a client's message.
func NewErrorMessage(message string) []byte {
	return encode(ActionError, map[string]string{"error": message})
}
