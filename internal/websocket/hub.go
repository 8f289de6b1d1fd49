package websocket

import "github.com/rs/zerolog/log"

type publication struct {
	projectID string
	message   []byte
}

type eviction struct {
	projectID string
	userID    string
}

// Hub maintains the active clients grouped by the project they follow. All
// maps are owned by the Run goroutine.
type Hub struct {
	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	publish chan publication
	evict   chan eviction
	done    chan struct{}

	// A map of project IDs to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan publication, 64),
		evict:         make(chan eviction),
		done:          make(chan struct{}),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.subscriptions[client.ProjectID] == nil {
				h.subscriptions[client.ProjectID] = make(map[*Client]bool)
			}
			h.subscriptions[client.ProjectID][client] = true
			log.Debug().Str("project_id", client.ProjectID).Int("subscribers", len(h.subscriptions[client.ProjectID])).Msg("Client subscribed")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Debug().Str("project_id", client.ProjectID).Msg("Client unsubscribed")
			}
		case p := <-h.publish:
			for client := range h.subscriptions[p.projectID] {
				select {
				case client.Send <- p.message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					h.remove(client)
				}
			}
		case e := <-h.evict:
			n := 0
			for client := range h.subscriptions[e.projectID] {
				if e.userID == "" || client.UserID == e.userID {
					h.remove(client)
					n++
				}
			}
			if n > 0 {
				log.Debug().Str("project_id", e.projectID).Str("user_id", e.userID).Int("clients", n).Msg("Clients evicted")
			}
		case <-h.done:
			for _, subs := range h.subscriptions {
				for client := range subs {
					h.remove(client)
				}
			}
			return
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastTo queues message for every client subscribed to projectID.
// It never blocks the caller; messages are dropped when the hub is saturated.
func (h *Hub) BroadcastTo(projectID string, message []byte) {
	select {
	case h.publish <- publication{projectID: projectID, message: message}:
	case <-h.done:
	default:
		log.Warn().Str("project_id", projectID).Msg("Websocket hub saturated, dropping message")
	}
}

// Evict disconnects the clients of userID following projectID, or all of
// the project's clients when userID is empty. Their send channels are
// closed, which ends their write pumps.
func (h *Hub) Evict(projectID, userID string) {
	select {
	case h.evict <- eviction{projectID: projectID, userID: userID}:
	case <-h.done:
	}
}

// Subscribe registers client with the hub. It reports false when the hub
// has stopped.
func (h *Hub) Subscribe(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) bool {
	subs, ok := h.subscriptions[client.ProjectID]
	if !ok || !subs[client] {
		return false
	}
	delete(subs, client)
	close(client.Send)
	if len(subs) == 0 {
		delete(h.subscriptions, client.ProjectID)
	}
	return true
}
