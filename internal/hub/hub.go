package hub

import (
	"encoding/json"
	"sync"

	"moodiary/backend/internal/logger"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single open event stream of a user.
// It's essentially a channel that the SSE handler will listen to.
type Client chan []byte

// ClientBuffer is the channel capacity handed out by NewClient.
const ClientBuffer = 16

func NewClient() Client {
	return make(Client, ClientBuffer)
}

// Hub fans relationship events out to every open stream of a user.
type Hub struct {
	users map[uint]map[Client]bool
	mu    sync.RWMutex
	log   *logger.Logger
}

// NewHub creates a new Hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		users: make(map[uint]map[Client]bool),
		log:   log.With("component", "hub"),
	}
}

// Subscribe registers a stream for userID.
func (h *Hub) Subscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
}

// Unsubscribe removes a stream and closes it so the SSE handler stops.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Publish sends an event to every stream of userID.
func (h *Hub) Publish(userID uint, eventType string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return
	}
	messageBytes, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.log.Warn("event marshal failed", "type", eventType, "error", err)
		return
	}
	for client := range clients {
		// Non-blocking: a slow stream drops events instead of stalling the publisher.
		select {
		case client <- messageBytes:
		default:
			h.log.Debug("event dropped for slow client", "user_id", userID, "type", eventType)
		}
	}
}

// Subscribers reports how many streams userID has open.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
