package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Room names.
const (
	QueueTopic  = "queue"
	orderPrefix = "order:"
)

// Event types pushed to clients.
const (
	EventOrderView = "order.view"
	EventQueueView = "queue.view"
)

// OrderTopic is the room of clients watching one order.
func OrderTopic(orderID int64) string {
	return orderPrefix + strconv.FormatInt(orderID, 10)
}

// ParseOrderTopic is the inverse of OrderTopic.
func ParseOrderTopic(topic string) (int64, bool) {
	if !strings.HasPrefix(topic, orderPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(topic, orderPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// topicEvent is an internal struct for routing events to one room
type topicEvent struct {
	Topic string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *topicEvent

	mu  sync.RWMutex
	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.log.Warn("ws client too slow, dropping", zap.String("topic", client.topic))
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.topic]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.topic)
	}
}

// Broadcast sends an event to every client in a room.
func (h *Hub) Broadcast(topic string, event Event) {
	h.broadcast <- &topicEvent{Topic: topic, Event: event}
}

// BroadcastJSON marshals v as the payload of an event of type eventType.
func (h *Hub) BroadcastJSON(topic, eventType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	h.Broadcast(topic, Event{Type: eventType, Payload: payload})
	return nil
}

// Topics returns the rooms with at least one client whose name starts with
// prefix, sorted.
func (h *Hub) Topics(prefix string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for topic := range h.rooms {
		if strings.HasPrefix(topic, prefix) {
			out = append(out, topic)
		}
	}
	sort.Strings(out)
	return out
}

// WatchedOrders returns the ids of orders that have a watching client.
func (h *Hub) WatchedOrders() []int64 {
	var ids []int64
	for _, topic := range h.Topics(orderPrefix) {
		if id, ok := ParseOrderTopic(topic); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
