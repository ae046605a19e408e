// Package hub provides an in-memory, room-scoped pub/sub layer. Rooms are
// keyed by event ID; every connected live view joins its event's room and
// receives typed change notifications.
package hub

import "sync"

// subscriberBuffer bounds how many undelivered events a slow subscriber can
// hold before further publishes to it are dropped. Dropped events are safe:
// payloads are invalidation signals and clients re-fetch the snapshot.
const subscriberBuffer = 8

// Event is a change notification fanned out to a room.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub is a room registry mapping event IDs to their connected subscribers.
// All methods are safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[chan Event]struct{}
}

// New creates a ready-to-use Hub.
func New() *Hub {
	return &Hub{
		rooms: make(map[string]map[chan Event]struct{}),
	}
}

// Join registers a new subscriber in the event's room and returns its
// channel. The caller must Leave with the same channel on disconnect.
func (h *Hub) Join(eventID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[eventID] == nil {
		h.rooms[eventID] = make(map[chan Event]struct{})
	}
	h.rooms[eventID][ch] = struct{}{}
	return ch
}

// Leave removes a subscriber from the event's room. Empty rooms are cleaned
// up so abandoned events do not accumulate state.
func (h *Hub) Leave(eventID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[eventID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.rooms, eventID)
		}
	}
}

// Publish fans an event out to every subscriber in the room without ever
// blocking: subscribers with full buffers miss the event and resynchronize
// through their next snapshot fetch.
func (h *Hub) Publish(eventID, eventType string, payload any) {
	evt := Event{Type: eventType, Payload: payload}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.rooms[eventID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// RoomSize returns the number of subscribers currently in an event's room.
func (h *Hub) RoomSize(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[eventID])
}
