package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event is a note change notification delivered to a user's open clients.
// It carries no note content; clients refetch on receipt, so the backing
// store stays the source of truth.
type Event struct {
	Type   string `json:"type"` // "note.created", "note.updated", "note.deleted"
	NoteID string `json:"note_id"`
}

const (
	NoteCreated = "note.created"
	NoteUpdated = "note.updated"
	NoteDeleted = "note.deleted"
)

// Hub is an in-process per-user publish/subscribe fanout. Slow
// subscribers drop events rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener for a user's note events. The returned
// channel is closed by Unsubscribe.
func (h *Hub) Subscribe(userID uuid.UUID) chan Event {
	ch := make(chan Event, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}

	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(userID uuid.UUID, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[userID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subs, userID)
		}
	}
}

// Publish delivers an event to all of a user's subscribers
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[userID] {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}

// SubscriberCount reports how many listeners a user has
func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
