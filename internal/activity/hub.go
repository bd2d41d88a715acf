package activity

import "sync"

// Subscriber receives broadcast events for one workspace feed.
type Subscriber interface {
	Send(event Event) error
}

// Hub fans events out to per-workspace feed subscribers.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Subscriber]struct{})}
}

// Subscribe registers a subscriber for a workspace feed.
func (h *Hub) Subscribe(workspaceID string, subscriber Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[workspaceID]
	if !ok {
		room = make(map[Subscriber]struct{})
		h.rooms[workspaceID] = room
	}
	room[subscriber] = struct{}{}
}

// Unsubscribe removes a subscriber; empty rooms are dropped.
func (h *Hub) Unsubscribe(workspaceID string, subscriber Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[workspaceID]
	if !ok {
		return
	}
	delete(room, subscriber)
	if len(room) == 0 {
		delete(h.rooms, workspaceID)
	}
}

// Broadcast delivers an event to every subscriber of its workspace. A failed
// send drops the subscriber from the feed.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	subscribers := make([]Subscriber, 0, len(h.rooms[event.WorkspaceID]))
	for subscriber := range h.rooms[event.WorkspaceID] {
		subscribers = append(subscribers, subscriber)
	}
	h.mu.Unlock()

	for _, subscriber := range subscribers {
		if err := subscriber.Send(event); err != nil {
			h.Unsubscribe(event.WorkspaceID, subscriber)
		}
	}
}

// SubscriberCount reports live subscribers for a workspace feed.
func (h *Hub) SubscriberCount(workspaceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[workspaceID])
}
