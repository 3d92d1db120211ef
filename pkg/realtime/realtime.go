// Package realtime fans out snapshot events to in-process listeners such as
// websocket sessions.
//
// Delivery is best effort: a listener whose buffer is full misses that event
// and nothing else slows down. There is no replay; a new listener asks for
// the current status instead.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/itemsearch/pkg/engine"
)

// SnapshotEvent describes a published engine snapshot.
type SnapshotEvent struct {
	ID         string    `json:"id"`
	BuiltAt    time.Time `json:"built_at"`
	OwnedItems int       `json:"owned_items"`
	Keys       int       `json:"keys"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Event is the envelope sent to listeners. Type is "snapshot" or "error".
type Event struct {
	Type     string         `json:"type"`
	Snapshot *SnapshotEvent `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewSnapshotEvent summarizes snap.
func NewSnapshotEvent(snap *engine.Snapshot) SnapshotEvent {
	ev := SnapshotEvent{
		ID:         snap.ID,
		BuiltAt:    snap.BuiltAt,
		OwnedItems: snap.Owned.Instances(),
		Keys:       snap.Owned.Keys(),
	}
	for _, w := range snap.Warnings {
		ev.Warnings = append(ev.Warnings, w.String())
	}
	return ev
}

// RefreshEvent wraps the outcome of a refresh.
func RefreshEvent(snap *engine.Snapshot, err error) Event {
	if err != nil {
		return Event{Type: "error", Error: err.Error()}
	}
	ev := NewSnapshotEvent(snap)
	return Event{Type: "snapshot", Snapshot: &ev}
}

// Hub is a concurrency-safe fan-out dispatcher. Each listener has its own
// buffered channel.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub creates a hub with the given per-listener buffer, 32 when bufSize
// is not positive.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a listener. Callers must Unregister the returned id.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes a listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers ev to every listener with room for it.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
