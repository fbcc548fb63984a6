package ingest

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans accepted snapshots out to subscribers (the SSE stream
// endpoint, catalog writer, anything watching for refreshes). Superseded
// or failed fetches are never broadcast.
type Broadcaster struct {
	subscribers map[uint64]chan *Snapshot
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *Snapshot),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan *Snapshot) {
	id := b.nextID.Add(1)
	ch := make(chan *Snapshot, 4)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(s *Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- s:
		default:
			// Skip slow subscribers; they will catch the next refresh.
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streaming handlers exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
