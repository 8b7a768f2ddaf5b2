package server

import (
	"sync"

	"github.com/orchestraai/orchestra/internal/conversation"
)

// Broadcaster fans every new turn out to all attached observers. Delivery is
// best-effort and at-most-once per observer per turn: there is no replay
// queue, but a newly attached observer receives a bounded backlog of the most
// recent turns as a catch-up burst. Thread-safe.
type Broadcaster struct {
	mu      sync.Mutex
	backlog []conversation.Turn
	maxLog  int
	clients map[uint64]chan conversation.Turn
	nextID  uint64
	closed  bool
	doneCh  chan struct{} // closed only on Close(), not on slow-client drops
}

const defaultBacklog = 50

// NewBroadcaster creates a Broadcaster keeping up to backlog turns for
// catch-up bursts.
func NewBroadcaster(backlog int) *Broadcaster {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	return &Broadcaster{
		maxLog:  backlog,
		clients: make(map[uint64]chan conversation.Turn),
		doneCh:  make(chan struct{}),
	}
}

// Publish delivers a turn to every observer. Observers whose delivery fails
// (full channel, i.e. a client that stopped draining) are removed after the
// pass completes, not during iteration.
func (b *Broadcaster) Publish(t conversation.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.backlog = append(b.backlog, t)
	if len(b.backlog) > b.maxLog {
		b.backlog = b.backlog[len(b.backlog)-b.maxLog:]
	}

	var failed []uint64
	for id, ch := range b.clients {
		select {
		case ch <- t:
		default:
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		close(b.clients[id])
		delete(b.clients, id)
	}
}

// Subscribe attaches an observer. The returned channel first replays the
// catch-up backlog, then receives live turns. The done channel is closed only
// when the broadcaster itself closes; the unsubscribe function detaches the
// observer.
func (b *Broadcaster) Subscribe() (<-chan conversation.Turn, <-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Sized to hold the whole backlog plus live headroom, so the replay below
	// never blocks while holding the mutex.
	ch := make(chan conversation.Turn, len(b.backlog)+256)
	id := b.nextID
	b.nextID++

	for _, t := range b.backlog {
		ch <- t
	}

	if b.closed {
		close(ch)
		return ch, b.doneCh, func() {}
	}

	b.clients[id] = ch
	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[id]; ok {
			delete(b.clients, id)
			close(ch)
		}
	}
	return ch, b.doneCh, unsub
}

// Observers returns the number of currently attached observers.
func (b *Broadcaster) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close detaches every observer and stops further publishing.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.doneCh)
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}
