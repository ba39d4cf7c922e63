package runtime

import (
	"sync"

	"github.com/aretw0/formwork/pkg/domain"
)

type listener struct {
	id uint64
	fn func(domain.State)
}

// broadcaster delivers state snapshots to listeners in the order they were
// published. Whoever finds the queue idle drains it; a listener that mutates
// the form re-enters publish and its snapshot is delivered by the running
// drain after the current one, never recursively.
type broadcaster struct {
	mu        sync.Mutex
	queue     []domain.State
	draining  bool
	listeners []listener
	nextID    uint64
}

func (b *broadcaster) active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners) > 0
}

func (b *broadcaster) subscribe(fn func(domain.State)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, l := range b.listeners {
				if l.id == id {
					b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// enqueue records a snapshot. The engine calls it with its own lock held so
// queue order equals mutation order.
func (b *broadcaster) enqueue(s domain.State) {
	b.mu.Lock()
	b.queue = append(b.queue, s)
	b.mu.Unlock()
}

// drain delivers queued snapshots. It must be called without the engine lock.
func (b *broadcaster) drain() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true

	for len(b.queue) > 0 {
		s := b.queue[0]
		b.queue = b.queue[1:]
		ls := append([]listener(nil), b.listeners...)
		b.mu.Unlock()

		for _, l := range ls {
			l.fn(s)
		}

		b.mu.Lock()
	}

	b.draining = false
	b.mu.Unlock()
}
