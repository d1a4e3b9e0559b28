package channels

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by ControlQueue.Enqueue when a new key arrives and
// every slot is taken.
var ErrQueueFull = errors.New("control queue full")

// ControlQueue is a bounded queue that coalesces entries by key: enqueuing a
// value whose key is already pending replaces the pending value in place
// instead of adding a new entry. The consumer drains in FIFO order of first
// arrival of each distinct key.
//
// Multiple producers may enqueue concurrently; there is one consumer.
type ControlQueue[K comparable, V any] struct {
	mu        sync.Mutex
	keyOf     func(V) K
	order     []K
	pending   map[K]V
	capacity  int
	coalesced uint64
}

// NewControlQueue creates a queue with room for capacity distinct keys. keyOf
// extracts the coalescing key from a value. It panics if capacity is not
// positive or keyOf is nil.
func NewControlQueue[K comparable, V any](capacity int, keyOf func(V) K) *ControlQueue[K, V] {
	if capacity <= 0 {
		panic("channels: control queue capacity must be positive")
	}
	if keyOf == nil {
		panic("channels: control queue needs a key function")
	}
	return &ControlQueue[K, V]{
		keyOf:    keyOf,
		order:    make([]K, 0, capacity),
		pending:  make(map[K]V, capacity),
		capacity: capacity,
	}
}

// Enqueue adds v, or replaces the pending value with the same key.
func (q *ControlQueue[K, V]) Enqueue(v V) error {
	k := q.keyOf(v)

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[k]; exists {
		q.pending[k] = v
		q.coalesced++
		return nil
	}
	if len(q.order) >= q.capacity {
		return ErrQueueFull
	}
	q.order = append(q.order, k)
	q.pending[k] = v
	return nil
}

// TryDequeue removes and returns the oldest pending entry.
func (q *ControlQueue[K, V]) TryDequeue() (V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		var zero V
		return zero, false
	}
	k := q.order[0]
	copy(q.order, q.order[1:])
	q.order = q.order[:len(q.order)-1]

	v := q.pending[k]
	delete(q.pending, k)
	return v, true
}

// Drain removes every pending entry and calls fn for each, oldest first. fn
// runs outside the queue lock, so it may enqueue; such entries are delivered
// on the next drain. It returns the number of entries delivered.
func (q *ControlQueue[K, V]) Drain(fn func(V)) int {
	q.mu.Lock()
	if len(q.order) == 0 {
		q.mu.Unlock()
		return 0
	}
	batch := make([]V, len(q.order))
	for i, k := range q.order {
		batch[i] = q.pending[k]
	}
	q.order = q.order[:0]
	clear(q.pending)
	q.mu.Unlock()

	for _, v := range batch {
		fn(v)
	}
	return len(batch)
}

// Len returns the number of distinct pending keys.
func (q *ControlQueue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Coalesced returns how many enqueues replaced a pending entry.
func (q *ControlQueue[K, V]) Coalesced() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.coalesced
}
