// Package channels holds the fixed-topology messaging primitives that carry
// data between kernel threads: a bounded single-producer ring, a latest-value
// snapshot port, and a key-coalescing control queue.
package channels

import (
	"context"
	"runtime"
	"sync/atomic"
)

// FullPolicy decides what Push does when the ring is full.
type FullPolicy uint8

const (
	// Overwrite drops the oldest queued item to make room.
	Overwrite FullPolicy = iota
	// Block makes the producer wait for the consumer.
	Block
)

func (p FullPolicy) String() string {
	if p == Block {
		return "block"
	}
	return "overwrite"
}

// WaitStrategy decides how a consumer waits on an empty ring.
type WaitStrategy uint8

const (
	// Park blocks the consumer until the producer signals.
	Park WaitStrategy = iota
	// Spin keeps the consumer running, yielding the processor between checks.
	Spin
)

const cacheLine = 64

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Ring is a bounded FIFO for exactly one producer and one consumer.
//
// Each slot carries a sequence number: a producer may fill the slot at
// position p only when its sequence is p, and a consumer may take it only when
// its sequence is p+1. Because consumers claim slots with a CAS on head, the
// producer can itself discard the oldest item under the Overwrite policy
// without racing the consumer over the same slot.
type Ring[T any] struct {
	head atomic.Uint64
	_    [cacheLine - 8]byte
	tail atomic.Uint64
	_    [cacheLine - 8]byte

	slots    []slot[T]
	mask     uint64
	policy   FullPolicy
	strategy WaitStrategy
	dropped  atomic.Uint64

	notEmpty chan struct{}
	notFull  chan struct{}
}

// NewRing creates a ring holding at least capacity items; the capacity is
// rounded up to a power of two. It panics if capacity is not positive.
func NewRing[T any](capacity int, policy FullPolicy, strategy WaitStrategy) *Ring[T] {
	if capacity <= 0 {
		panic("channels: ring capacity must be positive")
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	r := &Ring[T]{
		slots:    make([]slot[T], size),
		mask:     size - 1,
		policy:   policy,
		strategy: strategy,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }

// Len returns the number of queued items. It is a snapshot and may be stale
// by the time it is used.
func (r *Ring[T]) Len() int {
	tail, head := r.tail.Load(), r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Dropped returns how many items the Overwrite policy has discarded.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }

// Policy returns the full-queue policy fixed at construction.
func (r *Ring[T]) Policy() FullPolicy { return r.policy }

// TryPush enqueues v if there is room and reports whether it did. It never
// overwrites, regardless of policy. Producer side only.
func (r *Ring[T]) TryPush(v T) bool {
	if !r.enqueue(v) {
		return false
	}
	signal(r.notEmpty)
	return true
}

// Push enqueues v according to the ring's full policy. With Overwrite it never
// blocks and always returns nil. With Block it waits for room and returns
// ctx.Err() if ctx ends first. Producer side only.
func (r *Ring[T]) Push(ctx context.Context, v T) error {
	for {
		if r.enqueue(v) {
			signal(r.notEmpty)
			return nil
		}
		if r.policy == Overwrite {
			if r.tail.Load()-r.head.Load() < uint64(len(r.slots)) {
				// A consumer claimed the oldest slot and is still reading it.
				runtime.Gosched()
				continue
			}
			if _, ok := r.dequeue(); ok {
				r.dropped.Add(1)
			}
			continue
		}
		select {
		case <-r.notFull:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryPop dequeues the oldest item if one is available. Consumer side only.
func (r *Ring[T]) TryPop() (T, bool) {
	v, ok := r.dequeue()
	if ok {
		signal(r.notFull)
	}
	return v, ok
}

// Pop waits for an item using the ring's wait strategy and returns ctx.Err()
// if ctx ends first. Consumer side only.
func (r *Ring[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := r.TryPop(); ok {
			return v, nil
		}
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		if r.strategy == Spin {
			runtime.Gosched()
			continue
		}
		select {
		case <-r.notEmpty:
		case <-ctx.Done():
		}
	}
}

// DrainLatest empties the ring and returns only the newest item, along with
// how many items were taken in total. Older items are discarded.
func (r *Ring[T]) DrainLatest() (latest T, n int) {
	for {
		v, ok := r.dequeue()
		if !ok {
			break
		}
		latest = v
		n++
	}
	if n > 0 {
		signal(r.notFull)
	}
	return latest, n
}

func (r *Ring[T]) enqueue(v T) bool {
	pos := r.tail.Load()
	s := &r.slots[pos&r.mask]
	if s.seq.Load() != pos {
		return false
	}
	s.val = v
	s.seq.Store(pos + 1)
	r.tail.Store(pos + 1)
	return true
}

func (r *Ring[T]) dequeue() (T, bool) {
	var zero T
	for {
		pos := r.head.Load()
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()
		switch {
		case seq == pos+1:
			if r.head.CompareAndSwap(pos, pos+1) {
				v := s.val
				s.val = zero
				s.seq.Store(pos + r.mask + 1)
				return v, true
			}
		case seq < pos+1:
			return zero, false
		}
		// Lost the claim to the other side; reload head and retry.
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
