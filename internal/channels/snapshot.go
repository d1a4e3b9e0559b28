package channels

import (
	"context"
	"sync"
	"sync/atomic"
)

type record[T any] struct {
	value   T
	version uint64
}

// Snapshot is a latest-value port. The writer overwrites; readers always get
// the most recently completed publish together with its version, so they can
// tell whether anything new arrived since their last read.
//
// Published values are shared, not copied: a writer must not mutate a value
// after publishing it.
type Snapshot[T any] struct {
	mu      sync.Mutex // orders publishes so versions stay monotonic
	current atomic.Pointer[record[T]]
	changed atomic.Pointer[chan struct{}]
}

// NewSnapshot returns an empty port.
func NewSnapshot[T any]() *Snapshot[T] {
	s := &Snapshot[T]{}
	ch := make(chan struct{})
	s.changed.Store(&ch)
	return s
}

// Publish makes v the current value and returns its version. Versions start
// at 1 and increase by one per publish.
func (s *Snapshot[T]) Publish(v T) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version uint64 = 1
	if prev := s.current.Load(); prev != nil {
		version = prev.version + 1
	}
	s.current.Store(&record[T]{value: v, version: version})

	next := make(chan struct{})
	close(*s.changed.Swap(&next))
	return version
}

// Load returns the current value and version. ok is false before the first
// publish.
func (s *Snapshot[T]) Load() (v T, version uint64, ok bool) {
	r := s.current.Load()
	if r == nil {
		return v, 0, false
	}
	return r.value, r.version, true
}

// Version returns the current version, 0 before the first publish.
func (s *Snapshot[T]) Version() uint64 {
	if r := s.current.Load(); r != nil {
		return r.version
	}
	return 0
}

// Wait blocks until a value newer than version after is available and returns
// it. If ctx ends first it returns ctx.Err().
func (s *Snapshot[T]) Wait(ctx context.Context, after uint64) (T, uint64, error) {
	for {
		// Take the notification channel before checking, so a publish that
		// lands between the check and the select still wakes us.
		ch := *s.changed.Load()
		if r := s.current.Load(); r != nil && r.version > after {
			return r.value, r.version, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, after, ctx.Err()
		}
	}
}
