// Package barrier provides the one-shot latches that order startup milestones
// across the three kernel threads.
package barrier

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/tricore/internal/lifecycle"
)

// Milestone names a point in a kernel's startup that other kernels may wait on.
type Milestone uint8

const (
	LoadDone Milestone = iota
	StartDone

	numMilestones = int(StartDone) + 1
)

func (m Milestone) String() string {
	switch m {
	case LoadDone:
		return "load_done"
	case StartDone:
		return "start_done"
	}
	return fmt.Sprintf("milestone(%d)", m)
}

// Latch is a one-shot binary signal. Once set it stays set; waiting on a set
// latch returns immediately.
type Latch struct {
	once sync.Once
	done chan struct{}
}

// NewLatch returns an unset latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Set releases every current and future waiter. Extra calls are no-ops.
func (l *Latch) Set() {
	l.once.Do(func() { close(l.done) })
}

// IsSet reports whether Set has been called.
func (l *Latch) IsSet() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the latch is set.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch is set or ctx is done.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Barrier holds one latch per (role, milestone).
type Barrier struct {
	latches map[lifecycle.Affinity]*[numMilestones]*Latch
}

// New creates a barrier for an application run. Latches belonging to roles
// not in active are created already set, so waiting on a kernel that was never
// launched does not block.
func New(active lifecycle.AffinityMask) *Barrier {
	b := &Barrier{latches: make(map[lifecycle.Affinity]*[numMilestones]*Latch, 3)}
	for _, role := range lifecycle.Affinities() {
		var set [numMilestones]*Latch
		for i := range set {
			set[i] = NewLatch()
			if !active.Has(role) {
				set[i].Set()
			}
		}
		b.latches[role] = &set
	}
	return b
}

// Latch returns the latch for role and milestone. It panics on a role that is
// not one of the three kernel roles.
func (b *Barrier) Latch(role lifecycle.Affinity, m Milestone) *Latch {
	set, ok := b.latches[role]
	if !ok || int(m) >= numMilestones {
		panic(fmt.Sprintf("barrier: no latch for %s/%s", role, m))
	}
	return set[m]
}

// Signal sets the latch for role and milestone.
func (b *Barrier) Signal(role lifecycle.Affinity, m Milestone) {
	b.Latch(role, m).Set()
}

// Wait blocks until role has reached milestone or ctx is done.
func (b *Barrier) Wait(ctx context.Context, role lifecycle.Affinity, m Milestone) error {
	if err := b.Latch(role, m).Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s %s: %w", role, m, err)
	}
	return nil
}

// Reached reports whether role has reached milestone.
func (b *Barrier) Reached(role lifecycle.Affinity, m Milestone) bool {
	return b.Latch(role, m).IsSet()
}
