package scene

import "time"

// Body is one simulated point mass.
type Body struct {
	ID       int
	Position Vec3
	Velocity Vec3
}

// Snapshot is the scene as of one completed simulation frame. A published
// snapshot is never modified.
type Snapshot struct {
	Frame uint64
	Time  time.Time
	// Input is the id of the last input frame applied before publishing.
	Input  uint64
	Bodies []Body
}

// World is the mutable scene owned by the simulation thread.
type World struct {
	bodies []Body
}

// NewWorld creates a world with n bodies spread evenly on a unit circle.
func NewWorld(n int) *World {
	w := &World{bodies: make([]Body, n)}
	for i := range w.bodies {
		w.bodies[i] = Body{ID: i, Position: ring(i, n)}
	}
	return w
}

// Bodies returns the live body slice. Callers on the simulation thread may
// modify the elements in place.
func (w *World) Bodies() []Body { return w.bodies }

// Snapshot copies the world into an immutable snapshot.
func (w *World) Snapshot(frame uint64, at time.Time, input uint64) Snapshot {
	bodies := make([]Body, len(w.bodies))
	copy(bodies, w.bodies)
	return Snapshot{Frame: frame, Time: at, Input: input, Bodies: bodies}
}

// Current is the snapshot the presentation thread is drawing this frame.
type Current struct {
	snap    Snapshot
	version uint64
}

// Set replaces the current snapshot.
func (c *Current) Set(s Snapshot, version uint64) {
	c.snap, c.version = s, version
}

// Snapshot returns the current snapshot.
func (c *Current) Snapshot() Snapshot { return c.snap }

// Version returns the port version the current snapshot was read at, 0 if
// none has arrived yet.
func (c *Current) Version() uint64 { return c.version }
