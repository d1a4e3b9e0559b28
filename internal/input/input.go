// Package input defines the input frames the control thread samples and the
// simulation thread applies.
package input

import (
	"math"
	"time"

	"github.com/specialistvlad/tricore/internal/scene"
)

// Frame is one sample of the input state. IDs increase strictly per
// producer.
type Frame struct {
	ID      uint64
	Time    time.Time
	Move    scene.Vec3
	Buttons uint32
}

// Source produces the raw input state at a point in time.
type Source interface {
	Sample(now time.Time) (move scene.Vec3, buttons uint32)
}

// Idle is a Source that never moves.
type Idle struct{}

func (Idle) Sample(time.Time) (scene.Vec3, uint32) { return scene.Vec3{}, 0 }

// Orbit is a synthetic Source whose stick traces a unit circle once per
// Period, starting at Start.
type Orbit struct {
	Start  time.Time
	Period time.Duration
}

func (o Orbit) Sample(now time.Time) (scene.Vec3, uint32) {
	if o.Period <= 0 {
		return scene.Vec3{}, 0
	}
	phase := float64(now.Sub(o.Start)%o.Period) / float64(o.Period)
	angle := 2 * math.Pi * phase
	return scene.V(math.Cos(angle), math.Sin(angle), 0), 0
}

// State is the simulation thread's view of input: the newest frame applied so
// far. It is not safe for concurrent use.
type State struct {
	current Frame
	applied uint64
	skipped uint64
}

// Apply makes f current if it is newer than the last applied frame and
// reports whether it did.
func (s *State) Apply(f Frame) bool {
	if f.ID <= s.applied && s.applied != 0 {
		s.skipped++
		return false
	}
	s.current = f
	s.applied = f.ID
	return true
}

// Current returns the last applied frame.
func (s *State) Current() Frame { return s.current }

// Skipped returns how many stale frames Apply ignored.
func (s *State) Skipped() uint64 { return s.skipped }
