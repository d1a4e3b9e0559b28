package kernel

import (
	"time"

	"github.com/specialistvlad/tricore/internal/lifecycle"
)

// State is a step of the kernel state machine. A kernel only moves forward.
type State int32

const (
	Created State = iota
	Loaded
	Initialized
	Started
	Running
	ShuttingDown
	Terminated
)

var stateNames = [...]string{
	Created:      "created",
	Loaded:       "loaded",
	Initialized:  "initialized",
	Started:      "started",
	Running:      "running",
	ShuttingDown: "shutting_down",
	Terminated:   "terminated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// EventKind tells whether an Event marks the beginning or end of a phase.
type EventKind uint8

const (
	PhaseBegin EventKind = iota
	PhaseEnd
)

func (k EventKind) String() string {
	if k == PhaseEnd {
		return "end"
	}
	return "begin"
}

// Event reports a lifecycle phase boundary of one kernel. Begin is emitted
// after the role's Before hook returns, End before its After hook runs.
type Event struct {
	Role  lifecycle.Affinity
	Phase lifecycle.Phase
	Kind  EventKind
	Time  time.Time
	Err   error
}

// Observer receives lifecycle events. It is called synchronously from every
// kernel thread and must be safe for concurrent use.
type Observer func(Event)
