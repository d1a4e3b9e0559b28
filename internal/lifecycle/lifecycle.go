// Package lifecycle defines the shared vocabulary of the runtime: the fixed
// set of execution phases every module can take part in, and the thread
// affinities (roles) that kernels and modules are bound to.
//
// Both are small enumerations backed by bitmasks so that descriptors can
// record "which phases does this type implement" and catalog queries can ask
// for "modules for these roles" with a single AND.
package lifecycle

import "strings"

// Phase is one step of the kernel lifecycle or the per-tick loop.
type Phase uint8

const (
	Load Phase = iota
	Initialize
	Start
	FixedUpdate
	PreUpdate
	Update
	PostUpdate
	Shutdown

	// NumPhases is the number of defined phases.
	NumPhases = int(Shutdown) + 1
)

var phaseNames = [...]string{
	Load:        "load",
	Initialize:  "initialize",
	Start:       "start",
	FixedUpdate: "fixed_update",
	PreUpdate:   "pre_update",
	Update:      "update",
	PostUpdate:  "post_update",
	Shutdown:    "shutdown",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Phases returns every phase in lifecycle order.
func Phases() []Phase {
	out := make([]Phase, NumPhases)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// PhaseMask is a set of phases.
type PhaseMask uint16

// MaskOf builds a mask from the given phases.
func MaskOf(phases ...Phase) PhaseMask {
	var m PhaseMask
	for _, p := range phases {
		m |= 1 << p
	}
	return m
}

// Has reports whether p is in the mask.
func (m PhaseMask) Has(p Phase) bool {
	return m&(1<<p) != 0
}

func (m PhaseMask) String() string {
	var parts []string
	for _, p := range Phases() {
		if m.Has(p) {
			parts = append(parts, p.String())
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Affinity is the thread role a kernel runs as, or a module is restricted to.
type Affinity uint8

const (
	AffinityNone Affinity = 0
	Control      Affinity = 1 << (iota - 1)
	Simulation
	Presentation
)

// Affinities lists the three roles in startup priority order.
func Affinities() []Affinity {
	return []Affinity{Control, Simulation, Presentation}
}

func (a Affinity) String() string {
	switch a {
	case Control:
		return "control"
	case Simulation:
		return "simulation"
	case Presentation:
		return "presentation"
	case AffinityNone:
		return "none"
	}
	return AffinityMask(a).String()
}

// AffinityMask is a set of roles.
type AffinityMask uint8

// AllAffinities matches every role.
const AllAffinities = AffinityMask(Control | Simulation | Presentation)

// MaskOfAffinities builds a mask from the given roles.
func MaskOfAffinities(roles ...Affinity) AffinityMask {
	var m AffinityMask
	for _, r := range roles {
		m |= AffinityMask(r)
	}
	return m
}

// Has reports whether any bit of a is in the mask.
func (m AffinityMask) Has(a Affinity) bool {
	return m&AffinityMask(a) != 0
}

func (m AffinityMask) String() string {
	var parts []string
	for _, a := range Affinities() {
		if m.Has(a) {
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, "|")
}
