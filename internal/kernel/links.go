package kernel

import (
	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/input"
	"github.com/specialistvlad/tricore/internal/scene"
)

// Links are the fixed channels between the three threads. One set exists per
// application run, registered in the root service scope.
//
//	control  --Input-->    simulation
//	simulation --Scene-->  presentation
//	any      --Commands--> presentation
type Links struct {
	// Input has exactly one producer (control) and one consumer
	// (simulation).
	Input *channels.Ring[input.Frame]
	// Scene is written by simulation only.
	Scene *channels.Snapshot[scene.Snapshot]
	// Commands is drained by presentation only.
	Commands *channels.ControlQueue[string, device.Command]
}

// LinkOptions size the channels.
type LinkOptions struct {
	InputCapacity   int
	InputPolicy     channels.FullPolicy
	InputWait       channels.WaitStrategy
	CommandCapacity int
}

// NewLinks creates a set of channels.
func NewLinks(opts LinkOptions) *Links {
	return &Links{
		Input:    channels.NewRing[input.Frame](opts.InputCapacity, opts.InputPolicy, opts.InputWait),
		Scene:    channels.NewSnapshot[scene.Snapshot](),
		Commands: channels.NewControlQueue(opts.CommandCapacity, device.Command.Key),
	}
}
