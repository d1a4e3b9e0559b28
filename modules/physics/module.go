// Package physics integrates the world's bodies on the fixed simulation
// step, steering them with the latest input.
package physics

import (
	"fmt"
	"math"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/input"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
	"github.com/specialistvlad/tricore/modules/world"
)

// Key is the module key used in configuration.
const Key = "physics"

// Module declares the physics module. It needs the world loaded first.
var Module = metadata.Declare(metadata.Options[Physics]{
	Key:       Key,
	Affinity:  lifecycle.Simulation,
	DependsOn: []metadata.Ref{world.Module},
	New:       New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	// Thrust scales the input stick into an acceleration.
	Thrust float64 `cty:"thrust"`
	// Damping is the fraction of velocity lost per second.
	Damping float64   `cty:"damping"`
	Gravity []float64 `cty:"gravity"`
}

// Physics applies semi-implicit Euler integration once per fixed step.
type Physics struct {
	settings Settings
	gravity  scene.Vec3
	world    *scene.World
	input    *input.State
	steps    uint64
}

// New decodes and checks settings.
func New(tc *threadctx.Context) (*Physics, error) {
	p := &Physics{settings: Settings{Thrust: 2, Damping: 0.1}}
	if err := config.DecodeModule(tc.Services(), Key, &p.settings); err != nil {
		return nil, err
	}
	switch len(p.settings.Gravity) {
	case 0:
	case 3:
		g := p.settings.Gravity
		p.gravity = scene.V(g[0], g[1], g[2])
	default:
		return nil, fmt.Errorf("%s: gravity needs 3 components, got %d", Key, len(p.settings.Gravity))
	}
	if p.settings.Damping < 0 {
		return nil, fmt.Errorf("%s: damping must not be negative", Key)
	}
	return p, nil
}

func (p *Physics) Load(tc *threadctx.Context) error {
	var err error
	if p.world, err = services.Get[*scene.World](tc.Services()); err != nil {
		return err
	}
	if p.input, err = services.Get[*input.State](tc.Services()); err != nil {
		return err
	}
	return nil
}

func (p *Physics) FixedUpdate(tc *threadctx.Context) error {
	dt := tc.FixedStep().Seconds()
	if dt <= 0 {
		return nil
	}
	accel := p.input.Current().Move.Scale(p.settings.Thrust).Add(p.gravity)
	keep := math.Max(0, 1-p.settings.Damping*dt)

	bodies := p.world.Bodies()
	for i := range bodies {
		b := &bodies[i]
		b.Velocity = b.Velocity.Add(accel.Scale(dt)).Scale(keep)
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
	}
	p.steps++
	return nil
}

func (p *Physics) Shutdown(tc *threadctx.Context) error {
	tc.Logger().Debug("Physics stopped.", "steps", p.steps)
	return nil
}

// Steps returns how many fixed steps have run.
func (p *Physics) Steps() uint64 { return p.steps }
