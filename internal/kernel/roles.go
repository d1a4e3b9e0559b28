package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/tricore/internal/barrier"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/input"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// milestoneOf maps the startup phases that have a barrier milestone.
func milestoneOf(p lifecycle.Phase) (barrier.Milestone, bool) {
	switch p {
	case lifecycle.Load:
		return barrier.LoadDone, true
	case lifecycle.Start:
		return barrier.StartDone, true
	}
	return 0, false
}

// waterfall implements the startup contract: before a milestone phase a role
// waits for its upstream role to reach the milestone, and after it signals
// its own latch.
type waterfall struct {
	self     lifecycle.Affinity
	upstream lifecycle.Affinity // AffinityNone for the head of the chain
}

func (w waterfall) before(tc *threadctx.Context, p lifecycle.Phase) error {
	m, ok := milestoneOf(p)
	if !ok || w.upstream == lifecycle.AffinityNone {
		return nil
	}
	b, err := services.Get[*barrier.Barrier](tc.Services())
	if err != nil {
		return err
	}
	tc.Logger().Debug("Waiting on barrier.", "upstream", w.upstream, "milestone", m)
	return b.Wait(tc, w.upstream, m)
}

func (w waterfall) after(tc *threadctx.Context, p lifecycle.Phase) error {
	m, ok := milestoneOf(p)
	if !ok {
		return nil
	}
	b, err := services.Get[*barrier.Barrier](tc.Services())
	if err != nil {
		return err
	}
	b.Signal(w.self, m)
	return nil
}

// tick runs the three per-frame phases.
func tick(tc *threadctx.Context, k *Kernel) error {
	for _, p := range [...]lifecycle.Phase{lifecycle.PreUpdate, lifecycle.Update, lifecycle.PostUpdate} {
		if err := k.Invoke(tc, p); err != nil {
			return err
		}
	}
	return nil
}

// Control samples input and drives control-side modules at a fixed rate.
type Control struct {
	waterfall
	pacer *pacer
}

// NewControl returns the control role paced at rate ticks per second; a
// rate of 0 runs unpaced.
func NewControl(rate float64) *Control {
	return &Control{
		waterfall: waterfall{self: lifecycle.Control},
		pacer:     newPacer(rate),
	}
}

func (c *Control) Affinity() lifecycle.Affinity { return lifecycle.Control }

func (c *Control) Before(tc *threadctx.Context, p lifecycle.Phase) error {
	return c.before(tc, p)
}

func (c *Control) After(tc *threadctx.Context, p lifecycle.Phase) error {
	return c.after(tc, p)
}

func (c *Control) Run(tc *threadctx.Context, k *Kernel) error {
	for {
		if err := tc.Err(); err != nil {
			return err
		}
		tc.BeginFrame(tc.Clock().Now())
		if err := tick(tc, k); err != nil {
			return err
		}
		if err := c.pacer.wait(tc); err != nil {
			return err
		}
	}
}

// SimulationOptions configure the simulation role.
type SimulationOptions struct {
	Rate          float64
	FixedStep     time.Duration
	MaxFixedSteps int
}

// Simulation applies the newest input, steps the fixed-rate simulation and
// publishes a scene snapshot every frame.
type Simulation struct {
	waterfall
	pacer   *pacer
	stepper stepper
	input   *input.State
}

// NewSimulation returns the simulation role.
func NewSimulation(opts SimulationOptions) *Simulation {
	return &Simulation{
		waterfall: waterfall{self: lifecycle.Simulation, upstream: lifecycle.Control},
		pacer:     newPacer(opts.Rate),
		stepper:   stepper{step: opts.FixedStep, max: opts.MaxFixedSteps},
		input:     &input.State{},
	}
}

func (s *Simulation) Affinity() lifecycle.Affinity { return lifecycle.Simulation }

func (s *Simulation) Before(tc *threadctx.Context, p lifecycle.Phase) error {
	if err := s.before(tc, p); err != nil {
		return err
	}
	if p == lifecycle.Load {
		services.Replace(tc.Services(), s.input)
	}
	return nil
}

func (s *Simulation) After(tc *threadctx.Context, p lifecycle.Phase) error {
	return s.after(tc, p)
}

func (s *Simulation) Run(tc *threadctx.Context, k *Kernel) error {
	links, err := services.Get[*Links](tc.Services())
	if err != nil {
		return err
	}
	for {
		if err := tc.Err(); err != nil {
			return err
		}
		tc.BeginFrame(tc.Clock().Now())

		// Only the newest queued input matters; older samples are superseded.
		if latest, n := links.Input.DrainLatest(); n > 0 {
			s.input.Apply(latest)
		}

		for steps := s.stepper.advance(tc.Delta()); steps > 0; steps-- {
			if err := k.Invoke(tc, lifecycle.FixedUpdate); err != nil {
				return err
			}
		}
		if err := tick(tc, k); err != nil {
			return err
		}

		snap := scene.Snapshot{Frame: tc.Frame(), Time: tc.FrameTime(), Input: s.input.Current().ID}
		if world, ok := services.TryGet[*scene.World](tc.Services()); ok {
			snap = world.Snapshot(tc.Frame(), tc.FrameTime(), s.input.Current().ID)
		}
		links.Scene.Publish(snap)

		if err := s.pacer.wait(tc); err != nil {
			return err
		}
	}
}

// PresentationOptions configure the presentation role.
type PresentationOptions struct {
	Device device.Device
	// Poll bounds how long to wait for a new snapshot before redrawing the
	// last one. Zero blocks until one arrives, which is right when a
	// simulation kernel runs in the same process.
	Poll time.Duration
}

// Presentation waits for scene snapshots, feeds queued control commands to
// the device and presents one frame per snapshot.
type Presentation struct {
	waterfall
	device  device.Device
	poll    time.Duration
	current *scene.Current
	canvas  *device.Canvas
}

// NewPresentation returns the presentation role.
func NewPresentation(opts PresentationOptions) *Presentation {
	if opts.Device == nil {
		opts.Device = &device.Null{}
	}
	return &Presentation{
		waterfall: waterfall{self: lifecycle.Presentation, upstream: lifecycle.Simulation},
		device:    opts.Device,
		poll:      opts.Poll,
		current:   &scene.Current{},
		canvas:    &device.Canvas{},
	}
}

func (p *Presentation) Affinity() lifecycle.Affinity { return lifecycle.Presentation }

func (p *Presentation) Before(tc *threadctx.Context, ph lifecycle.Phase) error {
	if err := p.before(tc, ph); err != nil {
		return err
	}
	if ph == lifecycle.Load {
		services.Replace(tc.Services(), p.current)
		services.Replace(tc.Services(), p.canvas)
	}
	return nil
}

func (p *Presentation) After(tc *threadctx.Context, ph lifecycle.Phase) error {
	return p.after(tc, ph)
}

func (p *Presentation) Run(tc *threadctx.Context, k *Kernel) error {
	links, err := services.Get[*Links](tc.Services())
	if err != nil {
		return err
	}
	logger := tc.Logger()
	for {
		if err := tc.Err(); err != nil {
			return err
		}
		snap, version, err := p.next(tc, links)
		if err != nil {
			return err
		}
		tc.BeginFrame(tc.Clock().Now())
		p.current.Set(snap, version)

		links.Commands.Drain(func(c device.Command) {
			if err := p.device.Apply(c); err != nil {
				logger.Warn("Device rejected command.", "command", c.Key(), "error", err)
			}
		})

		p.canvas.Reset()
		if err := tick(tc, k); err != nil {
			return err
		}

		frame := device.Frame{Number: tc.Frame(), Version: version, Scene: snap, Lines: p.canvas.Lines()}
		if err := p.device.Present(tc, frame); err != nil {
			return Recoverable(fmt.Errorf("presenting frame %d: %w", frame.Number, err))
		}
	}
}

// next returns the snapshot to draw. Without a poll interval it blocks for a
// newer snapshot; with one, a timeout yields the current snapshot again.
func (p *Presentation) next(tc *threadctx.Context, links *Links) (scene.Snapshot, uint64, error) {
	seen := p.current.Version()
	if p.poll <= 0 {
		return links.Scene.Wait(tc, seen)
	}

	ctx, cancel := context.WithTimeout(tc, p.poll)
	defer cancel()
	snap, version, err := links.Scene.Wait(ctx, seen)
	if errors.Is(err, context.DeadlineExceeded) && tc.Err() == nil {
		return p.current.Snapshot(), seen, nil
	}
	return snap, version, err
}
