package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/tricore/internal/barrier"
	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/input"
	"github.com/specialistvlad/tricore/internal/kernel"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/services"
	"golang.org/x/sync/errgroup"
)

// Run starts one kernel per active role and blocks until all of them have
// terminated. The run ends on SIGINT or SIGTERM, when Config.Duration
// elapses, or when any kernel stops with a failure, which cancels the
// others. It returns the worst kernel exit code.
func (a *App) Run(ctx context.Context) kernel.ExitCode {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if a.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Duration)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting runtime.", "role", a.model.Runtime.Role, "kernels", a.roles)

	root, links, err := a.rootServices()
	if err != nil {
		logger.Error("Failed to create channels.", "error", err)
		return kernel.ExitFatal
	}

	var dev device.Device
	if a.roles.Has(lifecycle.Presentation) {
		dev, err = a.openDevice(ctx)
		if err != nil {
			logger.Error("Failed to open device.", "kind", a.model.Device.Kind, "error", err)
			return kernel.ExitRecoverable
		}
		defer func() {
			if err := dev.Close(); err != nil {
				logger.Warn("Closing device failed.", "error", err)
			}
		}()
	}

	kernels := a.buildKernels(root, dev)
	a.mu.Lock()
	a.runID = runID
	a.kernels = kernels
	a.mu.Unlock()

	if a.model.Runtime.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.model.Runtime.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, k := range kernels {
		g.Go(func() error {
			switch code := k.Execute(gctx); code {
			case kernel.ExitOK, kernel.ExitCanceled:
				return nil
			default:
				return fmt.Errorf("%s kernel exited %s", k.Role(), code)
			}
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Runtime stopped early.", "cause", err)
	}

	codes := make([]kernel.ExitCode, len(kernels))
	for i, k := range kernels {
		codes[i] = k.Exit()
	}
	worst := kernel.Worst(codes...)
	logger.Info("Runtime finished.", "exit", worst, "input_dropped", links.Input.Dropped(), "commands_coalesced", links.Commands.Coalesced())
	return worst
}

// rootServices creates the process-wide scope every kernel scope descends
// from: the startup barrier, the channels, the configuration and the input
// source.
func (a *App) rootServices() (*services.Registry, *kernel.Links, error) {
	policy, err := a.model.Channels.Policy()
	if err != nil {
		return nil, nil, err
	}
	links := kernel.NewLinks(kernel.LinkOptions{
		InputCapacity:   a.model.Channels.InputCapacity,
		InputPolicy:     policy,
		InputWait:       channels.Park,
		CommandCapacity: a.model.Channels.ControlCapacity,
	})

	root := services.New()
	services.Add(root, barrier.New(a.roles))
	services.Add(root, links)
	services.Add(root, a.model)
	services.Add[input.Source](root, input.Orbit{Start: time.Now(), Period: 4 * time.Second})
	return root, links, nil
}

func (a *App) openDevice(ctx context.Context) (device.Device, error) {
	d := a.model.Device
	dev, err := device.Open(ctx, device.Options{
		Kind:   d.Kind,
		URL:    d.URL,
		Out:    a.outW,
		Width:  d.Width,
		Height: d.Height,
	})
	if err != nil {
		return nil, err
	}
	if d.MainThread {
		dev = device.OnMainThread(dev)
	}
	return dev, nil
}

// buildKernels creates the kernels for the active roles in startup order.
func (a *App) buildKernels(root *services.Registry, dev device.Device) []*kernel.Kernel {
	rt := a.model.Runtime
	opts := kernel.Options{
		Catalog:   a.catalog,
		Selector:  a.selector(),
		Root:      root,
		FixedStep: rt.FixedStep,
	}

	var kernels []*kernel.Kernel
	for _, role := range lifecycle.Affinities() {
		if !a.roles.Has(role) {
			continue
		}
		var r kernel.Role
		switch role {
		case lifecycle.Control:
			r = kernel.NewControl(rt.TickRate)
		case lifecycle.Simulation:
			r = kernel.NewSimulation(kernel.SimulationOptions{
				Rate:          rt.TickRate,
				FixedStep:     rt.FixedStep,
				MaxFixedSteps: rt.MaxFixedSteps,
			})
		case lifecycle.Presentation:
			r = kernel.NewPresentation(kernel.PresentationOptions{Device: dev, Poll: a.presentationPoll()})
		}
		kernels = append(kernels, kernel.New(r, opts))
	}
	return kernels
}

// presentationPoll is the configured poll interval. Without a simulation
// kernel in the process no snapshot ever arrives, so presentation falls
// back to redrawing at the tick rate.
func (a *App) presentationPoll() time.Duration {
	if p := a.model.Device.Poll; p > 0 || a.roles.Has(lifecycle.Simulation) {
		return p
	}
	if rate := a.model.Runtime.TickRate; rate > 0 {
		return time.Duration(float64(time.Second) / rate)
	}
	return 100 * time.Millisecond
}
