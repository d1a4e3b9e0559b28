// Package kernel drives the three runtime threads. A Kernel owns one role
// (Control, Simulation or Presentation), instantiates the modules with that
// affinity in dependency order, and walks them through Load, Initialize,
// Start, the role's run loop and Shutdown.
package kernel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/specialistvlad/tricore/internal/clock"
	"github.com/specialistvlad/tricore/internal/dag"
	"github.com/specialistvlad/tricore/internal/dispatch"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Role is the thread-specific part of a kernel.
type Role interface {
	Affinity() lifecycle.Affinity
	// Before and After run around Load, Initialize and Start. They are where
	// a role waits on or signals the startup barrier.
	Before(ctx *threadctx.Context, p lifecycle.Phase) error
	After(ctx *threadctx.Context, p lifecycle.Phase) error
	// Run is the steady-state loop. It returns when ctx is canceled or a
	// phase fails.
	Run(ctx *threadctx.Context, k *Kernel) error
}

// Selector decides how many instances of a descriptor a kernel creates. Zero
// skips the descriptor.
type Selector interface {
	Instances(d *metadata.Descriptor) (int, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(d *metadata.Descriptor) (int, error)

func (f SelectorFunc) Instances(d *metadata.Descriptor) (int, error) { return f(d) }

// EnabledOnce creates one instance of every enabled descriptor.
var EnabledOnce Selector = SelectorFunc(func(d *metadata.Descriptor) (int, error) {
	if d.Enabled {
		return 1, nil
	}
	return 0, nil
})

// Options configure a Kernel.
type Options struct {
	// Catalog supplies the descriptors. Defaults to metadata.Default().
	Catalog *metadata.Catalog
	// Selector defaults to EnabledOnce.
	Selector Selector
	// Root is the application's root service scope. The kernel works in a
	// child of it. Required.
	Root      *services.Registry
	Clock     clock.Clock
	FixedStep time.Duration
	Observer  Observer
}

// Kernel runs one role on its own locked OS thread.
type Kernel struct {
	role  Role
	opts  Options
	scope *services.Registry

	state atomic.Int32
	exit  atomic.Int32

	// table holds the loaded modules only. It is published once by load
	// and read without locking on every tick.
	table atomic.Pointer[dispatch.Table]

	mu        sync.Mutex
	loadOrder []string
}

// New creates a kernel for role.
func New(role Role, opts Options) *Kernel {
	if opts.Root == nil {
		panic("kernel: root service scope is required")
	}
	if opts.Catalog == nil {
		opts.Catalog = metadata.Default()
	}
	if opts.Selector == nil {
		opts.Selector = EnabledOnce
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Kernel{
		role:  role,
		opts:  opts,
		scope: opts.Root.Child(),
	}
}

// Role returns the kernel's affinity.
func (k *Kernel) Role() lifecycle.Affinity { return k.role.Affinity() }

// State returns the current state.
func (k *Kernel) State() State { return State(k.state.Load()) }

// Exit returns the exit code. It is meaningful once State is Terminated.
func (k *Kernel) Exit() ExitCode { return ExitCode(k.exit.Load()) }

// Services returns the kernel's own service scope.
func (k *Kernel) Services() *services.Registry { return k.scope }

// LoadOrder returns the instance keys in the order they were loaded.
func (k *Kernel) LoadOrder() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.loadOrder...)
}

// Execute runs the kernel to completion on the calling goroutine, which it
// locks to its OS thread. Shutdown always runs, whatever ended the kernel.
// parent must carry a logger (see ctxlog).
func (k *Kernel) Execute(parent context.Context) ExitCode {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tc := threadctx.New(parent, threadctx.Options{
		Role:      k.role.Affinity(),
		Services:  k.scope,
		Clock:     k.opts.Clock,
		FixedStep: k.opts.FixedStep,
	})
	logger := tc.Logger()
	logger.Debug("Kernel starting.")

	err := k.startup(tc)
	if err == nil {
		k.setState(Running)
		logger.Info("Kernel running.", "modules", len(k.LoadOrder()))
		err = k.role.Run(tc, k)
	}
	code := classify(tc, err)

	k.setState(ShuttingDown)
	k.shutdown(tc.WithParent(context.WithoutCancel(tc)))
	k.exit.Store(int32(code))
	k.setState(Terminated)

	switch code {
	case ExitOK, ExitCanceled:
		logger.Info("Kernel stopped.", "exit", code)
	case ExitRecoverable:
		logger.Warn("Kernel stopped with a recoverable error.", "exit", code, "error", err)
	default:
		logger.Error("Kernel failed.", "exit", code, "error", err,
			"stack", eris.ToString(eris.Wrap(err, k.role.Affinity().String()+" kernel"), true))
	}
	return code
}

// Invoke runs phase p for every loaded module, stopping at the first error.
// Role run loops call it for the per-tick phases.
func (k *Kernel) Invoke(tc *threadctx.Context, p lifecycle.Phase) error {
	table := k.table.Load()
	if table == nil {
		return nil
	}
	return table.Invoke(p, tc)
}

func (k *Kernel) startup(tc *threadctx.Context) error {
	steps := []struct {
		phase lifecycle.Phase
		done  State
		run   func(*threadctx.Context) error
	}{
		{lifecycle.Load, Loaded, k.load},
		{lifecycle.Initialize, Initialized, func(tc *threadctx.Context) error { return k.Invoke(tc, lifecycle.Initialize) }},
		{lifecycle.Start, Started, func(tc *threadctx.Context) error { return k.Invoke(tc, lifecycle.Start) }},
	}
	for _, step := range steps {
		if err := tc.Err(); err != nil {
			return err
		}
		if err := k.role.Before(tc, step.phase); err != nil {
			return fmt.Errorf("before %s: %w", step.phase, err)
		}
		k.observe(tc, step.phase, PhaseBegin, nil)
		err := step.run(tc)
		k.observe(tc, step.phase, PhaseEnd, err)
		if err != nil {
			return err
		}
		if err := k.role.After(tc, step.phase); err != nil {
			return fmt.Errorf("after %s: %w", step.phase, err)
		}
		k.setState(step.done)
		tc.Logger().Debug("Kernel phase complete.", "phase", step.phase)
	}
	return nil
}

// load resolves this role's descriptors, instantiates them in dependency
// order, builds the dispatch table and invokes Load.
func (k *Kernel) load(tc *threadctx.Context) error {
	descriptors := k.opts.Catalog.Descriptors(metadata.Filter{
		Affinities: lifecycle.MaskOfAffinities(k.role.Affinity()),
	})
	ordered, err := dag.Resolve(descriptors)
	if err != nil {
		return fmt.Errorf("resolving %s modules: %w", k.role.Affinity(), err)
	}

	var instances []dispatch.Instance
	skipped := make(map[string]bool)
	for _, d := range ordered {
		n, err := k.opts.Selector.Instances(d)
		if err != nil {
			return fmt.Errorf("selecting %s: %w", d.Key, err)
		}
		if n == 0 {
			skipped[d.Key] = true
			continue
		}
		for _, dep := range d.DependencyIDs() {
			if skipped[dep] {
				tc.Logger().Warn("Module depends on a disabled module.", "module", d.Key, "dependency", dep)
			}
		}
		if n > 1 && !d.AllowMultiple {
			return &metadata.ConfigError{Key: d.Key, Reason: fmt.Sprintf("%d instances requested but only one is allowed", n)}
		}
		for i := 0; i < n; i++ {
			v, err := d.New(tc)
			if err != nil {
				return fmt.Errorf("instantiating %s: %w", d.Key, err)
			}
			instances = append(instances, dispatch.Instance{Descriptor: d, Index: i, Value: v})
		}
	}

	table := dispatch.Build(instances)
	tc.Logger().Debug("Modules instantiated.", "count", len(instances))

	loaded := instances
	done, err := table.InvokeCount(lifecycle.Load, tc)
	if err != nil {
		// Keep only the instances ahead of the failed one: they loaded, or
		// have no Load phase.
		failed := table.Keys(lifecycle.Load)[done]
		for i, inst := range instances {
			if inst.Key() == failed {
				loaded = instances[:i]
				break
			}
		}
		table = dispatch.Build(loaded)
	}

	order := make([]string, len(loaded))
	for i, inst := range loaded {
		order[i] = inst.Key()
	}
	k.mu.Lock()
	k.loadOrder = order
	k.mu.Unlock()
	k.table.Store(table)
	return err
}

func (k *Kernel) shutdown(tc *threadctx.Context) {
	table := k.table.Load()
	if table == nil {
		return
	}

	k.observe(tc, lifecycle.Shutdown, PhaseBegin, nil)
	err := table.InvokeAll(lifecycle.Shutdown, tc)
	k.observe(tc, lifecycle.Shutdown, PhaseEnd, err)
	if err != nil {
		tc.Logger().Error("Shutdown finished with errors.", "error", err)
	}
}

func (k *Kernel) observe(tc *threadctx.Context, p lifecycle.Phase, kind EventKind, err error) {
	if k.opts.Observer == nil {
		return
	}
	k.opts.Observer(Event{Role: k.role.Affinity(), Phase: p, Kind: kind, Time: tc.Clock().Now(), Err: err})
}

func (k *Kernel) setState(s State) { k.state.Store(int32(s)) }
