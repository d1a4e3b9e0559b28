// Package threadctx defines the per-thread bundle every phase callback
// receives: the kernel's role, its service scope, a time source, frame timing
// and the cooperative cancellation signal.
package threadctx

import (
	"context"
	"log/slog"
	"time"

	"github.com/specialistvlad/tricore/internal/clock"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/services"
)

// Context is owned by a single kernel thread. It embeds the kernel's
// context.Context, so it can be passed wherever a context is expected and its
// Err reports cancellation.
//
// Frame fields are written only by the owning kernel between phase
// invocations; nothing else may call BeginFrame.
type Context struct {
	context.Context

	role      lifecycle.Affinity
	services  *services.Registry
	clock     clock.Clock
	fixedStep time.Duration

	frame     uint64
	frameTime time.Time
	delta     time.Duration
}

// Options configures a new Context.
type Options struct {
	Role      lifecycle.Affinity
	Services  *services.Registry
	Clock     clock.Clock
	FixedStep time.Duration
}

// New builds a thread context on top of parent. parent must carry a logger
// (see ctxlog); the context's logger gains a role attribute.
func New(parent context.Context, opts Options) *Context {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Services == nil {
		opts.Services = services.New()
	}
	return &Context{
		Context:   ctxlog.With(parent, "role", opts.Role.String()),
		role:      opts.Role,
		services:  opts.Services,
		clock:     opts.Clock,
		fixedStep: opts.FixedStep,
		frameTime: opts.Clock.Now(),
	}
}

// WithParent returns a copy of c bound to a different parent context. Frame
// state is copied; the role, scope and clock are shared. The kernel uses it to
// run Shutdown on a context that is no longer canceled.
func (c *Context) WithParent(parent context.Context) *Context {
	cp := *c
	cp.Context = ctxlog.WithLogger(parent, c.Logger())
	return &cp
}

// Role returns the thread's affinity.
func (c *Context) Role() lifecycle.Affinity { return c.role }

// Services returns the thread's writable service scope.
func (c *Context) Services() *services.Registry { return c.services }

// Clock returns the thread's time source.
func (c *Context) Clock() clock.Clock { return c.clock }

// Logger returns the thread's logger.
func (c *Context) Logger() *slog.Logger { return ctxlog.FromContext(c.Context) }

// Canceled reports whether the cooperative stop signal has been raised.
func (c *Context) Canceled() bool { return c.Err() != nil }

// Frame returns the number of the current loop iteration, starting at 1. It is
// 0 during Load, Initialize and Start.
func (c *Context) Frame() uint64 { return c.frame }

// FrameTime returns the time the current iteration began.
func (c *Context) FrameTime() time.Time { return c.frameTime }

// Delta returns the time elapsed between the start of the previous iteration
// and this one.
func (c *Context) Delta() time.Duration { return c.delta }

// FixedStep returns the simulation step FixedUpdate integrates over.
func (c *Context) FixedStep() time.Duration { return c.fixedStep }

// BeginFrame advances the frame counter and timing to now.
func (c *Context) BeginFrame(now time.Time) {
	if c.frame > 0 {
		c.delta = now.Sub(c.frameTime)
		if c.delta < 0 {
			c.delta = 0
		}
	}
	c.frame++
	c.frameTime = now
}
