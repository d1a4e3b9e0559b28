package testutil

import (
	"testing"
	"time"

	"github.com/specialistvlad/tricore/internal/clock"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Epoch is the start time of every manual test clock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Thread is a thread context for driving module phases by hand.
type Thread struct {
	*threadctx.Context
	Clock *clock.Manual
	Logs  *SafeBuffer
}

// NewThread returns a thread context for role whose services are reg, with
// a manual clock at Epoch and the given fixed step.
func NewThread(t *testing.T, role lifecycle.Affinity, reg *services.Registry, step time.Duration) *Thread {
	t.Helper()
	ctx, logs := LoggerContext(t)
	clk := clock.NewManual(Epoch)
	tc := threadctx.New(ctx, threadctx.Options{
		Role:      role,
		Services:  reg,
		Clock:     clk,
		FixedStep: step,
	})
	return &Thread{Context: tc, Clock: clk, Logs: logs}
}

// Tick advances the clock by d and begins a new frame.
func (th *Thread) Tick(d time.Duration) {
	th.Clock.Advance(d)
	th.BeginFrame(th.Clock.Now())
}
