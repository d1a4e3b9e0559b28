package threadctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/specialistvlad/tricore/internal/clock"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParent(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestContext_Accessors(t *testing.T) {
	var buf bytes.Buffer
	scope := services.New()
	clk := clock.NewManual(time.Unix(100, 0))

	tc := New(newTestParent(&buf), Options{
		Role:      lifecycle.Simulation,
		Services:  scope,
		Clock:     clk,
		FixedStep: 10 * time.Millisecond,
	})

	assert.Equal(t, lifecycle.Simulation, tc.Role())
	assert.Same(t, scope, tc.Services())
	assert.Equal(t, 10*time.Millisecond, tc.FixedStep())
	assert.False(t, tc.Canceled())

	tc.Logger().Info("hello")
	assert.Contains(t, buf.String(), "role=simulation")
}

func TestContext_BeginFrame(t *testing.T) {
	var buf bytes.Buffer
	clk := clock.NewManual(time.Unix(0, 0))
	tc := New(newTestParent(&buf), Options{Role: lifecycle.Control, Clock: clk})

	require.Zero(t, tc.Frame())

	tc.BeginFrame(clk.Now())
	assert.Equal(t, uint64(1), tc.Frame())
	assert.Zero(t, tc.Delta(), "first frame has no predecessor")

	clk.Advance(16 * time.Millisecond)
	tc.BeginFrame(clk.Now())
	assert.Equal(t, uint64(2), tc.Frame())
	assert.Equal(t, 16*time.Millisecond, tc.Delta())
	assert.Equal(t, clk.Now(), tc.FrameTime())
}

func TestContext_CancellationAndWithParent(t *testing.T) {
	var buf bytes.Buffer
	parent, cancel := context.WithCancel(newTestParent(&buf))
	tc := New(parent, Options{Role: lifecycle.Presentation})
	tc.BeginFrame(time.Now())

	cancel()
	assert.True(t, tc.Canceled())
	assert.ErrorIs(t, tc.Err(), context.Canceled)

	detached := tc.WithParent(context.WithoutCancel(parent))
	assert.False(t, detached.Canceled())
	assert.Equal(t, tc.Frame(), detached.Frame())
	assert.Same(t, tc.Services(), detached.Services())

	detached.Logger().Info("still tagged")
	assert.Contains(t, buf.String(), "role=presentation")
}
