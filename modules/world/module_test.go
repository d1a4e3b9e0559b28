package world

import (
	"testing"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func withBodies(t *testing.T, n int64) *services.Registry {
	t.Helper()
	reg := services.New()
	m := config.Default()
	require.NoError(t, m.AddModule(&config.ModuleConfig{
		Key:      Key,
		Settings: cty.ObjectVal(map[string]cty.Value{"bodies": cty.NumberIntVal(n)}),
	}))
	services.Add(reg, m)
	return reg
}

func TestWorld_RegistersAndRemovesService(t *testing.T) {
	reg := withBodies(t, 3)
	th := testutil.NewThread(t, lifecycle.Simulation, reg, 0)

	w, err := New(th.Context)
	require.NoError(t, err)
	require.NoError(t, w.Load(th.Context))

	got, ok := services.TryGet[*scene.World](reg)
	require.True(t, ok)
	assert.Len(t, got.Bodies(), 3)

	require.NoError(t, w.Shutdown(th.Context))
	_, ok = services.TryGet[*scene.World](reg)
	assert.False(t, ok)
}

func TestWorld_Errors(t *testing.T) {
	th := testutil.NewThread(t, lifecycle.Simulation, withBodies(t, -2), 0)
	_, err := New(th.Context)
	assert.ErrorContains(t, err, "bodies must not be negative")

	reg := services.New()
	services.Add(reg, scene.NewWorld(1))
	th = testutil.NewThread(t, lifecycle.Simulation, reg, 0)
	w, err := New(th.Context)
	require.NoError(t, err)
	assert.ErrorContains(t, w.Load(th.Context), "already registered")
}
