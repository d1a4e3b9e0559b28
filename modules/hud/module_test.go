package hud

import (
	"testing"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestHUD_PrintsSnapshotSummary(t *testing.T) {
	reg := services.New()
	current, canvas := &scene.Current{}, &device.Canvas{}
	services.Add(reg, current)
	services.Add(reg, canvas)
	m := config.Default()
	require.NoError(t, m.AddModule(&config.ModuleConfig{Key: Key, Settings: cty.ObjectVal(map[string]cty.Value{
		"bodies":    cty.True,
		"precision": cty.NumberIntVal(1),
	})}))
	services.Add(reg, m)
	th := testutil.NewThread(t, lifecycle.Presentation, reg, 0)

	h, err := New(th.Context)
	require.NoError(t, err)
	require.NoError(t, h.Load(th.Context))

	current.Set(scene.Snapshot{Frame: 9, Input: 4, Bodies: []scene.Body{
		{ID: 0, Position: scene.V(1, 0, 0)},
		{ID: 1, Position: scene.V(-1, 2, 0)},
	}}, 3)
	require.NoError(t, h.Update(th.Context))

	assert.Equal(t, []string{
		"sim frame 9  input 4  bodies 2",
		"centroid (0.0, 1.0, 0.0)",
		"  #0 at (1.0, 0.0, 0.0)",
		"  #1 at (-1.0, 2.0, 0.0)",
	}, canvas.Lines())
}

func TestHUD_EmptySnapshot(t *testing.T) {
	reg := services.New()
	canvas := &device.Canvas{}
	services.Add(reg, &scene.Current{})
	services.Add(reg, canvas)
	th := testutil.NewThread(t, lifecycle.Presentation, reg, 0)

	h, err := New(th.Context)
	require.NoError(t, err)
	require.NoError(t, h.Load(th.Context))
	require.NoError(t, h.Update(th.Context))
	assert.Equal(t, []string{"sim frame 0  input 0  bodies 0"}, canvas.Lines())
}

func TestHUD_LoadNeedsPresentationServices(t *testing.T) {
	th := testutil.NewThread(t, lifecycle.Presentation, services.New(), 0)
	h, err := New(th.Context)
	require.NoError(t, err)
	assert.Error(t, h.Load(th.Context))
}
