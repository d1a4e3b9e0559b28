// Package hud writes a status overlay for every presented frame.
package hud

import (
	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Key is the module key used in configuration.
const Key = "hud"

// Module declares the HUD.
var Module = metadata.Declare(metadata.Options[HUD]{
	Key:      Key,
	Affinity: lifecycle.Presentation,
	New:      New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	// Bodies adds one line per body.
	Bodies bool `cty:"bodies"`
	// Precision is the number of decimals used for coordinates.
	Precision int `cty:"precision"`
}

// HUD reads the snapshot being presented and prints a summary onto the
// frame canvas.
type HUD struct {
	settings Settings
	current  *scene.Current
	canvas   *device.Canvas
}

// New decodes settings.
func New(tc *threadctx.Context) (*HUD, error) {
	h := &HUD{settings: Settings{Precision: 2}}
	if err := config.DecodeModule(tc.Services(), Key, &h.settings); err != nil {
		return nil, err
	}
	if h.settings.Precision < 0 {
		h.settings.Precision = 0
	}
	return h, nil
}

func (h *HUD) Load(tc *threadctx.Context) error {
	var err error
	if h.current, err = services.Get[*scene.Current](tc.Services()); err != nil {
		return err
	}
	if h.canvas, err = services.Get[*device.Canvas](tc.Services()); err != nil {
		return err
	}
	return nil
}

func (h *HUD) Update(tc *threadctx.Context) error {
	snap := h.current.Snapshot()
	h.canvas.Printf("sim frame %d  input %d  bodies %d", snap.Frame, snap.Input, len(snap.Bodies))
	if len(snap.Bodies) == 0 {
		return nil
	}

	p := h.settings.Precision
	h.canvas.Printf("centroid %s", format(centroid(snap.Bodies), p))
	if h.settings.Bodies {
		for _, b := range snap.Bodies {
			h.canvas.Printf("  #%d at %s", b.ID, format(b.Position, p))
		}
	}
	return nil
}

func centroid(bodies []scene.Body) scene.Vec3 {
	var sum scene.Vec3
	for _, b := range bodies {
		sum = sum.Add(b.Position)
	}
	return sum.Scale(1 / float64(len(bodies)))
}
