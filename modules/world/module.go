// Package world is the simulation-thread module that owns the scene.World
// service.
package world

import (
	"fmt"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/scene"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Key is the module key used in configuration.
const Key = "world"

// Module declares the world module.
var Module = metadata.Declare(metadata.Options[World]{
	Key:      Key,
	Affinity: lifecycle.Simulation,
	New:      New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	Bodies int `cty:"bodies"`
}

// World creates the bodies at Load and publishes them as a service for the
// other simulation modules.
type World struct {
	settings Settings
	world    *scene.World
}

// New decodes settings.
func New(tc *threadctx.Context) (*World, error) {
	w := &World{settings: Settings{Bodies: 8}}
	if err := config.DecodeModule(tc.Services(), Key, &w.settings); err != nil {
		return nil, err
	}
	if w.settings.Bodies < 0 {
		return nil, fmt.Errorf("%s: bodies must not be negative, got %d", Key, w.settings.Bodies)
	}
	return w, nil
}

func (w *World) Load(tc *threadctx.Context) error {
	w.world = scene.NewWorld(w.settings.Bodies)
	if !services.Add(tc.Services(), w.world) {
		return fmt.Errorf("%s: a scene world is already registered", Key)
	}
	tc.Logger().Debug("World created.", "bodies", w.settings.Bodies)
	return nil
}

func (w *World) Shutdown(tc *threadctx.Context) error {
	services.Remove[*scene.World](tc.Services())
	return nil
}
