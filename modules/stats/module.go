// Package stats measures presentation frame rate. It is disabled unless
// configuration enables it. Several instances may run side by side; they
// share the one settings block.
package stats

import (
	"time"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Key is the module key used in configuration.
const Key = "stats"

// Module declares the stats module.
var Module = metadata.Declare(metadata.Options[Stats]{
	Key:           Key,
	Affinity:      lifecycle.Presentation,
	Disabled:      true,
	AllowMultiple: true,
	New:           New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	// Window is the number of frames averaged per report.
	Window int `cty:"window"`
}

// Stats counts frames and, at the end of each window, reports the average
// frame rate over it.
type Stats struct {
	settings Settings
	canvas   *device.Canvas

	frames  uint64
	inWin   int
	elapsed time.Duration
	fps     float64
}

// New decodes settings.
func New(tc *threadctx.Context) (*Stats, error) {
	s := &Stats{settings: Settings{Window: 60}}
	if err := config.DecodeModule(tc.Services(), Key, &s.settings); err != nil {
		return nil, err
	}
	if s.settings.Window < 1 {
		s.settings.Window = 1
	}
	return s, nil
}

func (s *Stats) Load(tc *threadctx.Context) error {
	s.canvas, _ = services.TryGet[*device.Canvas](tc.Services())
	return nil
}

func (s *Stats) PostUpdate(tc *threadctx.Context) error {
	s.frames++
	s.inWin++
	s.elapsed += tc.Delta()
	if s.inWin >= s.settings.Window {
		if s.elapsed > 0 {
			s.fps = float64(s.inWin) / s.elapsed.Seconds()
		}
		s.inWin, s.elapsed = 0, 0
	}
	if s.canvas != nil && s.fps > 0 {
		s.canvas.Printf("fps %.1f (window %d)", s.fps, s.settings.Window)
	}
	return nil
}

func (s *Stats) Shutdown(tc *threadctx.Context) error {
	tc.Logger().Info("Presentation stats.", "frames", s.frames, "fps", s.fps, "window", s.settings.Window)
	return nil
}

// Frames returns the number of frames seen.
func (s *Stats) Frames() uint64 { return s.frames }

// FPS returns the rate measured over the last complete window.
func (s *Stats) FPS() float64 { return s.fps }
