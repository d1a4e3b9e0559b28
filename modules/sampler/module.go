// Package sampler is the control-thread module that turns the input source
// into input frames for the simulation.
package sampler

import (
	"fmt"
	"time"

	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/input"
	"github.com/specialistvlad/tricore/internal/kernel"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Key is the module key used in configuration.
const Key = "sampler"

// Module declares the sampler.
var Module = metadata.Declare(metadata.Options[Sampler]{
	Key:      Key,
	Affinity: lifecycle.Control,
	New:      New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	// OrbitSeconds is the period of the synthetic orbit source used when no
	// input.Source service is registered.
	OrbitSeconds float64 `cty:"orbit_seconds"`
}

// Sampler samples the input source once per control tick and pushes the
// result onto the input ring. Frame IDs start at 1 and increase by one per
// sample.
type Sampler struct {
	settings Settings
	links    *kernel.Links
	source   input.Source
	lastID   uint64
	rejected uint64
}

// New decodes settings and returns an unloaded sampler.
func New(tc *threadctx.Context) (*Sampler, error) {
	s := &Sampler{settings: Settings{OrbitSeconds: 4}}
	if err := config.DecodeModule(tc.Services(), Key, &s.settings); err != nil {
		return nil, err
	}
	if s.settings.OrbitSeconds < 0 {
		return nil, fmt.Errorf("%s: orbit_seconds must not be negative", Key)
	}
	return s, nil
}

func (s *Sampler) Load(tc *threadctx.Context) error {
	links, err := services.Get[*kernel.Links](tc.Services())
	if err != nil {
		return err
	}
	s.links = links

	if src, ok := services.TryGet[input.Source](tc.Services()); ok {
		s.source = src
	} else {
		period := time.Duration(s.settings.OrbitSeconds * float64(time.Second))
		s.source = input.Orbit{Start: tc.Clock().Now(), Period: period}
	}
	tc.Logger().Debug("Input sampler loaded.", "source", fmt.Sprintf("%T", s.source))
	return nil
}

func (s *Sampler) Update(tc *threadctx.Context) error {
	move, buttons := s.source.Sample(tc.FrameTime())
	s.lastID++
	f := input.Frame{ID: s.lastID, Time: tc.FrameTime(), Move: move, Buttons: buttons}
	if s.links.Input.Policy() == channels.Overwrite {
		return s.links.Input.Push(tc, f)
	}
	// A full blocking ring must not stall the control thread; the next
	// sample supersedes this one anyway.
	if !s.links.Input.TryPush(f) {
		s.rejected++
	}
	return nil
}

func (s *Sampler) Shutdown(tc *threadctx.Context) error {
	var overwritten uint64
	if s.links != nil {
		overwritten = s.links.Input.Dropped()
	}
	tc.Logger().Info("Input sampler stopped.", "samples", s.lastID, "rejected", s.rejected, "overwritten", overwritten)
	return nil
}

// Samples returns how many frames were produced.
func (s *Sampler) Samples() uint64 { return s.lastID }

// Rejected returns how many frames a full blocking ring refused.
func (s *Sampler) Rejected() uint64 { return s.rejected }
