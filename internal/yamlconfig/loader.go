// Package yamlconfig loads runtime configuration from YAML files. The layout
// mirrors the HCL form, with modules keyed by name:
//
//	runtime:
//	  role: client
//	device:
//	  kind: socketio
//	  url: http://localhost:3000
//	modules:
//	  stats:
//	    instances: 2
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type document struct {
	Runtime  *runtimeDoc           `yaml:"runtime"`
	Channels *channelsDoc          `yaml:"channels"`
	Device   *deviceDoc            `yaml:"device"`
	Modules  map[string]*moduleDoc `yaml:"modules"`
}

type runtimeDoc struct {
	Role            *string  `yaml:"role"`
	TickRate        *float64 `yaml:"tick_rate"`
	FixedStep       *string  `yaml:"fixed_step"`
	MaxFixedSteps   *int     `yaml:"max_fixed_steps"`
	HealthcheckPort *int     `yaml:"healthcheck_port"`
}

type channelsDoc struct {
	InputCapacity   *int    `yaml:"input_capacity"`
	InputPolicy     *string `yaml:"input_policy"`
	ControlCapacity *int    `yaml:"control_capacity"`
}

type deviceDoc struct {
	Kind       *string `yaml:"kind"`
	URL        *string `yaml:"url"`
	Width      *int    `yaml:"width"`
	Height     *int    `yaml:"height"`
	MainThread *bool   `yaml:"main_thread"`
	Poll       *string `yaml:"poll"`
}

type moduleDoc struct {
	Enabled   *bool          `yaml:"enabled"`
	Instances *int           `yaml:"instances"`
	Settings  map[string]any `yaml:"settings"`
}

// Load reads path and overlays it on config.Default.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	ctxlog.FromContext(ctx).Debug("YAML loader started.", "path", path)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.LoadBytes(ctx, src)
}

// LoadBytes decodes a YAML document. Unknown keys are rejected.
func (l *Loader) LoadBytes(ctx context.Context, src []byte) (*config.Model, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	m := config.Default()
	if r := doc.Runtime; r != nil {
		config.Set(&m.Runtime.Role, r.Role)
		config.Set(&m.Runtime.TickRate, r.TickRate)
		config.Set(&m.Runtime.MaxFixedSteps, r.MaxFixedSteps)
		config.Set(&m.Runtime.HealthcheckPort, r.HealthcheckPort)
		if err := config.SetDuration(&m.Runtime.FixedStep, "runtime.fixed_step", r.FixedStep); err != nil {
			return nil, err
		}
	}
	if c := doc.Channels; c != nil {
		config.Set(&m.Channels.InputCapacity, c.InputCapacity)
		config.Set(&m.Channels.InputPolicy, c.InputPolicy)
		config.Set(&m.Channels.ControlCapacity, c.ControlCapacity)
	}
	if d := doc.Device; d != nil {
		config.Set(&m.Device.Kind, d.Kind)
		config.Set(&m.Device.URL, d.URL)
		config.Set(&m.Device.Width, d.Width)
		config.Set(&m.Device.Height, d.Height)
		config.Set(&m.Device.MainThread, d.MainThread)
		if err := config.SetDuration(&m.Device.Poll, "device.poll", d.Poll); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(doc.Modules))
	for k := range doc.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		mc, err := translateModule(key, doc.Modules[key])
		if err != nil {
			return nil, err
		}
		if err := m.AddModule(mc); err != nil {
			return nil, err
		}
	}

	ctxlog.FromContext(ctx).Debug("YAML loading complete.", "role", m.Runtime.Role, "modules", len(m.Modules))
	return m, nil
}

func translateModule(key string, d *moduleDoc) (*config.ModuleConfig, error) {
	mc := &config.ModuleConfig{Key: key}
	if d == nil {
		d = &moduleDoc{}
	}
	mc.Enabled = d.Enabled
	config.Set(&mc.Instances, d.Instances)

	var settings any
	if d.Settings != nil {
		settings = d.Settings
	}
	val, err := config.FromNative(settings)
	if err != nil {
		return nil, fmt.Errorf("module %q settings: %w", key, err)
	}
	mc.Settings = val
	return mc, nil
}
