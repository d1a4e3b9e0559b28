package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/zclconf/go-cty/cty"
)

// Process roles.
const (
	RoleClient = "client" // control + presentation
	RoleServer = "server" // control + simulation
	RoleBoth   = "both"
)

// Input ring policies.
const (
	PolicyOverwrite = "overwrite"
	PolicyBlock     = "block"
)

// Model is the complete runtime configuration.
type Model struct {
	Runtime  Runtime
	Channels Channels
	Device   Device
	// Modules holds the per-module blocks by module key.
	Modules map[string]*ModuleConfig
}

// Runtime configures the kernels.
type Runtime struct {
	Role          string
	TickRate      float64
	FixedStep     time.Duration
	MaxFixedSteps int
	// HealthcheckPort enables the status endpoint when positive.
	HealthcheckPort int
}

// Channels sizes the inter-thread links.
type Channels struct {
	InputCapacity   int
	InputPolicy     string
	ControlCapacity int
}

// Device selects the presentation backend.
type Device struct {
	Kind   string
	URL    string
	Width  int
	Height int
	// MainThread routes device calls through the process main thread.
	MainThread bool
	// Poll is how long presentation waits for a new snapshot before
	// redrawing the last one. Zero blocks.
	Poll time.Duration
}

// ModuleConfig is one `module "<key>"` block.
type ModuleConfig struct {
	Key string
	// Enabled overrides the module's declared default when set.
	Enabled *bool
	// Instances overrides the instance count when positive.
	Instances int
	Settings  cty.Value
}

// Default returns the built-in configuration.
func Default() *Model {
	return &Model{
		Runtime: Runtime{
			Role:          RoleBoth,
			TickRate:      60,
			FixedStep:     time.Second / 60,
			MaxFixedSteps: 5,
		},
		Channels: Channels{
			InputCapacity:   64,
			InputPolicy:     PolicyOverwrite,
			ControlCapacity: 32,
		},
		Device: Device{
			Kind:   "null",
			Width:  80,
			Height: 24,
		},
		Modules: make(map[string]*ModuleConfig),
	}
}

// Module returns the block for key, or nil.
func (m *Model) Module(key string) *ModuleConfig {
	return m.Modules[key]
}

// AddModule stores mc, rejecting a second block for the same key.
func (m *Model) AddModule(mc *ModuleConfig) error {
	if m.Modules == nil {
		m.Modules = make(map[string]*ModuleConfig)
	}
	if _, exists := m.Modules[mc.Key]; exists {
		return fmt.Errorf("duplicate module block %q", mc.Key)
	}
	m.Modules[mc.Key] = mc
	return nil
}

// Validate checks value ranges. All problems are reported together.
func (m *Model) Validate() error {
	var errs []error
	if _, err := RoleMask(m.Runtime.Role); err != nil {
		errs = append(errs, err)
	}
	if m.Runtime.TickRate < 0 {
		errs = append(errs, fmt.Errorf("runtime.tick_rate must not be negative, got %g", m.Runtime.TickRate))
	}
	if m.Runtime.FixedStep <= 0 {
		errs = append(errs, fmt.Errorf("runtime.fixed_step must be positive, got %s", m.Runtime.FixedStep))
	}
	if m.Runtime.MaxFixedSteps < 1 {
		errs = append(errs, fmt.Errorf("runtime.max_fixed_steps must be at least 1, got %d", m.Runtime.MaxFixedSteps))
	}
	if m.Runtime.HealthcheckPort < 0 || m.Runtime.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("runtime.healthcheck_port out of range: %d", m.Runtime.HealthcheckPort))
	}
	if m.Channels.InputCapacity < 1 {
		errs = append(errs, fmt.Errorf("channels.input_capacity must be at least 1, got %d", m.Channels.InputCapacity))
	}
	if _, err := m.Channels.Policy(); err != nil {
		errs = append(errs, err)
	}
	if m.Channels.ControlCapacity < 1 {
		errs = append(errs, fmt.Errorf("channels.control_capacity must be at least 1, got %d", m.Channels.ControlCapacity))
	}
	if m.Device.Width < 0 || m.Device.Height < 0 {
		errs = append(errs, fmt.Errorf("device size must not be negative, got %dx%d", m.Device.Width, m.Device.Height))
	}
	if m.Device.Poll < 0 {
		errs = append(errs, fmt.Errorf("device.poll must not be negative, got %s", m.Device.Poll))
	}
	for key, mc := range m.Modules {
		if mc.Instances < 0 {
			errs = append(errs, fmt.Errorf("module %q: instances must not be negative, got %d", key, mc.Instances))
		}
	}
	return errors.Join(errs...)
}

// RoleMask maps a process role name to the kernels it runs.
func RoleMask(role string) (lifecycle.AffinityMask, error) {
	switch role {
	case RoleClient:
		return lifecycle.MaskOfAffinities(lifecycle.Control, lifecycle.Presentation), nil
	case RoleServer:
		return lifecycle.MaskOfAffinities(lifecycle.Control, lifecycle.Simulation), nil
	case RoleBoth, "":
		return lifecycle.AllAffinities, nil
	}
	return 0, fmt.Errorf("unknown role %q (want %s, %s or %s)", role, RoleClient, RoleServer, RoleBoth)
}

// Policy returns the ring policy named by InputPolicy.
func (c Channels) Policy() (channels.FullPolicy, error) {
	switch c.InputPolicy {
	case PolicyOverwrite, "":
		return channels.Overwrite, nil
	case PolicyBlock:
		return channels.Block, nil
	}
	return 0, fmt.Errorf("unknown channels.input_policy %q (want %s or %s)", c.InputPolicy, PolicyOverwrite, PolicyBlock)
}

// IsEnabled reports whether the module should load, given its declared
// default.
func (mc *ModuleConfig) IsEnabled(declared bool) bool {
	if mc == nil || mc.Enabled == nil {
		return declared
	}
	return *mc.Enabled
}

// Set assigns *src to *dst when src is non-nil. Loaders use it to overlay
// optional file values on the defaults.
func Set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// SetDuration parses src into *dst when src is non-nil.
func SetDuration(dst *time.Duration, name string, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
