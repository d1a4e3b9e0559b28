// Package hclconfig loads runtime configuration from HCL files.
//
//	runtime {
//	  role       = "both"
//	  tick_rate  = 60
//	  fixed_step = "16ms"
//	}
//
//	module "physics" {
//	  instances = 1
//	  settings = {
//	    damping = 0.5
//	  }
//	}
package hclconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates an HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot lists every block a file may contain.
type fileRoot struct {
	Runtime  *runtimeBlock  `hcl:"runtime,block"`
	Channels *channelsBlock `hcl:"channels,block"`
	Device   *deviceBlock   `hcl:"device,block"`
	Modules  []*moduleBlock `hcl:"module,block"`
}

type runtimeBlock struct {
	Role            *string  `hcl:"role,optional"`
	TickRate        *float64 `hcl:"tick_rate,optional"`
	FixedStep       *string  `hcl:"fixed_step,optional"`
	MaxFixedSteps   *int     `hcl:"max_fixed_steps,optional"`
	HealthcheckPort *int     `hcl:"healthcheck_port,optional"`
}

type channelsBlock struct {
	InputCapacity   *int    `hcl:"input_capacity,optional"`
	InputPolicy     *string `hcl:"input_policy,optional"`
	ControlCapacity *int    `hcl:"control_capacity,optional"`
}

type deviceBlock struct {
	Kind       *string `hcl:"kind,optional"`
	URL        *string `hcl:"url,optional"`
	Width      *int    `hcl:"width,optional"`
	Height     *int    `hcl:"height,optional"`
	MainThread *bool   `hcl:"main_thread,optional"`
	Poll       *string `hcl:"poll,optional"`
}

type moduleBlock struct {
	Key       string         `hcl:"key,label"`
	Enabled   *bool          `hcl:"enabled,optional"`
	Instances *int           `hcl:"instances,optional"`
	Settings  hcl.Expression `hcl:"settings,optional"`
}

// Load parses path and overlays it on config.Default.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decode(ctx, file.Body)
}

// LoadBytes parses src as if it were read from filename.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	return l.decode(ctx, file.Body)
}

func (l *Loader) decode(ctx context.Context, body hcl.Body) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	m := config.Default()
	if err := applyRuntime(&m.Runtime, root.Runtime); err != nil {
		return nil, err
	}
	if c := root.Channels; c != nil {
		config.Set(&m.Channels.InputCapacity, c.InputCapacity)
		config.Set(&m.Channels.InputPolicy, c.InputPolicy)
		config.Set(&m.Channels.ControlCapacity, c.ControlCapacity)
	}
	if err := applyDevice(&m.Device, root.Device); err != nil {
		return nil, err
	}
	for _, block := range root.Modules {
		mc, err := translateModule(ctx, block)
		if err != nil {
			return nil, err
		}
		if err := m.AddModule(mc); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "role", m.Runtime.Role, "modules", len(m.Modules))
	return m, nil
}

func applyRuntime(dst *config.Runtime, b *runtimeBlock) error {
	if b == nil {
		return nil
	}
	config.Set(&dst.Role, b.Role)
	config.Set(&dst.TickRate, b.TickRate)
	config.Set(&dst.MaxFixedSteps, b.MaxFixedSteps)
	config.Set(&dst.HealthcheckPort, b.HealthcheckPort)
	return config.SetDuration(&dst.FixedStep, "runtime.fixed_step", b.FixedStep)
}

func applyDevice(dst *config.Device, b *deviceBlock) error {
	if b == nil {
		return nil
	}
	config.Set(&dst.Kind, b.Kind)
	config.Set(&dst.URL, b.URL)
	config.Set(&dst.Width, b.Width)
	config.Set(&dst.Height, b.Height)
	config.Set(&dst.MainThread, b.MainThread)
	return config.SetDuration(&dst.Poll, "device.poll", b.Poll)
}

// translateModule evaluates a module block. Settings are evaluated without
// variables or functions, so they must be literal values.
func translateModule(ctx context.Context, b *moduleBlock) (*config.ModuleConfig, error) {
	mc := &config.ModuleConfig{
		Key:      b.Key,
		Enabled:  b.Enabled,
		Settings: cty.NullVal(cty.DynamicPseudoType),
	}
	config.Set(&mc.Instances, b.Instances)

	if isExprDefined(ctx, b.Settings, "settings") {
		val, diags := b.Settings.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("module %q settings: %w", b.Key, diags)
		}
		mc.Settings = val
	}
	return mc, nil
}

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted optional expressions with a zero-width
// placeholder, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checked optional HCL attribute.",
		"attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}
