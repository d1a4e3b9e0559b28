package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/specialistvlad/tricore/internal/hclconfig"
	"github.com/specialistvlad/tricore/internal/kernel"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	model   *config.Model
	catalog *metadata.Catalog
	roles   lifecycle.AffinityMask

	mu         sync.Mutex
	runID      string
	kernels    []*kernel.Kernel
	httpServer *http.Server
}

// loaders maps configuration file extensions to their loaders.
var loaders = config.Loaders{
	".hcl":  hclconfig.NewLoader(),
	".yaml": yamlconfig.NewLoader(),
	".yml":  yamlconfig.NewLoader(),
}

// NewApp is the constructor for the main application. It loads and
// validates the configuration and builds an isolated module catalog from
// modules, or from the built-in modules when none are given.
//
// Configuration problems are programmer or operator errors at startup, so
// NewApp panics on them; cmd/cli recovers the panic into an exit status.
func NewApp(outW io.Writer, cfg *Config, modules ...metadata.Ref) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := config.Open(ctx, cfg.ConfigPath, loaders)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	cfg.overlay(model)
	if err := model.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	roles, _ := config.RoleMask(model.Runtime.Role)
	logger.Debug("Configuration loaded.", "path", cfg.ConfigPath, "role", model.Runtime.Role, "kernels", roles)

	if len(modules) == 0 {
		modules = coreModules
	}
	catalog := metadata.NewCatalog()
	discovered, err := catalog.Discover(modules...)
	if err != nil {
		panic(fmt.Errorf("failed to discover modules: %w", err))
	}
	logger.Debug("Modules discovered.", "count", len(discovered))

	if err := checkModuleBlocks(model, catalog); err != nil {
		panic(err)
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		model:   model,
		catalog: catalog,
		roles:   roles,
	}
}

// checkModuleBlocks rejects configuration for modules that do not exist and
// instance counts the module cannot honour.
func checkModuleBlocks(m *config.Model, c *metadata.Catalog) error {
	keys := make([]string, 0, len(m.Modules))
	for k := range m.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		d, ok := c.Lookup(key)
		if !ok {
			return &metadata.ConfigError{Key: key, Reason: "configured but not compiled in"}
		}
		if n := m.Modules[key].Instances; n > 1 && !d.AllowMultiple {
			return &metadata.ConfigError{Key: key, Reason: fmt.Sprintf("%d instances requested but only one is allowed", n)}
		}
	}
	return nil
}

// Catalog returns the application's module catalog.
func (a *App) Catalog() *metadata.Catalog { return a.catalog }

// Model returns the effective configuration.
func (a *App) Model() *config.Model { return a.model }

// Roles returns the kernels this process runs.
func (a *App) Roles() lifecycle.AffinityMask { return a.roles }

// Kernels returns the kernels of the current or last run.
func (a *App) Kernels() []*kernel.Kernel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*kernel.Kernel(nil), a.kernels...)
}

// RunID returns the identifier of the current or last run.
func (a *App) RunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runID
}

// selector applies the module blocks: enabled overrides the declared
// default and a positive instance count replaces one.
func (a *App) selector() kernel.Selector {
	return kernel.SelectorFunc(func(d *metadata.Descriptor) (int, error) {
		mc := a.model.Module(d.Key)
		if !mc.IsEnabled(d.Enabled) {
			return 0, nil
		}
		if mc != nil && mc.Instances > 0 {
			return mc.Instances, nil
		}
		return 1, nil
	})
}
