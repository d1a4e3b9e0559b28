package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/tricore/internal/ctxlog"
)

// Loader reads one configuration file into a Model.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}

// Loaders maps a file extension, including the dot, to the loader for it.
type Loaders map[string]Loader

// Open loads path with the loader registered for its extension and
// validates the result. An empty path yields the defaults.
func Open(ctx context.Context, path string, loaders Loaders) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No configuration file given, using defaults.")
		return Default(), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := loaders[ext]
	if !ok {
		known := make([]string, 0, len(loaders))
		for k := range loaders {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("no configuration loader for %q (known: %s)", path, strings.Join(known, ", "))
	}

	logger.Debug("Loading configuration.", "path", path, "format", ext)
	m, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return m, nil
}
