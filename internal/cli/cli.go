package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/tricore/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Without a configuration file the runtime starts from the defaults.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("tricore", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Tricore - a three-kernel real-time runtime: control, simulation and presentation.

Usage:
  tricore [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a .hcl, .yaml or .yml runtime configuration file.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the runtime configuration file.")
	cFlag := flagSet.String("c", "", "Path to the runtime configuration file (shorthand).")
	roleFlag := flagSet.String("role", "", "Kernels to run. Options: 'client', 'server' or 'both'. Overrides the file.")
	tickFlag := flagSet.Float64("tick-rate", 0, "Frames per second for the control and simulation loops. 0 keeps the file value.")
	durationFlag := flagSet.Duration("duration", 0, "Stop after this long, e.g. '30s'. 0 runs until interrupted.")
	deviceFlag := flagSet.String("device", "", "Presentation device. Options: 'null', 'terminal' or 'socketio'.")
	deviceURLFlag := flagSet.String("device-url", "", "Server URL for the socketio device.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err)
	}
	slog.Debug("Arguments parsed successfully.")

	path := *configFlag
	if path == "" {
		path = *cFlag
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected at most one configuration path, got %d", flagSet.NArg())
	}
	if flagSet.NArg() == 1 {
		if path != "" {
			return nil, false, usageError("configuration path given both as a flag and an argument")
		}
		path = flagSet.Arg(0)
	}
	slog.Debug("Configuration path determined.", "path", path)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:      path,
		Role:            strings.ToLower(*roleFlag),
		TickRate:        *tickFlag,
		Device:          strings.ToLower(*deviceFlag),
		DeviceURL:       *deviceURLFlag,
		HealthcheckPort: *healthPortFlag,
		Duration:        *durationFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, usageError("%s", err)
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
