package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/faiface/mainthread"
	"github.com/specialistvlad/tricore/internal/app"
	"github.com/specialistvlad/tricore/internal/cli"
	"go.uber.org/automaxprocs/maxprocs"
)

// main is the entrypoint for the tricore runtime. The kernels run on their
// own locked OS threads; the main thread stays free for devices that must
// be driven from it.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		slog.Warn("Failed to set GOMAXPROCS.", "error", err)
	}

	var (
		status int
		err    error
	)
	mainthread.Run(func() {
		status, err = run(os.Stdout, os.Args[1:])
	})
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(status)
}

// run parses the arguments, builds the application and runs it to
// completion, returning the process exit status.
func run(outW io.Writer, args []string) (status int, err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return 0, err
	}
	if shouldExit {
		return 0, nil
	}

	// NewApp panics on configuration errors; report them as a plain error.
	defer func() {
		if r := recover(); r != nil {
			status, err = 1, fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	tricore := app.NewApp(outW, appConfig)
	code := tricore.Run(context.Background())
	return code.ProcessStatus(), nil
}
