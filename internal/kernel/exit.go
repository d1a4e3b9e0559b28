package kernel

import (
	"context"
	"errors"
)

// ExitCode is a kernel's outcome. Codes are ordered by severity, so the
// worst of several is the maximum.
type ExitCode int32

const (
	ExitOK ExitCode = iota
	ExitCanceled
	ExitRecoverable
	ExitFatal
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitCanceled:
		return "canceled"
	case ExitRecoverable:
		return "recoverable"
	case ExitFatal:
		return "fatal"
	}
	return "unknown"
}

// ProcessStatus maps the code to a process exit status. A canceled run is a
// normal stop.
func (c ExitCode) ProcessStatus() int {
	switch c {
	case ExitOK, ExitCanceled:
		return 0
	case ExitRecoverable:
		return 3
	}
	return 1
}

// Worst returns the most severe of codes, ExitOK for none.
func Worst(codes ...ExitCode) ExitCode {
	worst := ExitOK
	for _, c := range codes {
		if c > worst {
			worst = c
		}
	}
	return worst
}

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// Recoverable marks err as a failure the process may restart from. A kernel
// that stops with it exits with ExitRecoverable instead of ExitFatal.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// IsRecoverable reports whether err was marked with Recoverable.
func IsRecoverable(err error) bool {
	var r *recoverableError
	return errors.As(err, &r)
}

// classify maps the error that ended a kernel to its exit code. Only errors
// caused by ctx itself count as cancellation.
func classify(ctx context.Context, err error) ExitCode {
	switch {
	case err == nil:
		return ExitOK
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return ExitCanceled
	case IsRecoverable(err):
		return ExitRecoverable
	}
	return ExitFatal
}
