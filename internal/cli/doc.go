// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the app.Config whose non-zero fields override
// the runtime configuration file.
package cli
