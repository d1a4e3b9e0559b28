// Package app assembles a runtime from configuration: it loads the config
// file, discovers the module catalog, creates the channels and kernels for
// the selected role, and runs them until they stop. It is decoupled from
// any specific entrypoint like a CLI.
package app
