// Package config defines the format-agnostic runtime configuration: thread
// rates, channel sizes, the presentation device, and per-module blocks with
// free-form settings.
//
// Concrete file formats live in their own packages (hclconfig, yamlconfig)
// and implement Loader. Every loader starts from Default, so a file only
// has to mention what it changes.
package config
