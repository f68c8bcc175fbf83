// Package version exposes build metadata injected through ldflags and
// renders it for the CLI.
package version
