// Package version exposes build metadata injected via ldflags and a cobra
// subcommand printing it.
package version
