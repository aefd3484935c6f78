// Package config defines release source settings used by the packager and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type names the release repository, the updater asset attached
// to each release and the timeout for remote calls.
package config
