// Package config defines launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Settings type holds the release repositories, update channel, install
// directory and launch parameters. DataDir resolves the per-user directory
// where settings, state and the installed game live.
package config
