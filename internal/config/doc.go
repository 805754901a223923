// Package config defines the settings shared by the recovery tools and
// provides helpers to load, validate and save them in YAML format.
//
// The well-known paths (command file, upgrader script, upgrader log) are
// contract points with the packaging tool, so they default to the values
// the recovery image expects and only move for testing or porting.
package config
