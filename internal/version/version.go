package version

import "fmt"

var (
	// Version is the release of the recovery tools. It can be overridden via ldflags.
	Version = "0.3.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string for the named program.
func Full(program string) string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", program, Version, Commit, BuildTime)
}
