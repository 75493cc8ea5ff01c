package version

import "fmt"

var (
	// Version is the release of the updater. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the release string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("factorio-modupdate %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// UserAgent returns the User-Agent header sent to the mod portal.
func UserAgent() string {
	return "factorio-modupdate/" + Version
}
