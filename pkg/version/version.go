// Package version provides build and version information for geocache.
package version

import (
	"fmt"
	"runtime"
)

// Version is set via ldflags at build time, or defaults to dev.
var Version = "dev"

// Commit and Date are set via ldflags at build time.
var (
	Commit = "unknown"
	Date   = "unknown"
)

// String returns a formatted version string with build info.
func String() string {
	return fmt.Sprintf("geocache %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, runtime.Version())
}
