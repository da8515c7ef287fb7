// Package buildinfo holds the version stamped into the libro binary by the
// release build through -ldflags "-X".
package buildinfo

import "fmt"

// Stamped at link time; local builds keep the defaults.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for `libro --version`. Local builds
// report only the version.
func String() string {
	if Commit == "none" {
		return Version
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
