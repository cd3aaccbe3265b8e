// Package version reports the build the binary came from.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/kailas-cloud/pieces/internal/version.Version=...".
//
//nolint:revive
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build on one line. Without ldflags it falls back to the
// module version and VCS revision that `go build` records.
func String() string {
	version, commit, date := Version, Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			version = v
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "unknown":
				commit = s.Value
			case s.Key == "vcs.time" && date == "unknown":
				date = s.Value
			}
		}
	}
	return fmt.Sprintf("pieces %s (commit %s, built %s)", version, commit, date)
}
