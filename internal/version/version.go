// Package version carries build metadata injected with -ldflags.
package version

import "runtime"

// Name is the binary and product name.
const Name = "alkaris"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `alkaris version`.
func String() string {
	return Name + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
