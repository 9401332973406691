// Package version holds build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"io"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String describes the build of the named binary.
func String(name string) string {
	return fmt.Sprintf("%s %s (git %s, built %s)", name, Version, GitSHA, BuildTime)
}

// Print writes String(name) and a newline to w.
func Print(w io.Writer, name string) {
	fmt.Fprintln(w, String(name))
}
