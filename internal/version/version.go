// Package version holds build metadata, overridden with -ldflags at release time.
package version

var (
	// Version is the semantic version
	Version = "0.1.0"

	// Commit is the git commit the binary was built from
	Commit = "unknown"
)
