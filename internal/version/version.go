// Package version provides build version information for the application.
// This is a separate package to avoid import cycles between cli and app packages.
package version

// Version is the build version string, set by ldflags during build.
// Format: vX.Y.Z or vX.Y.Z-dev for development builds.
// v2.3.1: second-instance hand-off now absolutizes relative path arguments
var Version = "v2.3.1"

// BuildTime is the build timestamp, set by ldflags during build.
var BuildTime = "unknown"
