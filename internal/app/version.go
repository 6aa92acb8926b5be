package app

import "github.com/prometheus/common/version"

// Version is the semantic version of edgemcp, set at build time via -ldflags.
var Version = "dev"

// Build is the git commit hash or build identifier, set at build time via -ldflags.
var Build = "unknown"

// syncBuildInfo publishes Version and Build into the shared build info
// read by the metrics collector and the startup log line.
func syncBuildInfo() {
	version.Version = Version
	version.Revision = Build
}
