// Package version provides build-time version information.
package version

import "runtime"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info is the build description reported by the server and CLIs.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build description.
func Get() Info {
	return Info{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit, GoVersion: runtime.Version()}
}

// String formats the version for -version flags.
func String() string {
	return "sprite-suite " + Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
