// Package version holds build metadata. Values are overridden at link time:
//
//	go build -ldflags "-X hkexplorer/pkg/version.Version=v1.2.3 -X hkexplorer/pkg/version.Commit=abc123"
package version

// Version is the semantic version of the build.
var Version = "v0.1.0"

// Commit is the VCS revision the binary was built from.
var Commit = "dev"

// Info is the payload served by the version endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Current returns the build metadata.
func Current() Info {
	return Info{Version: Version, Commit: Commit}
}
