// Package buildinfo reports the version masonry was built from.
//
// Release builds set the variables with ldflags:
//
//	-X github.com/matzehuels/masonry/pkg/buildinfo.Version=v0.3.0
//	-X github.com/matzehuels/masonry/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)
//	-X github.com/matzehuels/masonry/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)
//
// Binaries built with go install fall back to the module version and VCS
// settings embedded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build information served by the HTTP API.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the ldflags values, filled from the embedded build info
// where ldflags left the defaults.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

// Template is the cobra version template.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", i.Version, i.Commit, i.Date)
}
