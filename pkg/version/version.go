// Package version reports the searchindex build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version, Commit and Date are overridden with -ldflags "-X ..." by release
// builds. Commit and Date fall back to the VCS stamp of the binary.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form of the version command.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String is the one-line banner printed by "searchindex version".
func String() string {
	info := GetInfo()
	commit := info.Commit
	if info.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("searchindex %s (commit: %s, built: %s, go: %s)",
		info.Version, commit, info.Date, info.GoVersion)
}

// Short returns Version.
func Short() string {
	return Version
}

// GetInfo returns the build information of the running binary.
func GetInfo() BuildInfo {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

func resolve(bi *debug.BuildInfo) BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi == nil {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
