// Package version reports the build version of the roastery binary.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Overridden with -ldflags "-X github.com/memohai/roastery/internal/version.Version=..." at build time.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

var loadVCS sync.Once

// Info is the build metadata printed by the version command and logged at startup.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// Get returns the build metadata, falling back to the VCS stamp embedded by
// the Go toolchain when no ldflags were given.
func Get() Info {
	loadVCS.Do(func() {
		if CommitHash != "" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				CommitHash = setting.Value
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	})
	return Info{Version: Version, Commit: CommitHash, BuildTime: BuildTime}
}

// String formats the version with a short commit hash, e.g. "v1.2.0 (3f2a9c1)".
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	short := i.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s)", i.Version, short)
}

// GetInfo returns Get().String().
func GetInfo() string {
	return Get().String()
}
