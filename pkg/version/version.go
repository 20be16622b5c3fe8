// Package version reports build metadata for the firmckpt binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/firmckpt/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const revisionKey = "vcs.revision"

// InitBinaryVersion fills Version and Commit from the module build info
// when ldflags did not set them, as with go install.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit == "none" {
		for _, setting := range info.Settings {
			if setting.Key == revisionKey {
				Commit = setting.Value
			}
		}
	}
}

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("firmckpt %s (commit: %s, built: %s)", Version, Commit, Date)
}
