package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version, overridable via -ldflags "-X".
	Version = "0.1.0"
	// Commit is the short git SHA. When not injected it is read from the module build info.
	Commit = ""
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// shortCommitLength is how many SHA characters are printed.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a one-line description for the named program.
func Full(program string) string {
	return fmt.Sprintf("%s %s (commit: %s, built at: %s, %s)",
		program, Version, commit(), BuildTime, runtime.Version())
}

// commit prefers the injected value and falls back to vcs.revision.
func commit() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "none"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > shortCommitLength {
				return setting.Value[:shortCommitLength]
			}

			return setting.Value
		}
	}

	return "none"
}
