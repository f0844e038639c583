// Package consts houses the build information of abilinker.
package consts

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version contains the current semantic version of abilinker.
const Version = "0.4.0"

// VersionDetails returns the version together with the VCS and toolchain
// details embedded in the binary.
func VersionDetails() map[string]string {
	details := map[string]string{
		"version":    "v" + Version,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return details
	}

	var revision, dirty string
	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 10 {
				revision = revision[:10]
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if revision != "" {
		details["commit"] = revision + dirty
	}
	return details
}

// FullVersion returns the version with the commit and the toolchain in a
// single line.
func FullVersion() string {
	details := VersionDetails()
	parts := []string{details["go_version"], details["go_os"] + "/" + details["go_arch"]}
	if commit, ok := details["commit"]; ok {
		parts = append([]string{"commit/" + commit}, parts...)
	}
	return fmt.Sprintf("%s (%s)", details["version"], strings.Join(parts, ", "))
}
