// Package version reports the build identity of the tabshell binary.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/tabshell"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/tabshell/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Module   string `json:"module"`
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
}

// Current returns the version string without a dirty suffix.
func Current() string {
	return Read().Version
}

// Module returns the main module path.
func Module() string {
	return Read().Module
}

// Read collects the build identity from the linker flag or the embedded
// build info, in that order.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	out := fromBuildInfo(info)
	if v := strings.TrimSpace(buildVersion); v != "" {
		out.Version = strings.TrimSuffix(v, "+dirty")
	}
	return out
}

func fromBuildInfo(info *debug.BuildInfo) Info {
	out := Info{Module: defaultModule, Version: unknownVersion}
	if info == nil {
		return out
	}
	if path := strings.TrimSpace(info.Main.Path); path != "" {
		out.Module = path
	}
	var vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			out.Dirty = setting.Value == "true"
		}
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		out.Version = strings.TrimSuffix(v, "+dirty")
		return out
	}
	if v := pseudoVersion(out.Revision, vcsTime); v != "" {
		out.Version = v
	}
	return out
}

// pseudoVersion builds a go-style pseudo version from vcs stamps.
func pseudoVersion(revision, vcsTime string) string {
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + revision
}
