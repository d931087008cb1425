// Package version reports the build version of the tabcast binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/tabcast"

// buildVersion is set via -ldflags "-X pkt.systems/tabcast/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Version   string
	Module    string
	Revision  string
	Dirty     bool
	GoVersion string
}

// String renders the info as one line for the version command.
func (i Info) String() string {
	line := fmt.Sprintf("%s %s (%s)", i.Module, i.Version, i.GoVersion)
	if i.Revision != "" {
		line += " rev " + i.Revision
	}
	if i.Dirty {
		line += " dirty"
	}
	return line
}

// Read collects version details from the linker flag and the embedded build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

func fromBuildInfo(info *debug.BuildInfo, override string) Info {
	out := Info{Module: defaultModule, GoVersion: runtime.Version()}
	vcs := readVCS(info)
	out.Revision, out.Dirty = vcs.short(), vcs.modified
	if info != nil && strings.TrimSpace(info.Main.Path) != "" {
		out.Module = strings.TrimSpace(info.Main.Path)
	}
	switch {
	case strings.TrimSpace(override) != "":
		out.Version = strings.TrimSpace(override)
	case info != nil && info.Main.Version != "" && info.Main.Version != "(devel)":
		out.Version = strings.TrimSuffix(info.Main.Version, "+dirty")
	case vcs.pseudo() != "":
		out.Version = vcs.pseudo()
	default:
		out.Version = "v0.0.0-unknown"
	}
	return out
}

type vcsInfo struct {
	revision string
	when     time.Time
	modified bool
}

func readVCS(info *debug.BuildInfo) vcsInfo {
	var out vcsInfo
	if info == nil {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				out.when = parsed.UTC()
			}
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

func (v vcsInfo) short() string {
	if len(v.revision) > 12 {
		return v.revision[:12]
	}
	return v.revision
}

// pseudo formats a Go-style pseudo version from the VCS stamp.
func (v vcsInfo) pseudo() string {
	if v.revision == "" || v.when.IsZero() {
		return ""
	}
	return "v0.0.0-" + v.when.Format("20060102150405") + "-" + v.short()
}
