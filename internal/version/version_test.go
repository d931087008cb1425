package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func stampedInfo(modified string) *debug.BuildInfo {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	return &debug.BuildInfo{
		Main: debug.Module{Path: "pkt.systems/tabcast", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: modified},
		},
	}
}

func TestOverrideWins(t *testing.T) {
	got := fromBuildInfo(stampedInfo("false"), "v1.2.3")
	if got.Version != "v1.2.3" {
		t.Fatalf("expected override, got %q", got.Version)
	}
}

func TestPseudoVersionFromVCS(t *testing.T) {
	got := fromBuildInfo(stampedInfo("true"), "")
	if got.Version != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected version %q", got.Version)
	}
	if !got.Dirty || got.Revision != "1234567890ab" {
		t.Fatalf("unexpected vcs details %+v", got)
	}
	if !strings.Contains(got.String(), "dirty") {
		t.Fatalf("expected dirty marker in %q", got.String())
	}
}

func TestUnknownWithoutBuildInfo(t *testing.T) {
	got := fromBuildInfo(nil, "")
	if got.Version != "v0.0.0-unknown" || got.Module != defaultModule {
		t.Fatalf("unexpected info %+v", got)
	}
}
