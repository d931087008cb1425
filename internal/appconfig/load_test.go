package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8765" || cfg.Browser.URL != "https://example.com" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  addr: "127.0.0.1:9000"
browser:
  mode: window
  width: 640
capture:
  quality: 60
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" || cfg.Browser.Mode != ModeWindow || cfg.Browser.Width != 640 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Browser.Height != 800 || cfg.HTTP.PollIntervalMS != 100 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Capture.Quality != 60 {
		t.Fatalf("expected quality 60, got %d", cfg.Capture.Quality)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":1"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedMode(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
browser:
  mode: kiosk
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported browser.mode") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedStrategy(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
capture:
  strategy: stream
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported capture.strategy") {
		t.Fatalf("expected strategy error, got %v", err)
	}
}

func TestLoadRejectsRelativeURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
browser:
  new_tab_url: example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "browser.new_tab_url") {
		t.Fatalf("expected url error, got %v", err)
	}
}

func TestLoadExpandsExecPath(t *testing.T) {
	t.Setenv("CHROME_HOME", "/opt/chrome")
	path := writeConfig(t, `
config_version: 1
browser:
  exec_path: $CHROME_HOME/chrome
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Browser.ExecPath != "/opt/chrome/chrome" {
		t.Fatalf("unexpected exec path %q", cfg.Browser.ExecPath)
	}
}

func TestLoadBrowserFlags(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
browser:
  flags:
    disable-gpu: "true"
    lang: en-US
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]string{"disable-gpu": "true", "lang": "en-US"}
	if diff := cmp.Diff(want, cfg.Browser.Flags); diff != "" {
		t.Fatalf("unexpected flags (-want +got):\n%s", diff)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("HOME", "/home/tester")
	if got := expandPath("$FOO/chrome"); got != "bar/chrome" {
		t.Fatalf("expected env expansion, got %q", got)
	}
	if got := expandPath("~/bin/chrome"); got != "/home/tester/bin/chrome" {
		t.Fatalf("expected home expansion, got %q", got)
	}
	if got := expandPath("/opt/$TABCAST_UNSET_VAR/chrome"); got != "/opt//chrome" {
		t.Fatalf("expected unset vars to vanish, got %q", got)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TABCAST_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("TABCAST_CAPTURE_STRATEGY", "pull")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" || cfg.Capture.Strategy != StrategyPull {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("unexpected version %d", cfg.ConfigVersion)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written default: %v", err)
	}
	if !strings.HasPrefix(string(data), "# tabcast configuration") {
		t.Fatalf("expected header comment, got %q", data)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
