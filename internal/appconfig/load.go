package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TABCAST_HTTP_ADDR for http.addr.
const EnvPrefix = "TABCAST"

const defaultHeader = "# tabcast configuration. Environment variables " + EnvPrefix + "_<SECTION>_<KEY> override these values.\n"

// Load reads configuration from path, or DefaultConfigPath when path is empty.
// A missing file is not an error; defaults and environment overrides still apply.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := newViper(cfg)
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := checkVersion(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Browser.ExecPath = expandPath(cfg.Browser.ExecPath)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// newViper registers every key with its default so environment overrides reach Unmarshal.
func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"config_version":              cfg.ConfigVersion,
		"http.addr":                   cfg.HTTP.Addr,
		"http.poll_interval_ms":       cfg.HTTP.PollIntervalMS,
		"browser.mode":                cfg.Browser.Mode,
		"browser.url":                 cfg.Browser.URL,
		"browser.new_tab_url":         cfg.Browser.NewTabURL,
		"browser.search_url":          cfg.Browser.SearchURL,
		"browser.width":               cfg.Browser.Width,
		"browser.height":              cfg.Browser.Height,
		"browser.exec_path":           cfg.Browser.ExecPath,
		"browser.bounds_poll_ms":      cfg.Browser.BoundsPollMS,
		"browser.navigate_timeout_ms": cfg.Browser.NavigateTimeoutMS,
		"browser.flags":               cfg.Browser.Flags,
		"capture.strategy":            cfg.Capture.Strategy,
		"capture.quality":             cfg.Capture.Quality,
		"capture.max_width":           cfg.Capture.MaxWidth,
		"capture.interval_ms":         cfg.Capture.IntervalMS,
		"capture.settle_ms":           cfg.Capture.SettleMS,
		"capture.timeout_ms":          cfg.Capture.TimeoutMS,
		"metrics.addr":                cfg.Metrics.Addr,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// checkVersion requires files to declare the schema version they were written for.
func checkVersion(v *viper.Viper) error {
	if !v.InConfig("config_version") {
		return fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
	}
	if got := v.GetInt("config_version"); got != CurrentConfigVersion {
		return fmt.Errorf("unsupported config_version %d; expected %d", got, CurrentConfigVersion)
	}
	return nil
}

// Validate checks settings that cannot be defaulted.
func Validate(cfg Config) error {
	switch cfg.Browser.Mode {
	case ModeHeadless, ModeWindow:
	default:
		return fmt.Errorf("unsupported browser.mode %q", cfg.Browser.Mode)
	}
	switch cfg.Capture.Strategy {
	case StrategyAuto, StrategyPush, StrategyPull:
	default:
		return fmt.Errorf("unsupported capture.strategy %q", cfg.Capture.Strategy)
	}
	if cfg.Capture.Quality < 1 || cfg.Capture.Quality > 100 {
		return fmt.Errorf("capture.quality must be between 1 and 100")
	}
	if cfg.Browser.Width <= 0 || cfg.Browser.Height <= 0 {
		return fmt.Errorf("browser.width and browser.height must be positive")
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr is required")
	}
	for _, field := range []struct{ key, value string }{
		{"browser.url", cfg.Browser.URL},
		{"browser.new_tab_url", cfg.Browser.NewTabURL},
		{"browser.search_url", cfg.Browser.SearchURL},
	} {
		parsed, err := url.Parse(strings.TrimSpace(field.value))
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("%s must be an absolute url (e.g. https://example.com)", field.key)
		}
	}
	return nil
}

// expandPath resolves a leading ~ and $VAR references. Unset variables expand to "".
func expandPath(value string) string {
	if value == "" {
		return value
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			value = home + value[1:]
		}
	}
	return os.ExpandEnv(value)
}

// WriteDefault writes the default config to path, or DefaultConfigPath when empty, and returns the path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("config already exists at %s", path)
		}
		return "", err
	}
	if _, err := f.WriteString(defaultHeader); err != nil {
		_ = f.Close()
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
