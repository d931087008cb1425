package appconfig

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Browser       BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Capture       CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Metrics       MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Browser modes.
const (
	ModeHeadless = "headless"
	ModeWindow   = "window"
)

// Capture strategies. An empty strategy follows the browser mode.
const (
	StrategyAuto = ""
	StrategyPush = "push"
	StrategyPull = "pull"
)

// HTTPConfig configures the stream server.
type HTTPConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// BrowserConfig configures the rendering surface.
type BrowserConfig struct {
	Mode              string `mapstructure:"mode" yaml:"mode"`
	URL               string `mapstructure:"url" yaml:"url"`
	NewTabURL         string `mapstructure:"new_tab_url" yaml:"new_tab_url"`
	SearchURL         string `mapstructure:"search_url" yaml:"search_url"`
	Width             int    `mapstructure:"width" yaml:"width"`
	Height            int    `mapstructure:"height" yaml:"height"`
	ExecPath          string `mapstructure:"exec_path" yaml:"exec_path"`
	BoundsPollMS      int    `mapstructure:"bounds_poll_ms" yaml:"bounds_poll_ms"`
	NavigateTimeoutMS int    `mapstructure:"navigate_timeout_ms" yaml:"navigate_timeout_ms"`
	// Flags are extra Chrome switches, e.g. disable-gpu: "true".
	Flags map[string]string `mapstructure:"flags" yaml:"flags"`
}

// CaptureConfig configures frame production.
type CaptureConfig struct {
	Strategy   string `mapstructure:"strategy" yaml:"strategy"`
	Quality    int    `mapstructure:"quality" yaml:"quality"`
	MaxWidth   int    `mapstructure:"max_width" yaml:"max_width"`
	IntervalMS int    `mapstructure:"interval_ms" yaml:"interval_ms"`
	SettleMS   int    `mapstructure:"settle_ms" yaml:"settle_ms"`
	TimeoutMS  int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		HTTP: HTTPConfig{
			Addr:           ":8765",
			PollIntervalMS: 100,
		},
		Browser: BrowserConfig{
			Mode:              ModeHeadless,
			URL:               "https://example.com",
			NewTabURL:         "https://example.com",
			SearchURL:         "https://www.google.com/search?q=",
			Width:             1200,
			Height:            800,
			ExecPath:          "",
			BoundsPollMS:      250,
			NavigateTimeoutMS: 10000,
			Flags:             map[string]string{},
		},
		Capture: CaptureConfig{
			Strategy:   StrategyAuto,
			Quality:    80,
			MaxWidth:   0,
			IntervalMS: 50,
			SettleMS:   50,
			TimeoutMS:  5000,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabcast", "config.yaml"), nil
}

// Headless reports whether the browser runs without a window.
func (c BrowserConfig) Headless() bool {
	return c.Mode != ModeWindow
}

// ResolvedStrategy returns the effective capture strategy for mode.
func (c CaptureConfig) ResolvedStrategy(mode string) string {
	if c.Strategy != StrategyAuto {
		return c.Strategy
	}
	if mode == ModeWindow {
		return StrategyPull
	}
	return StrategyPush
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
