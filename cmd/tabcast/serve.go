package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/tabcast"
	"pkt.systems/tabcast/capture"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/httpapi"
	"pkt.systems/tabcast/internal/appconfig"
	"pkt.systems/tabcast/internal/chromium"
	"pkt.systems/tabcast/internal/metrics"
	"pkt.systems/tabcast/schema"
)

type serveFlags struct {
	cfgPath  string
	headless bool
	url      string
	port     int
	width    int
	height   int
	noBanner bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the browser and stream it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(flags.cfgPath)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &cfg, flags)
			if err := appconfig.Validate(cfg); err != nil {
				return err
			}
			strategy := cfg.Capture.ResolvedStrategy(cfg.Browser.Mode)
			logger.Info("browser mode selected", "mode", cfg.Browser.Mode, "strategy", strategy)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			browser, err := chromium.Launch(ctx, chromium.Options{
				Headless:        cfg.Browser.Headless(),
				Width:           cfg.Browser.Width,
				Height:          cfg.Browser.Height,
				ExecPath:        cfg.Browser.ExecPath,
				NavigateTimeout: appconfig.Millis(cfg.Browser.NavigateTimeoutMS),
				ExtraFlags:      cfg.Browser.Flags,
			})
			if err != nil {
				return err
			}
			defer func() { _ = browser.Close() }()

			encoder := capture.Encoder{
				Quality:  cfg.Capture.Quality,
				MaxWidth: cfg.Capture.MaxWidth,
				Timeout:  appconfig.Millis(cfg.Capture.TimeoutMS),
			}
			var source capture.Source
			if cfg.Browser.Headless() {
				source = capture.NewCDPSource(browser, encoder)
			} else {
				source = capture.NewScreenSource(capture.DisplayGrabber{}, encoder)
			}

			server, err := tabcast.New(tabcast.ServerConfig{
				HTTP: httpapi.Config{
					Addr:         cfg.HTTP.Addr,
					PollInterval: appconfig.Millis(cfg.HTTP.PollIntervalMS),
				},
				MetricsAddr: cfg.Metrics.Addr,
				Dispatcher: core.DispatcherConfig{
					NewTabURL: cfg.Browser.NewTabURL,
					SearchURL: cfg.Browser.SearchURL,
				},
				InitialURL: cfg.Browser.URL,
				Strategy:   strategy,
				Capture: capture.LoopConfig{
					Settle:   appconfig.Millis(cfg.Capture.SettleMS),
					Interval: appconfig.Millis(cfg.Capture.IntervalMS),
				},
				WindowPoll: appconfig.Millis(cfg.Browser.BoundsPollMS),
			}, tabcast.ServerDeps{
				Surface:     browser,
				Source:      source,
				Window:      browser,
				InitialRect: schema.Rect{Width: cfg.Browser.Width, Height: cfg.Browser.Height},
				Metrics:     metrics.New(),
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			if !flags.noBanner {
				printBanner(cmd.OutOrStdout(), cfg.HTTP.Addr, isTerminal(cmd.OutOrStdout()))
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&flags.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&flags.headless, "headless", false, "run the browser without a window")
	cmd.Flags().StringVar(&flags.url, "url", "", "initial URL")
	cmd.Flags().IntVar(&flags.port, "port", 0, "stream server port")
	cmd.Flags().IntVar(&flags.width, "width", 0, "browser window width")
	cmd.Flags().IntVar(&flags.height, "height", 0, "browser window height")
	cmd.Flags().BoolVar(&flags.noBanner, "no-banner", false, "do not print the stream URLs")
	return cmd
}

// applyServeFlags overrides config values with flags set on the command line.
func applyServeFlags(cmd *cobra.Command, cfg *appconfig.Config, flags serveFlags) {
	changed := cmd.Flags().Changed
	if changed("headless") {
		if flags.headless {
			cfg.Browser.Mode = appconfig.ModeHeadless
		} else {
			cfg.Browser.Mode = appconfig.ModeWindow
		}
	}
	if changed("url") && strings.TrimSpace(flags.url) != "" {
		cfg.Browser.URL = core.NormalizeURL(strings.TrimSpace(flags.url), cfg.Browser.SearchURL)
	}
	if changed("port") {
		host, _, err := net.SplitHostPort(cfg.HTTP.Addr)
		if err != nil {
			host = ""
		}
		cfg.HTTP.Addr = net.JoinHostPort(host, strconv.Itoa(flags.port))
	}
	if changed("width") {
		cfg.Browser.Width = flags.width
	}
	if changed("height") {
		cfg.Browser.Height = flags.height
	}
}

func printBanner(w io.Writer, addr string, qr bool) {
	base := localBaseURL(addr)
	_, _ = fmt.Fprintf(w, "Live stream: %slive-stream\n", base)
	_, _ = fmt.Fprintf(w, "Viewer: %s\n", base)
	if qr {
		qrterminal.GenerateHalfBlock(base, qrterminal.L, w)
	}
}

func localBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + strings.TrimSuffix(addr, "/") + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
