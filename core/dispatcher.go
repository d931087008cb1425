package core

import (
	"context"
	"errors"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/internal/logx"
	"pkt.systems/tabcast/schema"
)

// Surface is the rendering surface the dispatcher drives.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script string) error
}

// CommandRecorder observes dispatched commands.
type CommandRecorder interface {
	RecordCommand(kind string, outcome string)
}

// Command outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRefused  = "refused"
	OutcomeNotFound = "not_found"
	OutcomeIgnored  = "ignored"
)

// Effect is what a command requires from the rendering surface once the registry is updated.
type Effect struct {
	Outcome string
	// Tab is the tab a switch or close targeted, resolved at dispatch time.
	Tab schema.TabID
	// Navigate is the target to load, empty when no navigation is needed.
	Navigate string
	// Toolbar is set when the toolbar must be re-rendered in place.
	Toolbar bool
	// Event is the registry change to publish, nil when nothing changed.
	Event *schema.TabEvent
}

// Dispatcher applies commands to the registry and drives the rendering surface.
// It is not safe for concurrent use; the UI loop is its only caller.
type Dispatcher struct {
	cfg      DispatcherConfig
	registry *Registry
	surface  Surface
	sink     EventSink
	recorder CommandRecorder
	logger   pslog.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(cfg DispatcherConfig, deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if deps.Surface == nil {
		return nil, errors.New("rendering surface is required")
	}
	if strings.TrimSpace(cfg.NewTabURL) == "" {
		cfg.NewTabURL = "https://example.com"
	}
	if strings.TrimSpace(cfg.SearchURL) == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Dispatcher{
		cfg:      cfg,
		registry: deps.Registry,
		surface:  deps.Surface,
		sink:     deps.EventSink,
		recorder: deps.Recorder,
		logger:   logger,
	}, nil
}

// Registry returns the registry the dispatcher mutates.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Apply commits cmd to the registry and returns the required surface effect.
func (d *Dispatcher) Apply(cmd Command) Effect {
	switch cmd.Kind {
	case CommandPageLoaded:
		return Effect{Outcome: OutcomeApplied, Toolbar: true}
	case CommandNavigate:
		if strings.TrimSpace(cmd.Input) == "" {
			return Effect{Outcome: OutcomeIgnored}
		}
		target := NormalizeURL(strings.TrimSpace(cmd.Input), d.cfg.SearchURL)
		tab, ok := d.registry.NavigateActive(target)
		if !ok {
			return Effect{Outcome: OutcomeNotFound}
		}
		return Effect{
			Outcome:  OutcomeApplied,
			Navigate: target,
			Event:    d.event(schema.TabEventNavigated, tab, tab),
		}
	case CommandNewTab:
		id := d.registry.NewTab(d.cfg.NewTabURL)
		tab := schema.Tab{ID: id, URL: d.cfg.NewTabURL, Title: PlaceholderTitle}
		return Effect{
			Outcome:  OutcomeApplied,
			Navigate: d.cfg.NewTabURL,
			Event:    d.event(schema.TabEventCreated, tab, tab),
		}
	case CommandCloseCurrentTab:
		return d.closeTab(d.registry.ActiveID())
	case CommandCloseTab:
		return d.closeTab(cmd.TabID)
	case CommandSwitchTab:
		tab, ok := d.registry.SwitchTab(cmd.TabID)
		if !ok {
			return Effect{Outcome: OutcomeNotFound, Tab: cmd.TabID}
		}
		return Effect{
			Outcome:  OutcomeApplied,
			Tab:      cmd.TabID,
			Navigate: tab.URL,
			Event:    d.event(schema.TabEventActivated, tab, tab),
		}
	default:
		return Effect{Outcome: OutcomeIgnored}
	}
}

func (d *Dispatcher) closeTab(id schema.TabID) Effect {
	result, err := d.registry.CloseTab(id)
	switch {
	case errors.Is(err, schema.ErrLastTab):
		return Effect{Outcome: OutcomeRefused, Tab: id}
	case errors.Is(err, schema.ErrTabNotFound):
		return Effect{Outcome: OutcomeNotFound, Tab: id, Toolbar: true}
	case err != nil:
		return Effect{Outcome: OutcomeIgnored, Tab: id}
	}
	effect := Effect{
		Outcome: OutcomeApplied,
		Tab:     id,
		Event:   d.event(schema.TabEventClosed, result.Closed, result.Active),
	}
	if result.Navigate {
		effect.Navigate = result.Active.URL
	} else {
		effect.Toolbar = true
	}
	return effect
}

func (d *Dispatcher) event(kind schema.TabEventType, tab, active schema.Tab) *schema.TabEvent {
	return &schema.TabEvent{
		Type:     kind,
		Tab:      tab,
		Active:   active,
		TabCount: d.registry.Len(),
	}
}

// Dispatch applies cmd and performs its effect on the rendering surface.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	log := logx.WithCommand(d.logger, string(cmd.Kind), cmd.Source)
	effect := d.Apply(cmd)
	if effect.Tab > 0 {
		ctx, log = logx.WithTab(pslog.ContextWithLogger(ctx, log), effect.Tab)
	}
	if d.recorder != nil {
		d.recorder.RecordCommand(string(cmd.Kind), effect.Outcome)
	}
	if effect.Event != nil && d.sink != nil {
		d.sink.OnTabEvent(*effect.Event)
	}
	switch effect.Outcome {
	case OutcomeRefused:
		log.Info("dispatch close refused", "reason", schema.ErrLastTab)
	case OutcomeNotFound:
		log.Debug("dispatch tab not found")
	case OutcomeIgnored:
		log.Debug("dispatch command ignored", "command", cmd.String())
	}
	if effect.Navigate != "" {
		log.Info("dispatch navigate", "url", effect.Navigate, "active", d.registry.ActiveID())
		if err := d.surface.Navigate(ctx, effect.Navigate); err != nil {
			log.Warn("dispatch navigate failed", "url", effect.Navigate, "err", err)
			return err
		}
		return nil
	}
	if effect.Toolbar {
		script := ToolbarScript(d.registry.Snapshot())
		if err := d.surface.Evaluate(ctx, script); err != nil {
			log.Warn("dispatch toolbar refresh failed", "err", err)
			return err
		}
		log.Trace("dispatch toolbar refreshed")
	}
	return nil
}
