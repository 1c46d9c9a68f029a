// Package app wires configuration, logging, state, the platform client and
// the bot controller into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"windfarm/internal/bot"
	"windfarm/internal/config"
	"windfarm/internal/eventbus"
	"windfarm/internal/observability/debugsrv"
	"windfarm/internal/platform"
	twitterclient "windfarm/internal/platform/twitter"
	"windfarm/internal/runtime/supervisor"
	"windfarm/internal/state"
	"windfarm/internal/storage"
	logx "windfarm/pkg/logx"
	"windfarm/pkg/systemd"
)

const DefaultConfigPath = "./windfarm.yaml"

type Options struct {
	ConfigPath string
	// ConfigRequired makes a missing config file an error. Otherwise the
	// embedded defaults plus environment overrides are used.
	ConfigRequired bool
	// Client replaces the Twitter client (tests).
	Client platform.Client
	// Watch enables config hot reload while running.
	Watch bool
}

type App struct {
	cfgm    *config.Manager
	log     logx.Logger
	logs    *logx.Service
	bus     eventbus.Bus
	store   storage.Store
	cursors *state.Cursors
	client  *platform.Limited
	bot     *bot.Controller
	sd      *systemd.Notifier
	debug   *debugsrv.Server
	watch   bool

	sup *supervisor.Supervisor
}

// New loads the config and builds every component. Configuration problems
// are returned as *config.Error.
func New(ctx context.Context, opts Options) (*App, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	cfgm := config.NewManager(path, !opts.ConfigRequired)
	// Reject hot reloads the bot could not run with.
	cfgm.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if _, err := mapPlatformConfig(cfg); err != nil {
			return err
		}
		_, err := bot.Compile(cfg)
		return err
	})
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg), nil)
	sender, err := mapAlertSender(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	if sender != nil {
		logs.SetAlertSender(sender)
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	log.Debug("config loaded", logx.String("path", path))

	a := &App{
		cfgm:  cfgm,
		log:   log.With(logx.String("comp", "app")),
		logs:  logs,
		bus:   eventbus.New(),
		sd:    systemd.New(log),
		watch: opts.Watch,
	}
	a.debug = debugsrv.New(log, a.status)
	if err := a.build(ctx, cfg, opts.Client); err != nil {
		_ = a.Close(context.Background(), StopFatalError)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, client platform.Client) error {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	a.store, err = storage.Open(sc, a.log)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.cursors, err = state.Load(ctx, a.store, a.log)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	ps, err := mapPlatformConfig(cfg)
	if err != nil {
		return err
	}
	if client == nil {
		if err := cfg.APIKeys.Check(); err != nil {
			return err
		}
		tc, err := twitterclient.New(ps.client, a.log)
		if err != nil {
			return err
		}
		client = tc
	}
	a.client = platform.NewLimited(client, ps.rps, ps.burst)

	a.bot, err = bot.New(cfg, a.client, a.cursors,
		bot.WithLogger(a.log),
		bot.WithBus(a.bus),
		bot.WithReady(func() { a.sd.Ready() }),
	)
	return err
}

// Authenticate verifies the platform credentials.
func (a *App) Authenticate(ctx context.Context) error {
	return a.bot.Authenticate(ctx)
}

// Clear deletes the bot's timeline.
func (a *App) Clear(ctx context.Context) error {
	return a.bot.Clear(ctx)
}

// Run starts background services and the bot, and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e := <-events:
				// Keep this debug-level; every timer publishes.
				a.log.Debug("event", logx.String("type", e.Type), logx.String("task", e.Task), logx.Any("data", e.Data))
			}
		}
	})

	if a.watch {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			last := a.cfgm.Get()
			for {
				select {
				case <-c.Done():
					return
				case next, ok := <-sub:
					if !ok {
						return
					}
					// Coalesce bursts: keep only the latest config.
				drain:
					for {
						select {
						case newer := <-sub:
							if newer != nil {
								next = newer
							}
						default:
							break drain
						}
					}
					a.applyConfig(last, next)
					last = next
				}
			}
		})
		a.sup.Go("config.watch", a.cfgm.Watch)
	}
	a.sup.Go("systemd.watchdog", a.sd.Watchdog)
	if err := a.debug.Reconfigure(ctx, mapDebugConfig(a.cfgm.Get())); err != nil {
		a.log.Warn("debug server not started", logx.Err(err))
	}

	a.log.Info("started", logx.String("screen_name", a.bot.Identity().ScreenName))
	err := a.bot.Run(ctx)
	a.sd.Stopping()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (a *App) applyConfig(prev, next *config.Config) {
	a.sd.Reloading()
	defer a.sd.Ready()

	sections, attrs := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.RestartRequired(sections); len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogConfig(next))
	if sender, err := mapAlertSender(next); err != nil {
		a.log.Warn("invalid alerts config; keeping previous", logx.Err(err))
	} else {
		a.logs.SetAlertSender(sender)
	}
	if err := a.debug.Reconfigure(context.Background(), mapDebugConfig(next)); err != nil {
		a.log.Warn("debug server reconfigure failed", logx.Err(err))
	}
	if err := a.bot.Apply(next); err != nil {
		a.log.Warn("bot rejected config; keeping previous", logx.Err(err))
		return
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Close stops background services and releases resources. Each step is
// bounded so one component cannot stall the whole shutdown.
func (a *App) Close(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))

	var errs []error
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	if a.bot != nil {
		step("bot", 30*time.Second, a.bot.Stop)
	}
	if a.debug != nil {
		step("debug", 2*time.Second, a.debug.Stop)
	}
	if a.sup != nil {
		step("supervisor", 2*time.Second, a.sup.Stop)
	}
	if a.store != nil {
		step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}
