package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"respawnbot/internal/adapters/telegram"
	"respawnbot/internal/bosses"
	"respawnbot/internal/config"
	"respawnbot/internal/digest"
	"respawnbot/internal/engine"
	"respawnbot/internal/notifier"
	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/internal/transport"
	"respawnbot/pkg/logx"
)

// App wires the services together and runs them until the context is
// cancelled.
type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	log     logx.Logger
	adapter *telegram.Adapter
	conv    timeutil.Converter

	updates chan transport.Update
}

func NewApp(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info")

	cfgm := config.NewManager(cfgPath, boot)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.BotToken(),
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	userLoc := time.Local
	if cfg.Engine.UserTimezone != "" {
		if userLoc, err = time.LoadLocation(cfg.Engine.UserTimezone); err != nil {
			return nil, err
		}
	}
	systemLoc := time.Local
	if cfg.Engine.SystemTimezone != "" {
		if systemLoc, err = time.LoadLocation(cfg.Engine.SystemTimezone); err != nil {
			return nil, err
		}
	}

	return &App{
		cfgm:    cfgm,
		cfg:     cfg,
		log:     log.With(logx.String("comp", "app")),
		adapter: adapter,
		conv:    timeutil.NewConverter(userLoc, systemLoc),
		updates: make(chan transport.Update, 256),
	}, nil
}

// Run blocks until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	st, err := store.OpenSQLite(ctx, store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("comp", "store")))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	a.log.Info("sqlite ready", logx.String("path", cfg.Storage.Path))

	sink := notifier.New(notifier.Config{
		RatePerSec: cfg.Notifier.RatePerSec,
		Burst:      cfg.Notifier.Burst,
	}, a.adapter, a.log.With(logx.String("comp", "notifier")))

	lead, err := config.ParseDurationOrDefault("engine.lead_time", cfg.Engine.LeadTime, 3*time.Minute)
	if err != nil {
		return err
	}
	settle, err := config.ParseDurationOrDefault("engine.settle_offset", cfg.Engine.SettleOffset, time.Minute)
	if err != nil {
		return err
	}
	eng := engine.New(engine.Config{
		LeadTime:     lead,
		SettleOffset: settle,
	}, st, bosses.Table{}, sink, a.conv, a.log.With(logx.String("comp", "engine")))
	eng.Start(ctx)

	// Re-derive runners for whatever survived the last process.
	if _, err := eng.Resume(ctx); err != nil {
		return err
	}

	dig := digest.New(digest.Config{
		Enabled:  cfg.Digest.Enabled,
		Spec:     cfg.Digest.Cron,
		Timezone: cfg.Digest.Timezone,
	}, st, sink, a.conv, a.log.With(logx.String("comp", "digest")))
	if err := dig.Start(ctx); err != nil {
		return err
	}
	defer dig.Stop()

	router := NewRouter(eng, st, sink, a.conv, a.log.With(logx.String("comp", "router")))

	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return err
	}
	if err := a.adapter.SetMenuCommands(ctx, router.Commands()); err != nil {
		a.log.Warn("set menu commands failed", logx.Err(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case up := <-a.updates:
				router.Handle(gctx, up)
			}
		}
	})

	g.Go(func() error {
		return a.cfgm.Watch(gctx)
	})

	g.Go(func() error {
		sub := a.cfgm.Subscribe()
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-sub:
				if err := dig.Apply(gctx, digest.Config{
					Enabled:  next.Digest.Enabled,
					Spec:     next.Digest.Cron,
					Timezone: next.Digest.Timezone,
				}); err != nil {
					a.log.Error("digest reload failed", logx.Err(err))
				}
			}
		}
	})

	err = g.Wait()

	// Shutdown: stop polling, then drain runners with a bounded wait.
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.adapter.Stop(shCtx)
	if serr := eng.Stop(shCtx); serr != nil {
		a.log.Warn("engine drain incomplete", logx.Err(serr))
	}
	a.log.Info("shutdown complete")
	_ = a.log.Close()
	return err
}
