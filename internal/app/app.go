// Package app wires the reminder daemon together: config manager,
// logging service, sqlite store, token registry, notification channels
// and the two dispatch trigger contexts.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"pinefarm/internal/config"
	"pinefarm/internal/dispatch"
	"pinefarm/internal/notify"
	"pinefarm/internal/registry"
	"pinefarm/internal/store"
	"pinefarm/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store    *store.Store
	registry *registry.Registry

	poller *dispatch.Poller
	batch  *dispatch.Batch

	cfgCh  chan *config.Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logCfg(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout},
		log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	reg := registry.New(st, log.With(logx.String("comp", "registry")))

	// Channels. Each constructor returns nil when its transport is not
	// configured; only live channels enter a fan-out.
	var push, email, telegram notify.Channel

	sender, err := notify.NewFCMSender(ctx, cfg.Push)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if sender != nil {
		rate := 0
		if cfg.Push != nil {
			rate = cfg.Push.RatePerSec
		}
		if c := notify.NewPushChannel(sender, rate, log.With(logx.String("comp", "push"))); c != nil {
			push = c
		}
	}
	mailer, err := notify.NewSMTPMailer(cfg.Email)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if mailer != nil {
		if c := notify.NewEmailChannel(mailer, log.With(logx.String("comp", "email"))); c != nil {
			email = c
		}
	}
	tg, err := notify.NewTelegramChannel(cfg.Telegram, log.With(logx.String("comp", "telegram")))
	if err != nil {
		log.Warn("telegram channel unavailable", logx.Err(err))
	} else if tg != nil {
		telegram = tg
	}

	// The interactive poller sends push only; the batch sweep carries
	// the full channel set. Both engines share the store, so the
	// dispatch log keeps them from double-sending.
	pollEngine := dispatch.NewEngine(st, reg,
		notify.NewFanout(log.With(logx.String("comp", "fanout.poll")), push),
		cfg.Reminder, log.With(logx.String("comp", "poller")))
	batchEngine := dispatch.NewEngine(st, reg,
		notify.NewFanout(log.With(logx.String("comp", "fanout.batch")), push, email, telegram),
		cfg.Reminder, log.With(logx.String("comp", "batch")))

	pollInterval, err := config.ParseDurationOrDefault("reminder.poll_interval", cfg.Reminder.PollInterval, time.Minute)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		logs:     logSvc,
		log:      log,
		store:    st,
		registry: reg,
		poller:   dispatch.NewPoller(pollEngine, pollInterval, log.With(logx.String("comp", "poller"))),
		batch:    dispatch.NewBatch(batchEngine, cfg.Reminder.BatchSchedule, log.With(logx.String("comp", "batch"))),
	}, nil
}

func logCfg(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func (a *App) Registry() *registry.Registry { return a.registry }
func (a *App) Poller() *dispatch.Poller     { return a.poller }

// RunOnce performs a single full-channel sweep and returns its summary.
func (a *App) RunOnce(ctx context.Context) (dispatch.Summary, error) {
	return a.batch.RunOnce(ctx)
}

func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	// Hot-reload only re-applies logging; schedule or transport changes
	// take effect on restart.
	a.cfgCh = a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for cfg := range a.cfgCh {
			a.logs.Apply(logCfg(cfg))
			a.log.Info("config reloaded, logging re-applied")
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.poller.Start(ctx)
	if err := a.batch.Start(ctx); err != nil {
		return err
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}

	a.log.Info("dispatcher started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.cancel != nil {
		a.cancel()
	}
	a.poller.Stop()
	a.batch.Stop()
	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
	}
	a.wg.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("dispatcher stopped")
	_ = a.logs.Close()
}
