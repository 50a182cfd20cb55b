// Package app wires the broadcast daemon: config, logging, storage, the
// Telegram adapter, the broadcast engine, schedules, chat commands and the
// observability endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"castbot/internal/broadcast"
	"castbot/internal/config"
	"castbot/internal/eventbus"
	"castbot/internal/observability"
	rtsup "castbot/internal/runtime/supervisor"
	"castbot/internal/schedule"
	"castbot/internal/storage"
	kit "castbot/internal/transport"
	telegram "castbot/internal/transport/telegram/adapter"
	"castbot/internal/transport/telegram/router"
	"castbot/pkg/logx"
)

type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	reg   *prometheus.Registry

	adapter *telegram.Adapter

	bc    *broadcast.Service
	sched *schedule.Service
	obs   *observability.Service
	cmdm  *router.CommandManager

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(adCfg, logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bus := eventbus.New()

	bcCfg, err := mapBroadcastConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	bc := broadcast.New(bcCfg, broadcast.Deps{
		Directory: store,
		Audit:     store,
		Transport: ad,
		Bus:       bus,
		Metrics:   broadcast.NewMetrics(reg),
	}, log.With(logx.String("comp", "broadcast")))

	sched := schedule.New(bc, log.With(logx.String("comp", "schedule")))
	if err := sched.Apply(cfg.Schedules); err != nil {
		log.Warn("some schedules were skipped", logx.Err(err))
	}

	obsCfg, err := mapObservabilityConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cmdm := router.NewCommandManager(log.With(logx.String("comp", "commands")), ad, cfg.Telegram.OwnerUserIDs)
	cmdm.SetRegistry(commands(bc, sched))

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		reg:     reg,
		adapter: ad,
		bc:      bc,
		sched:   sched,
		cmdm:    cmdm,
		updates: make(chan kit.Update, 256),
	}
	a.obs = observability.New(obsCfg, reg, a.health, log.With(logx.String("comp", "observability")))
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) health(context.Context) error {
	if a.sup == nil {
		return errors.New("not started")
	}
	if err := a.sup.Err(); err != nil {
		return err
	}
	if a.sup.Context().Err() != nil {
		return errors.New("stopping")
	}
	return nil
}

func validate(_ context.Context, cfg *config.Config) error {
	var errs []error
	if err := schedule.Validate(cfg.Schedules); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapAdapterConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapBroadcastConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapObservabilityConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validate)

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.bc.Start(a.sup.Context())
	a.sched.Start(a.sup.Context())
	a.obs.Start(a.sup.Context())

	a.sup.Go("telegram.menu.update", func(c context.Context) error {
		mctx, cancel := context.WithTimeout(c, 5*time.Second)
		defer cancel()
		if err := a.adapter.UpdateMenuCommands(mctx, a.cmdm.MenuCommands()); err != nil {
			a.log.Warn("command menu update failed", logx.Err(err))
		}
		return nil
	})

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		eventLoop(c, events, a.adapter, a.log.With(logx.String("comp", "events")))
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// Reload re-reads the config file now, e.g. on SIGHUP.
func (a *App) Reload(ctx context.Context) error {
	published, err := a.cfgm.Reload(ctx)
	if err != nil {
		return err
	}
	if !published {
		a.log.Info("config reload requested, file unchanged")
	}
	return nil
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	if slices.Contains(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
	if oldCfg != nil && (oldCfg.Telegram.Token != newCfg.Telegram.Token || oldCfg.Telegram.APIURL != newCfg.Telegram.APIURL) {
		a.log.Warn("telegram token or api_url changed; restart required for changes to take effect")
	}

	a.logs.Apply(mapLogConfig(newCfg))
	a.cmdm.SetOwners(newCfg.Telegram.OwnerUserIDs)

	if bcCfg, err := mapBroadcastConfig(newCfg); err != nil {
		a.log.Warn("invalid broadcast config; keeping previous", logx.Err(err))
	} else {
		a.bc.Apply(bcCfg)
	}
	if err := a.sched.Apply(newCfg.Schedules); err != nil {
		a.log.Warn("some schedules were skipped", logx.Err(err))
	}
	if oc, err := mapObservabilityConfig(newCfg); err != nil {
		a.log.Warn("invalid observability config; keeping previous", logx.Err(err))
	} else {
		a.obs.Reconfigure(ctx, oc)
	}

	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Stop intake before the run context goes away so a run in progress
	// ends between two recipients and still sends its summary.
	step := a.stepRunner(ctx)
	step("schedule", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("broadcast", 5*time.Second, func(c context.Context) error { a.bc.Stop(c); return nil })

	a.sup.Cancel()

	step("observability", time.Second, func(c context.Context) error { a.obs.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// stepRunner returns a helper that runs one shutdown step with an upper
// bound so one component can't stall the whole stop.
func (a *App) stepRunner(ctx context.Context) func(name string, max time.Duration, fn func(context.Context) error) {
	return func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		// respect the caller's deadline; never extend it
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped, no time left", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
			go func() {
				if err := <-done; err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", time.Since(start)))
				}
			}()
		}
	}
}
