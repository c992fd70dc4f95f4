package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cmdgate/internal/config"
	"cmdgate/internal/core"
	"cmdgate/internal/executor"
	"cmdgate/internal/modules/host"
	"cmdgate/internal/storage"
	"cmdgate/internal/storage/sqlite"
	"cmdgate/internal/transports/gateway"
)

const pruneInterval = time.Hour

// App агрегирует зависимости шлюза.
type App struct {
	Registry   *core.Registry
	Executor   *executor.Executor
	Gateway    *gateway.Adapter
	Transports *core.TransportManager
	Store      storage.Store
	Config     config.Config
	Logger     *slog.Logger
}

// NewApp проверяет конфигурацию и строит реестр, хранилище и транспорт.
func NewApp(ctx context.Context, cfg config.Config, eps config.Endpoints, lg *slog.Logger) (*App, error) {
	if err := config.Validate(cfg, eps); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if lg == nil {
		lg = slog.Default()
	}

	r, err := core.NewRegistry(eps.Definitions())
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	a := &App{
		Registry:   r,
		Executor:   executor.New(),
		Transports: core.NewTransportManager(),
		Config:     cfg,
		Logger:     lg,
	}

	var audit storage.AuditSink
	if cfg.Audit.Enabled {
		st, err := sqlite.Open(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.Store = st
		audit = st
	}

	a.Gateway = gateway.NewAdapter(r, a.Executor, audit, lg, gateway.Config{ListenAddr: cfg.Addr()})
	if err := a.Transports.Register(a.Gateway); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register gateway transport: %w", err)
	}
	return a, nil
}

// Close высвобождает ресурсы приложения.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Serve запускает транспорты и фоновые задачи до отмены контекста.
// Ошибка bind возвращается сразу.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Transports.StartAll(ctx); err != nil {
		return fmt.Errorf("start transports: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Transports.StopAll(stopCtx); err != nil {
			a.Logger.Warn("stop transports", "err", err)
		}
	}()

	var wg sync.WaitGroup
	for _, sched := range a.schedulers() {
		sched := sched
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	a.Logger.Info("gateway shutting down")
	return nil
}

func (a *App) schedulers() []*core.Scheduler {
	if a.Store == nil {
		return nil
	}
	var out []*core.Scheduler

	if days := a.Config.Audit.RetentionDays; days > 0 {
		prune := core.NewScheduler(pruneInterval, a.Logger)
		prune.Add(core.Job{Name: "audit_prune", Run: func(ctx context.Context) error {
			return a.pruneAudit(ctx, time.Duration(days)*24*time.Hour)
		}})
		out = append(out, prune)
	}

	if a.Config.Metrics.Enabled {
		interval := time.Duration(a.Config.Metrics.IntervalSeconds) * time.Second
		metrics := core.NewScheduler(interval, a.Logger)
		metrics.Add(core.Job{Name: "host_metrics", Run: a.sampleHost})
		out = append(out, metrics)
	}
	return out
}

func (a *App) pruneAudit(ctx context.Context, retention time.Duration) error {
	n, err := a.Store.PruneAudit(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return err
	}
	if n > 0 {
		a.Logger.Debug("audit pruned", "rows", n)
	}
	return nil
}

func (a *App) sampleHost(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	snap, err := host.Collect(runCtx)
	if err != nil {
		return fmt.Errorf("host status: %w", err)
	}
	payload, err := sqlite.MarshalPayload(snap)
	if err != nil {
		return err
	}
	return a.Store.SaveMetric(ctx, storage.MetricRecord{Module: host.ModuleName, Payload: payload})
}
