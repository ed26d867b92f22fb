package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"options-calendar-bot/internal/alerts"
	"options-calendar-bot/internal/config"
	"options-calendar-bot/internal/dhan"
	"options-calendar-bot/internal/metrics"
	"options-calendar-bot/internal/mock"
	"options-calendar-bot/internal/state"
	"options-calendar-bot/internal/state/sqlite"
	"options-calendar-bot/internal/strategy"
	"options-calendar-bot/internal/timescale"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// broker is the live market-data capability of the app.
type broker interface {
	strategy.LiveFetcher
	ExpiryList(ctx context.Context) ([]string, error)
}

type notifier interface {
	NotifyAdjustments(ctx context.Context, cfg strategy.Config, report strategy.Report) error
}

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     state.Store
	broker    broker
	mock      *mock.Provider
	source    *strategy.Source
	engine    strategy.Engine
	monitor   strategy.Monitor
	active    *strategy.ActiveStore
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    notifier
	timescale *timescale.Writer
	hub       *hub
	now       func() time.Time
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	if !cfg.Dhan.HasCredentials() {
		log.Warn("missing DHAN_ACCESS_TOKEN or DHAN_CLIENT_ID; live option chains will fail, test mode still works")
	}
	provider := mock.NewProvider(nil, log)
	if data, err := mock.Load(cfg.Strategy.MockDataPath); err != nil {
		log.Warn("mock data not loaded", zap.String("path", cfg.Strategy.MockDataPath), zap.Error(err))
	} else {
		provider = mock.NewProvider(data, log)
		log.Info("mock data loaded", zap.String("path", cfg.Strategy.MockDataPath), zap.Int("scenarios", len(data.Scenarios)))
	}
	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}
	writer, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a := assemble(cfg, log, store, dhan.New(cfg.Dhan, log), provider, m)
	a.prom = prom
	a.alerts = alerts.NewTelegram(cfg.Telegram, log)
	a.timescale = writer
	return a, nil
}

// assemble wires the strategy components around the given collaborators.
func assemble(cfg *config.Config, log *zap.Logger, store state.Store, b broker, provider *mock.Provider, m *metrics.Metrics) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	var live strategy.LiveFetcher
	if b != nil {
		live = b
	}
	source := strategy.NewSource(live, provider, cfg.Strategy.StrikesAroundATM, cfg.Strategy.DefaultScenario, log, m)
	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		broker:  b,
		mock:    provider,
		source:  source,
		engine:  strategy.NewEngine(source, cfg.Strategy.APIDelay, log),
		monitor: strategy.NewMonitor(source, cfg.Strategy.APIDelay, log),
		active:  strategy.NewActiveStore(),
		metrics: m,
		hub:     newHub(log, store),
		now:     time.Now,
	}
}

// Run serves the HTTP API and runs the periodic monitor until ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()
	a.timescale.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var tick <-chan time.Time
	if a.cfg.Strategy.MonitorInterval > 0 {
		ticker := time.NewTicker(a.cfg.Strategy.MonitorInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("http server shutdown failed", zap.Error(err))
			}
			return ctx.Err()
		case err, ok := <-serveErr:
			if ok && err != nil {
				return err
			}
			serveErr = nil
		case <-tick:
			if err := a.tick(ctx); err != nil {
				a.log.Warn("monitor tick failed", zap.Error(err))
			}
		}
	}
}

func (a *App) close() {
	a.hub.Close()
	if err := a.timescale.Close(); err != nil {
		a.log.Warn("timescale close failed", zap.Error(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("state store close failed", zap.Error(err))
		}
	}
}
