package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"options-calendar-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Writer exports deployments and monitoring observations asynchronously.
// A nil *Writer is valid and drops everything.
type Writer struct {
	db           *sql.DB
	log          *zap.Logger
	schema       string
	observations chan []LegObservation
	deployments  chan Deployment
	started      atomic.Bool
	dropObs      atomic.Uint64
	dropDeploy   atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	writer := newWriter(db, log, cfg.Schema, cfg.QueueSize)
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func newWriter(db *sql.DB, log *zap.Logger, schema string, queueSize int) *Writer {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Writer{
		db:           db,
		log:          log,
		schema:       schema,
		observations: make(chan []LegObservation, queueSize),
		deployments:  make(chan Deployment, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// EnqueueObservations queues the per-leg rows of one monitoring pass. It never blocks.
func (w *Writer) EnqueueObservations(rows []LegObservation) {
	if w == nil || len(rows) == 0 {
		return
	}
	select {
	case w.observations <- rows:
	default:
		if w.dropObs.Add(1) == 1 {
			w.log.Warn("timescale observation queue full")
		}
	}
}

// EnqueueDeployment queues one deployment row. It never blocks.
func (w *Writer) EnqueueDeployment(dep Deployment) {
	if w == nil {
		return
	}
	select {
	case w.deployments <- dep:
	default:
		if w.dropDeploy.Add(1) == 1 {
			w.log.Warn("timescale deployment queue full")
		}
	}
}

// Dropped reports how many observation batches and deployments were discarded.
func (w *Writer) Dropped() (observations, deployments uint64) {
	if w == nil {
		return 0, 0
	}
	return w.dropObs.Load(), w.dropDeploy.Load()
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rows := <-w.observations:
			w.writeObservations(ctx, rows)
		case dep := <-w.deployments:
			w.writeDeployment(ctx, dep)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		weekly_expiry TEXT NOT NULL,
		monthly_expiry TEXT NOT NULL,
		sell_leg_delta DOUBLE PRECISION NOT NULL,
		buy_leg_delta DOUBLE PRECISION NOT NULL,
		test_mode BOOLEAN NOT NULL,
		scenario TEXT NOT NULL,
		weekly_call_strike DOUBLE PRECISION,
		weekly_put_strike DOUBLE PRECISION,
		monthly_call_strike DOUBLE PRECISION,
		monthly_put_strike DOUBLE PRECISION
	)`, w.table("deployments"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		weekly_expiry TEXT NOT NULL,
		monthly_expiry TEXT NOT NULL,
		leg TEXT NOT NULL,
		expiry TEXT NOT NULL,
		strike DOUBLE PRECISION NOT NULL,
		entry_delta DOUBLE PRECISION NOT NULL,
		current_delta DOUBLE PRECISION,
		adjustment TEXT NOT NULL DEFAULT '',
		test_mode BOOLEAN NOT NULL,
		scenario TEXT NOT NULL,
		used_fallback BOOLEAN NOT NULL
	)`, w.table("leg_observations"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	for _, name := range []string{"deployments", "leg_observations"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeObservations(ctx context.Context, rows []LegObservation) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, weekly_expiry, monthly_expiry, leg, expiry, strike, entry_delta,
		current_delta, adjustment, test_mode, scenario, used_fallback
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, w.table("leg_observations"))
	for _, row := range rows {
		if _, err := w.db.ExecContext(ctx, query,
			row.Time,
			row.WeeklyExpiry,
			row.MonthlyExpiry,
			row.Leg,
			row.Expiry,
			row.Strike,
			row.EntryDelta,
			nullFloat(row.CurrentDelta),
			row.Adjustment,
			row.TestMode,
			row.Scenario,
			row.UsedFallback,
		); err != nil {
			w.log.Warn("timescale observation insert failed", zap.String("leg", row.Leg), zap.Error(err))
			return
		}
	}
}

func (w *Writer) writeDeployment(ctx context.Context, dep Deployment) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, weekly_expiry, monthly_expiry, sell_leg_delta, buy_leg_delta, test_mode, scenario,
		weekly_call_strike, weekly_put_strike, monthly_call_strike, monthly_put_strike
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, w.table("deployments"))
	if _, err := w.db.ExecContext(ctx, query,
		dep.Time,
		dep.WeeklyExpiry,
		dep.MonthlyExpiry,
		dep.SellLegDelta,
		dep.BuyLegDelta,
		dep.TestMode,
		dep.Scenario,
		nullFloat(dep.WeeklyCallStrike),
		nullFloat(dep.WeeklyPutStrike),
		nullFloat(dep.MonthlyCallStrike),
		nullFloat(dep.MonthlyPutStrike),
	); err != nil {
		w.log.Warn("timescale deployment insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
