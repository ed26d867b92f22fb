package app

import (
	"context"
	"errors"
	"strings"

	"options-calendar-bot/internal/state"
	"options-calendar-bot/internal/strategy"
	"options-calendar-bot/internal/timescale"

	"go.uber.org/zap"
)

// Deploy selects the four legs for cfg and installs them as the active strategy.
func (a *App) Deploy(ctx context.Context, cfg strategy.Config, mode strategy.Mode) (strategy.Positions, error) {
	if err := strategy.Validate(cfg); err != nil {
		a.metrics.DeployFailed.Inc()
		return strategy.Positions{}, err
	}
	ticket, err := a.active.Begin()
	if err != nil {
		a.metrics.DeployFailed.Inc()
		return strategy.Positions{}, err
	}
	positions, err := a.engine.Deploy(ctx, cfg, mode)
	if err != nil {
		a.active.Abort(ticket)
		a.metrics.DeployFailed.Inc()
		a.log.Warn("strategy deploy failed", zap.Error(err))
		return strategy.Positions{}, err
	}
	if err := a.active.Commit(ticket, strategy.Active{Config: cfg, Mode: mode, Positions: positions}); err != nil {
		a.metrics.DeployFailed.Inc()
		return strategy.Positions{}, err
	}
	a.metrics.Deploys.Inc()
	a.timescale.EnqueueDeployment(timescale.DeploymentFromPositions(cfg, mode, positions))
	a.log.Info("strategy deployed",
		zap.String("weekly_expiry", cfg.WeeklyExpiry),
		zap.String("monthly_expiry", cfg.MonthlyExpiry),
		zap.Bool("test_mode", mode.TestMode),
		zap.String("scenario", mode.Scenario),
		zap.Any("positions", positions),
	)
	return positions, nil
}

// Stop discards the active strategy and any deployment still in flight.
func (a *App) Stop(ctx context.Context) {
	a.active.Stop()
	if err := state.ClearMonitorSnapshot(ctx, a.store); err != nil {
		a.log.Warn("clear monitor snapshot failed", zap.Error(err))
	}
	a.log.Info("strategy stopped")
}

// Monitor evaluates the active strategy with the mode it was deployed with.
func (a *App) Monitor(ctx context.Context) (strategy.Report, error) {
	res, err := a.monitorActive(ctx, nil)
	if err != nil {
		return strategy.Report{}, err
	}
	return res.Report, nil
}

type monitorResult struct {
	Active strategy.Active
	Mode   strategy.Mode
	Report strategy.Report
}

// monitorActive evaluates the active strategy. A non-nil override switches the
// pass to test mode; an empty override scenario keeps the deployed one.
func (a *App) monitorActive(ctx context.Context, override *strategy.Mode) (monitorResult, error) {
	active, ok := a.active.Current()
	if !ok {
		return monitorResult{}, strategy.ErrNoActiveStrategy
	}
	mode := active.Mode
	if override != nil && override.TestMode {
		mode.TestMode = true
		if strings.TrimSpace(override.Scenario) != "" {
			mode.Scenario = override.Scenario
		}
	}
	if mode.TestMode && strings.TrimSpace(mode.Scenario) == "" {
		mode.Scenario = a.cfg.Strategy.DefaultScenario
	}
	report, err := a.monitor.Evaluate(ctx, active.Positions, active.Config, mode)
	if err != nil {
		a.metrics.MonitorFailed.Inc()
		return monitorResult{}, err
	}
	a.metrics.MonitorRuns.Inc()
	res := monitorResult{Active: active, Mode: mode, Report: report}
	// A stop or redeploy during the fetch makes this report stale.
	if !a.active.IfCurrent(active.Generation, func() { a.publish(ctx, res) }) {
		a.log.Info("monitor pass dropped: strategy replaced or stopped")
		return monitorResult{}, strategy.ErrNoActiveStrategy
	}
	if n := len(report.Adjustments); n > 0 {
		a.metrics.Adjustments.Add(float64(n))
		a.log.Info("adjustments needed", zap.Int("count", n), zap.Any("adjustments", report.Adjustments))
	}
	return res, nil
}

// publish caches, streams and exports one monitoring pass. It runs with the
// active slot locked.
func (a *App) publish(ctx context.Context, res monitorResult) {
	snapshot := state.MonitorSnapshot{
		Config:      res.Active.Config,
		Mode:        res.Mode,
		Positions:   res.Active.Positions,
		Report:      res.Report,
		UpdatedAtMS: a.now().UnixMilli(),
	}
	if err := state.SaveMonitorSnapshot(ctx, a.store, snapshot); err != nil {
		a.log.Warn("save monitor snapshot failed", zap.Error(err))
	}
	a.hub.Broadcast(newMonitorResponse(res.Active.Config, res.Mode, res.Report))
	a.log.Debug("monitor report published", zap.Int("subscribers", a.hub.Subscribers()))
	a.timescale.EnqueueObservations(timescale.ObservationsFromReport(res.Active.Config, res.Mode, res.Active.Positions, res.Report))
}

// tick is one pass of the periodic monitor loop.
func (a *App) tick(ctx context.Context) error {
	res, err := a.monitorActive(ctx, nil)
	if errors.Is(err, strategy.ErrNoActiveStrategy) {
		a.log.Debug("monitor tick skipped: no active strategy")
		return nil
	}
	if err != nil {
		return err
	}
	if a.alerts == nil || len(res.Report.Adjustments) == 0 {
		return nil
	}
	if err := a.alerts.NotifyAdjustments(ctx, res.Active.Config, res.Report); err != nil {
		a.log.Warn("adjustment alert failed", zap.Error(err))
	}
	return nil
}
