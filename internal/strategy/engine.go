package strategy

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Engine builds the four calendar legs from fresh chains. It holds no state
// beyond its collaborators.
type Engine struct {
	source ChainSource
	pause  time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewEngine(source ChainSource, pause time.Duration, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{source: source, pause: pause, now: time.Now, log: log}
}

// Deploy validates cfg, reads both chains and selects the sell and buy legs.
// Nothing is returned unless both chains were read.
func (e Engine) Deploy(ctx context.Context, cfg Config, mode Mode) (Positions, error) {
	if err := Validate(cfg); err != nil {
		return Positions{}, err
	}
	e.log.Info("deploying calendar strategy",
		zap.String("weekly_expiry", cfg.WeeklyExpiry),
		zap.String("monthly_expiry", cfg.MonthlyExpiry),
		zap.Bool("test_mode", mode.TestMode),
		zap.String("scenario", mode.Scenario),
	)
	weekly, monthly, err := fetchPair(ctx, e.source, e.pause, cfg, mode)
	if err != nil {
		return Positions{}, err
	}

	weeklyCall, err := SelectByDelta(callCandidates(weekly.Snapshot, cfg.WeeklyExpiry), cfg.SellLegDelta, SideSell)
	if err != nil {
		return Positions{}, err
	}
	weeklyPut, err := SelectByDelta(putCandidates(weekly.Snapshot, cfg.WeeklyExpiry), cfg.SellLegDelta, SideSell)
	if err != nil {
		return Positions{}, err
	}
	monthlyCall, err := SelectByDelta(callCandidates(monthly.Snapshot, cfg.MonthlyExpiry), cfg.BuyLegDelta, SideBuy)
	if err != nil {
		return Positions{}, err
	}
	monthlyPut, err := SelectByDelta(putCandidates(monthly.Snapshot, cfg.MonthlyExpiry), cfg.BuyLegDelta, SideBuy)
	if err != nil {
		return Positions{}, err
	}

	positions := Positions{
		WeeklyCallSell: weeklyCall,
		WeeklyPutSell:  weeklyPut,
		MonthlyCallBuy: monthlyCall,
		MonthlyPutBuy:  monthlyPut,
		EntryTime:      e.now(),
	}
	for _, leg := range Legs {
		if positions.Leg(leg) == nil {
			e.log.Warn("no strike matched target delta", zap.String("leg", string(leg)))
		}
	}
	return positions, nil
}
