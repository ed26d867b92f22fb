package strategy

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"options-calendar-bot/internal/chain"

	"go.uber.org/zap"
)

// Monitor re-reads both chains and checks every stored leg against its
// exit band.
type Monitor struct {
	source ChainSource
	pause  time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewMonitor(source ChainSource, pause time.Duration, log *zap.Logger) Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return Monitor{source: source, pause: pause, now: time.Now, log: log}
}

func (m Monitor) Evaluate(ctx context.Context, positions Positions, cfg Config, mode Mode) (Report, error) {
	weekly, monthly, err := fetchPair(ctx, m.source, m.pause, cfg, mode)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		CurrentDeltas: make(map[Leg]*float64, len(Legs)),
		Adjustments:   []Adjustment{},
		UsedFallback:  weekly.UsedFallback || monthly.UsedFallback,
	}
	for _, leg := range Legs {
		snap := weekly.Snapshot
		if leg == MonthlyCallBuy || leg == MonthlyPutBuy {
			snap = monthly.Snapshot
		}
		pos := positions.Leg(leg)
		if pos == nil {
			report.CurrentDeltas[leg] = nil
			continue
		}
		delta, ok := CurrentDelta(snap, pos.Strike, leg == WeeklyPutSell || leg == MonthlyPutBuy)
		if !ok {
			m.log.Warn("no current delta for leg", zap.String("leg", string(leg)), zap.Float64("strike", pos.Strike))
			report.CurrentDeltas[leg] = nil
			continue
		}
		report.CurrentDeltas[leg] = &delta
		if adj, breached := checkLeg(leg, delta, cfg); breached {
			report.Adjustments = append(report.Adjustments, adj)
		}
	}
	report.Timestamp = m.now()
	return report, nil
}

// CurrentDelta finds the delta for strike in snap, falling back to the nearest
// listed strike. Put deltas are returned as positive values.
func CurrentDelta(snap chain.Snapshot, strike float64, put bool) (float64, bool) {
	if len(snap.Legs) == 0 {
		return 0, false
	}
	idx := -1
	for i, leg := range snap.Legs {
		if leg.Strike == strike {
			idx = i
			break
		}
	}
	if idx < 0 {
		minDiff := math.Inf(1)
		for i, leg := range snap.Legs {
			if diff := math.Abs(leg.Strike - strike); diff < minDiff {
				minDiff = diff
				idx = i
			}
		}
	}
	if idx < 0 {
		return 0, false
	}
	if put {
		return math.Abs(snap.Legs[idx].Put.Delta), true
	}
	return snap.Legs[idx].Call.Delta, true
}

func checkLeg(leg Leg, delta float64, cfg Config) (Adjustment, bool) {
	switch leg {
	case WeeklyCallSell, WeeklyPutSell:
		if SellBreached(delta, cfg.ExitSellLower, cfg.ExitSellUpper) {
			return Adjustment{
				Type:     AdjustSell,
				Position: leg,
				Reason:   fmt.Sprintf("Delta %s breached exit levels", formatDelta(delta)),
				Action:   ActionExitAndReenter,
			}, true
		}
	case MonthlyCallBuy, MonthlyPutBuy:
		if BuyBreached(delta, cfg.ExitBuyDelta) {
			return Adjustment{
				Type:     AdjustBuy,
				Position: leg,
				Reason:   fmt.Sprintf("Delta %s reached exit level", formatDelta(delta)),
				Action:   ActionExitBothAndReenter,
			}, true
		}
	}
	return Adjustment{}, false
}

// SellBreached reports a sell leg outside its band. Both bounds are exits.
func SellBreached(delta, lower, upper float64) bool {
	return delta <= lower || delta >= upper
}

func BuyBreached(delta, exit float64) bool {
	return delta >= exit
}

func formatDelta(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
