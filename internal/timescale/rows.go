package timescale

import (
	"time"

	"options-calendar-bot/internal/strategy"
)

// LegObservation is one leg of one monitoring pass.
type LegObservation struct {
	Time          time.Time
	WeeklyExpiry  string
	MonthlyExpiry string
	Leg           string
	Expiry        string
	Strike        float64
	EntryDelta    float64
	CurrentDelta  *float64
	Adjustment    string
	TestMode      bool
	Scenario      string
	UsedFallback  bool
}

type Deployment struct {
	Time              time.Time
	WeeklyExpiry      string
	MonthlyExpiry     string
	SellLegDelta      float64
	BuyLegDelta       float64
	TestMode          bool
	Scenario          string
	WeeklyCallStrike  *float64
	WeeklyPutStrike   *float64
	MonthlyCallStrike *float64
	MonthlyPutStrike  *float64
}

// ObservationsFromReport flattens a report into rows, one per held leg, in leg order.
func ObservationsFromReport(cfg strategy.Config, mode strategy.Mode, positions strategy.Positions, report strategy.Report) []LegObservation {
	adjusted := make(map[strategy.Leg]strategy.AdjustmentType, len(report.Adjustments))
	for _, adj := range report.Adjustments {
		adjusted[adj.Position] = adj.Type
	}
	rows := make([]LegObservation, 0, len(strategy.Legs))
	for _, leg := range strategy.Legs {
		pos := positions.Leg(leg)
		if pos == nil {
			continue
		}
		rows = append(rows, LegObservation{
			Time:          report.Timestamp,
			WeeklyExpiry:  cfg.WeeklyExpiry,
			MonthlyExpiry: cfg.MonthlyExpiry,
			Leg:           string(leg),
			Expiry:        pos.Expiry,
			Strike:        pos.Strike,
			EntryDelta:    pos.Delta,
			CurrentDelta:  report.CurrentDeltas[leg],
			Adjustment:    string(adjusted[leg]),
			TestMode:      mode.TestMode,
			Scenario:      mode.Scenario,
			UsedFallback:  report.UsedFallback,
		})
	}
	return rows
}

func DeploymentFromPositions(cfg strategy.Config, mode strategy.Mode, positions strategy.Positions) Deployment {
	return Deployment{
		Time:              positions.EntryTime,
		WeeklyExpiry:      cfg.WeeklyExpiry,
		MonthlyExpiry:     cfg.MonthlyExpiry,
		SellLegDelta:      cfg.SellLegDelta,
		BuyLegDelta:       cfg.BuyLegDelta,
		TestMode:          mode.TestMode,
		Scenario:          mode.Scenario,
		WeeklyCallStrike:  strikeOf(positions.WeeklyCallSell),
		WeeklyPutStrike:   strikeOf(positions.WeeklyPutSell),
		MonthlyCallStrike: strikeOf(positions.MonthlyCallBuy),
		MonthlyPutStrike:  strikeOf(positions.MonthlyPutBuy),
	}
}

func strikeOf(p *strategy.Position) *float64 {
	if p == nil {
		return nil
	}
	strike := p.Strike
	return &strike
}
