package strategy

import (
	"time"

	"options-calendar-bot/internal/chain"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Leg names one of the four positions of the calendar spread.
type Leg string

const (
	WeeklyCallSell Leg = "weeklyCallSell"
	WeeklyPutSell  Leg = "weeklyPutSell"
	MonthlyCallBuy Leg = "monthlyCallBuy"
	MonthlyPutBuy  Leg = "monthlyPutBuy"
)

// Legs lists the legs in evaluation order.
var Legs = []Leg{WeeklyCallSell, WeeklyPutSell, MonthlyCallBuy, MonthlyPutBuy}

type AdjustmentType string

const (
	AdjustSell AdjustmentType = "ADJUST_SELL"
	AdjustBuy  AdjustmentType = "ADJUST_BUY"
)

type Action string

const (
	ActionExitAndReenter     Action = "EXIT_AND_REENTER"
	ActionExitBothAndReenter Action = "EXIT_BOTH_AND_REENTER"
)

// Position is a selected option. It is never modified after selection.
type Position struct {
	Strike float64 `json:"strike"`
	Delta  float64 `json:"delta"`
	Price  float64 `json:"price"`
	Type   Side    `json:"type"`
	Expiry string  `json:"expiry"`
}

type Positions struct {
	WeeklyCallSell *Position `json:"weeklyCallSell"`
	WeeklyPutSell  *Position `json:"weeklyPutSell"`
	MonthlyCallBuy *Position `json:"monthlyCallBuy"`
	MonthlyPutBuy  *Position `json:"monthlyPutBuy"`
	EntryTime      time.Time `json:"entryTime"`
}

func (p Positions) Leg(leg Leg) *Position {
	switch leg {
	case WeeklyCallSell:
		return p.WeeklyCallSell
	case WeeklyPutSell:
		return p.WeeklyPutSell
	case MonthlyCallBuy:
		return p.MonthlyCallBuy
	case MonthlyPutBuy:
		return p.MonthlyPutBuy
	}
	return nil
}

type Config struct {
	WeeklyExpiry  string  `json:"weeklyExpiry"`
	MonthlyExpiry string  `json:"monthlyExpiry"`
	SellLegDelta  float64 `json:"sellLegDelta"`
	BuyLegDelta   float64 `json:"buyLegDelta"`
	ExitSellLower float64 `json:"exitSellLower"`
	ExitSellUpper float64 `json:"exitSellUpper"`
	ExitBuyDelta  float64 `json:"exitBuyDelta"`
}

// Mode selects live broker data or a canned mock scenario.
type Mode struct {
	TestMode bool   `json:"testMode"`
	Scenario string `json:"scenario,omitempty"`
}

type Adjustment struct {
	Type     AdjustmentType `json:"type"`
	Position Leg            `json:"position"`
	Reason   string         `json:"reason"`
	Action   Action         `json:"action"`
}

// Report is the result of one monitoring pass. A nil delta means the leg
// could not be priced and was not checked.
type Report struct {
	CurrentDeltas map[Leg]*float64 `json:"currentDeltas"`
	Adjustments   []Adjustment     `json:"adjustments"`
	Timestamp     time.Time        `json:"timestamp"`
	UsedFallback  bool             `json:"usedFallback"`
}

// Candidate is one side of a strike offered to SelectByDelta.
type Candidate struct {
	Strike float64
	Delta  float64
	Price  float64
	Expiry string
}

// Fetched is a chain ready for selection together with where it came from.
type Fetched struct {
	Snapshot     chain.Snapshot
	Live         bool
	Scenario     string
	UsedFallback bool
}
