package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"options-calendar-bot/internal/chain"
	"options-calendar-bot/internal/mock"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu     sync.Mutex
	chains map[string]chain.Snapshot
	errs   map[string]error
	calls  []string
	times  []time.Time
}

func (f *fakeSource) Chain(ctx context.Context, expiry string, mode Mode) (Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, expiry)
	f.times = append(f.times, time.Now())
	if err := f.errs[expiry]; err != nil {
		return Fetched{}, err
	}
	return Fetched{Snapshot: f.chains[expiry], Live: !mode.TestMode}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func mockSource(t *testing.T) *Source {
	t.Helper()
	ds, err := mock.Load("../mock/scenarios.yaml")
	if err != nil {
		t.Fatalf("load scenarios: %v", err)
	}
	return NewSource(nil, mock.NewProvider(ds, zap.NewNop()), 10, mock.DefaultScenario, zap.NewNop(), nil)
}

func defaultConfig() Config {
	return Config{
		WeeklyExpiry:  "2025-07-10",
		MonthlyExpiry: "2025-07-24",
		SellLegDelta:  0.5,
		BuyLegDelta:   0.3,
		ExitSellLower: 0.25,
		ExitSellUpper: 0.75,
		ExitBuyDelta:  0.7,
	}
}

func leg(strike, callDelta, putDelta float64) chain.OptionLeg {
	return chain.OptionLeg{
		Strike: strike,
		Call:   chain.Quote{Delta: callDelta, LTP: strike / 200},
		Put:    chain.Quote{Delta: putDelta, LTP: strike / 300},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
