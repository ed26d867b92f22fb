package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"options-calendar-bot/internal/chain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeploySelectsLegsFromMockScenario(t *testing.T) {
	engine := NewEngine(mockSource(t), time.Hour, zap.NewNop())
	entry := time.Date(2025, 7, 7, 9, 30, 0, 0, time.UTC)
	engine.now = fixedClock(entry)

	positions, err := engine.Deploy(context.Background(), defaultConfig(), Mode{TestMode: true, Scenario: "no-adjustments"})
	require.NoError(t, err)

	require.NotNil(t, positions.WeeklyCallSell)
	require.Equal(t, 24900.0, positions.WeeklyCallSell.Strike)
	require.Equal(t, 0.5, positions.WeeklyCallSell.Delta)
	require.Equal(t, SideSell, positions.WeeklyCallSell.Type)
	require.Equal(t, "2025-07-10", positions.WeeklyCallSell.Expiry)

	require.Equal(t, 24900.0, positions.WeeklyPutSell.Strike)
	require.Equal(t, 0.5, positions.WeeklyPutSell.Delta)

	require.Equal(t, 25300.0, positions.MonthlyCallBuy.Strike)
	require.Equal(t, SideBuy, positions.MonthlyCallBuy.Type)
	require.Equal(t, "2025-07-24", positions.MonthlyCallBuy.Expiry)
	require.Equal(t, 24700.0, positions.MonthlyPutBuy.Strike)
	require.Equal(t, 0.3, positions.MonthlyPutBuy.Delta)

	require.Equal(t, entry, positions.EntryTime)
}

func TestDeployRejectsInvalidConfigBeforeFetching(t *testing.T) {
	src := &fakeSource{}
	engine := NewEngine(src, 0, zap.NewNop())
	cfg := defaultConfig()
	cfg.SellLegDelta = 1.0

	_, err := engine.Deploy(context.Background(), cfg, Mode{})
	var invalid *InvalidConfigError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, []string{"sellLegDelta must be a number between 0 and 1"}, invalid.Violations)
	require.Zero(t, src.callCount())
}

func TestDeployPausesBetweenLiveFetches(t *testing.T) {
	src := &fakeSource{chains: map[string]chain.Snapshot{
		"2025-07-10": {Legs: []chain.OptionLeg{leg(100, 0.5, -0.5)}},
		"2025-07-24": {Legs: []chain.OptionLeg{leg(100, 0.3, -0.3)}},
	}}
	pause := 40 * time.Millisecond
	engine := NewEngine(src, pause, zap.NewNop())

	_, err := engine.Deploy(context.Background(), defaultConfig(), Mode{})
	require.NoError(t, err)
	require.Equal(t, []string{"2025-07-10", "2025-07-24"}, src.calls)
	require.GreaterOrEqual(t, src.times[1].Sub(src.times[0]), pause)
}

func TestDeploySkipsPauseInTestMode(t *testing.T) {
	engine := NewEngine(mockSource(t), time.Hour, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := engine.Deploy(ctx, defaultConfig(), Mode{TestMode: true})
	require.NoError(t, err)
}

func TestDeployAbortsOnMonthlyFailure(t *testing.T) {
	fetchErr := errors.New("http 429: too many requests")
	src := &fakeSource{
		chains: map[string]chain.Snapshot{"2025-07-10": {Legs: []chain.OptionLeg{leg(100, 0.5, -0.5)}}},
		errs:   map[string]error{"2025-07-24": fetchErr},
	}
	engine := NewEngine(src, 0, zap.NewNop())

	positions, err := engine.Deploy(context.Background(), defaultConfig(), Mode{})
	require.ErrorIs(t, err, fetchErr)
	require.Equal(t, Positions{}, positions)
}

func TestDeployPauseHonoursCancellation(t *testing.T) {
	src := &fakeSource{chains: map[string]chain.Snapshot{}}
	engine := NewEngine(src, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Deploy(ctx, defaultConfig(), Mode{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, src.callCount())
}

func TestDeployLeavesUnmatchedLegsNil(t *testing.T) {
	src := &fakeSource{chains: map[string]chain.Snapshot{
		"2025-07-10": {Legs: []chain.OptionLeg{leg(100, 0.5, 0)}},
		"2025-07-24": {},
	}}
	engine := NewEngine(src, 0, zap.NewNop())

	positions, err := engine.Deploy(context.Background(), defaultConfig(), Mode{})
	require.NoError(t, err)
	require.NotNil(t, positions.WeeklyCallSell)
	require.Nil(t, positions.WeeklyPutSell)
	require.Nil(t, positions.MonthlyCallBuy)
	require.Nil(t, positions.MonthlyPutBuy)
}
