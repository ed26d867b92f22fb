package strategy

import (
	"errors"
	"math"
	"testing"

	"options-calendar-bot/internal/chain"

	"github.com/stretchr/testify/require"
)

func TestSelectByDeltaPicksNearest(t *testing.T) {
	candidates := []Candidate{
		{Strike: 24800, Delta: 0.62, Price: 205, Expiry: "2025-07-10"},
		{Strike: 24900, Delta: 0.51, Price: 136.8, Expiry: "2025-07-10"},
		{Strike: 25000, Delta: 0.39, Price: 84.1, Expiry: "2025-07-10"},
	}
	pos, err := SelectByDelta(candidates, 0.5, SideSell)
	require.NoError(t, err)
	require.Equal(t, &Position{Strike: 24900, Delta: 0.51, Price: 136.8, Type: SideSell, Expiry: "2025-07-10"}, pos)
}

func TestSelectByDeltaTieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{Strike: 24900, Delta: 0.55},
		{Strike: 25000, Delta: 0.45},
	}
	pos, err := SelectByDelta(candidates, 0.5, SideBuy)
	require.NoError(t, err)
	require.Equal(t, 24900.0, pos.Strike)
	require.Equal(t, SideBuy, pos.Type)
}

func TestSelectByDeltaSkipsMissingDeltas(t *testing.T) {
	candidates := []Candidate{
		{Strike: 24800, Delta: 0},
		{Strike: 24900, Delta: math.NaN()},
		{Strike: 25000, Delta: 0.9},
	}
	pos, err := SelectByDelta(candidates, 0.1, SideSell)
	require.NoError(t, err)
	require.Equal(t, 25000.0, pos.Strike)
}

func TestSelectByDeltaNoMatch(t *testing.T) {
	pos, err := SelectByDelta([]Candidate{}, 0.5, SideSell)
	require.NoError(t, err)
	require.Nil(t, pos)

	pos, err = SelectByDelta([]Candidate{{Strike: 100}}, 0.5, SideSell)
	require.NoError(t, err)
	require.Nil(t, pos)
}

func TestSelectByDeltaRejectsNil(t *testing.T) {
	_, err := SelectByDelta(nil, 0.5, SideSell)
	require.True(t, errors.Is(err, ErrInvalidChain))
}

func TestPutCandidatesNormalizeSign(t *testing.T) {
	snap := chain.Snapshot{Legs: []chain.OptionLeg{
		{Strike: 24900, Put: chain.Quote{Delta: -0.42, LTP: 80}},
	}}
	candidates := putCandidates(snap, "2025-07-10")
	require.Len(t, candidates, 1)
	require.Equal(t, 0.42, candidates[0].Delta)
	require.Equal(t, 80.0, candidates[0].Price)

	pos, err := SelectByDelta(candidates, 0.4, SideSell)
	require.NoError(t, err)
	require.Equal(t, 0.42, pos.Delta)
}

func TestValidateCollectsAllViolations(t *testing.T) {
	err := Validate(Config{})
	var invalid *InvalidConfigError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, []string{
		"weeklyExpiry is required",
		"monthlyExpiry is required",
		"sellLegDelta must be a number between 0 and 1",
		"buyLegDelta must be a number between 0 and 1",
	}, invalid.Violations)
}

func TestValidateBounds(t *testing.T) {
	base := Config{WeeklyExpiry: "2025-07-10", MonthlyExpiry: "2025-07-24", SellLegDelta: 0.5, BuyLegDelta: 0.3}
	require.NoError(t, Validate(base))

	for _, bad := range []float64{0, 1, -0.1, 1.5} {
		cfg := base
		cfg.SellLegDelta = bad
		require.Error(t, Validate(cfg), "sellLegDelta %v", bad)
		cfg = base
		cfg.BuyLegDelta = bad
		require.Error(t, Validate(cfg), "buyLegDelta %v", bad)
	}

	cfg := base
	cfg.MonthlyExpiry = "24/07/2025"
	var invalid *InvalidConfigError
	require.True(t, errors.As(Validate(cfg), &invalid))
	require.Equal(t, []string{"monthlyExpiry must be a date in YYYY-MM-DD format"}, invalid.Violations)
}

func TestParseConfigReportsTypeErrorsInFieldOrder(t *testing.T) {
	_, err := ParseConfig([]byte(`{"weeklyExpiry":20250710,"monthlyExpiry":"2025-07-24","sellLegDelta":"abc","buyLegDelta":0,"exitBuyDelta":"high"}`))
	var invalid *InvalidConfigError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, []string{
		"weeklyExpiry must be a date in YYYY-MM-DD format",
		"sellLegDelta must be a number between 0 and 1",
		"buyLegDelta must be a number between 0 and 1",
		"exitBuyDelta must be a number",
	}, invalid.Violations)
}

func TestParseConfigAcceptsValidBody(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"weeklyExpiry":"2025-07-10","monthlyExpiry":"2025-07-24","sellLegDelta":0.5,"buyLegDelta":0.3,"exitSellUpper":0.8}`))
	require.NoError(t, err)
	require.Equal(t, 0.8, cfg.ExitSellUpper)

	_, err = ParseConfig([]byte(`not json`))
	var invalid *InvalidConfigError
	require.True(t, errors.As(err, &invalid))
}
