package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func rawChain(price float64, strikes ...float64) RawChain {
	oc := make(map[string]RawStrike, len(strikes))
	for i, strike := range strikes {
		oc[fmt.Sprintf("%.6f", strike)] = RawStrike{
			CE: &RawOption{LastPrice: float64(i + 1), Greeks: RawGreeks{Delta: 0.5}},
			PE: &RawOption{LastPrice: float64(i + 2), Greeks: RawGreeks{Delta: -0.5}},
		}
	}
	return RawChain{Status: "success", Data: &RawChainData{LastPrice: &price, OC: oc}}
}

func TestNormalizeSortsAndCentres(t *testing.T) {
	raw := rawChain(24930, 25100, 24800, 24900, 25000, 24700, 25200)
	snap, err := Normalize(raw, 1)
	require.NoError(t, err)

	require.Equal(t, 24930.0, snap.UnderlyingPrice)
	require.Equal(t, 24900.0, snap.ClosestStrike)
	require.Equal(t, 3, snap.TotalStrikesShown)
	strikes := make([]float64, 0, len(snap.Legs))
	for _, leg := range snap.Legs {
		strikes = append(strikes, leg.Strike)
	}
	require.Equal(t, []float64{24800, 24900, 25000}, strikes)
}

func TestNormalizeClosestStrikeTieTakesLowerStrike(t *testing.T) {
	raw := rawChain(24950, 25000, 24900)
	snap, err := Normalize(raw, 5)
	require.NoError(t, err)
	require.Equal(t, 24900.0, snap.ClosestStrike)
	require.Len(t, snap.Legs, 2)
}

func TestNormalizeWindowClampsAtEdges(t *testing.T) {
	raw := rawChain(100, 100, 110, 120, 130, 140, 150)
	snap, err := Normalize(raw, 2)
	require.NoError(t, err)
	require.Equal(t, 100.0, snap.ClosestStrike)
	require.Equal(t, 3, snap.TotalStrikesShown)
	require.Equal(t, 120.0, snap.Legs[len(snap.Legs)-1].Strike)
}

func TestWindowLength(t *testing.T) {
	for n := 1; n <= 8; n++ {
		for i := 0; i < n; i++ {
			for k := 0; k <= 4; k++ {
				start, end := Window(n, i, k)
				want := min(n, i+k+1) - max(0, i-k)
				require.Equal(t, want, end-start, "n=%d i=%d k=%d", n, i, k)
			}
		}
	}
}

func TestNormalizeMapsFieldsAndDefaultsMissingSide(t *testing.T) {
	price := 200.0
	raw := RawChain{Data: &RawChainData{
		LastPrice: &price,
		OC: map[string]RawStrike{
			"200.000000": {
				CE: &RawOption{
					LastPrice:         12.5,
					TopBidPrice:       12.4,
					TopAskPrice:       12.6,
					Volume:            1000,
					OI:                250,
					ImpliedVolatility: 14.2,
					Greeks:            RawGreeks{Delta: 0.52, Gamma: 0.01, Theta: -3.1, Vega: 8.4},
				},
			},
		},
	}}
	snap, err := Normalize(raw, 10)
	require.NoError(t, err)
	require.Len(t, snap.Legs, 1)
	require.Equal(t, Quote{LTP: 12.5, Bid: 12.4, Ask: 12.6, Volume: 1000, OI: 250, IV: 14.2, Delta: 0.52, Gamma: 0.01, Theta: -3.1, Vega: 8.4}, snap.Legs[0].Call)
	require.Equal(t, Quote{}, snap.Legs[0].Put)
}

func TestNormalizeRejectsMalformedPayloads(t *testing.T) {
	price := 100.0
	cases := map[string]RawChain{
		"no data":    {},
		"no price":   {Data: &RawChainData{OC: map[string]RawStrike{"100": {}}}},
		"no oc":      {Data: &RawChainData{LastPrice: &price}},
		"empty oc":   {Data: &RawChainData{LastPrice: &price, OC: map[string]RawStrike{}}},
		"bad strike": {Data: &RawChainData{LastPrice: &price, OC: map[string]RawStrike{"abc": {}}}},
		"nan strike": {Data: &RawChainData{LastPrice: &price, OC: map[string]RawStrike{"NaN": {}, "100": {}}}},
		"inf strike": {Data: &RawChainData{LastPrice: &price, OC: map[string]RawStrike{"100": {}, "+Inf": {}}}},
		"duplicate strike": {Data: &RawChainData{LastPrice: &price, OC: map[string]RawStrike{
			"100":     {CE: &RawOption{Greeks: RawGreeks{Delta: 0.5}}},
			"100.000": {CE: &RawOption{Greeks: RawGreeks{Delta: 0.9}}},
			"110":     {},
		}}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(raw, 10)
			var malformed *MalformedChainError
			require.True(t, errors.As(err, &malformed), "expected MalformedChainError, got %v", err)
		})
	}
}

func TestClosestIndexEmpty(t *testing.T) {
	require.Equal(t, -1, ClosestIndex(nil, 100))
}
