package chain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalize converts a raw broker chain into a sorted window of
// strikesAboveBelow strikes on each side of the strike closest to the
// underlying price. The window is clamped at the ends of the chain.
func Normalize(raw RawChain, strikesAboveBelow int) (Snapshot, error) {
	if raw.Data == nil {
		return Snapshot{}, &MalformedChainError{Reason: "missing data"}
	}
	if raw.Data.LastPrice == nil {
		return Snapshot{}, &MalformedChainError{Reason: "missing last_price"}
	}
	if raw.Data.OC == nil {
		return Snapshot{}, &MalformedChainError{Reason: "missing oc strike map"}
	}
	if len(raw.Data.OC) == 0 {
		return Snapshot{}, &MalformedChainError{Reason: "empty oc strike map"}
	}
	if strikesAboveBelow < 0 {
		strikesAboveBelow = 0
	}
	underlying := *raw.Data.LastPrice

	legs := make([]OptionLeg, 0, len(raw.Data.OC))
	for key, data := range raw.Data.OC {
		strike, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			return Snapshot{}, &MalformedChainError{Reason: fmt.Sprintf("strike %q: %v", key, err)}
		}
		if math.IsNaN(strike) || math.IsInf(strike, 0) {
			return Snapshot{}, &MalformedChainError{Reason: fmt.Sprintf("strike %q is not finite", key)}
		}
		legs = append(legs, OptionLeg{
			Strike: strike,
			Call:   quoteFromRaw(data.CE),
			Put:    quoteFromRaw(data.PE),
		})
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].Strike < legs[j].Strike })
	for i := 1; i < len(legs); i++ {
		if legs[i].Strike == legs[i-1].Strike {
			return Snapshot{}, &MalformedChainError{Reason: fmt.Sprintf("duplicate strike %v", legs[i].Strike)}
		}
	}

	closest := ClosestIndex(legs, underlying)
	start, end := Window(len(legs), closest, strikesAboveBelow)
	window := make([]OptionLeg, end-start)
	copy(window, legs[start:end])

	return Snapshot{
		UnderlyingPrice:   underlying,
		ClosestStrike:     legs[closest].Strike,
		TotalStrikesShown: len(window),
		Legs:              window,
	}, nil
}

// ClosestIndex returns the index of the leg whose strike is nearest to price.
// The first minimum wins; -1 for an empty slice.
func ClosestIndex(legs []OptionLeg, price float64) int {
	if len(legs) == 0 {
		return -1
	}
	best := 0
	minDiff := math.Abs(legs[0].Strike - price)
	for i := 1; i < len(legs); i++ {
		diff := math.Abs(legs[i].Strike - price)
		if diff < minDiff {
			minDiff = diff
			best = i
		}
	}
	return best
}

// Window returns the half-open bounds [start, end) of k entries around index i
// in a slice of length n.
func Window(n, i, k int) (int, int) {
	start := i - k
	if start < 0 {
		start = 0
	}
	end := i + k + 1
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

func quoteFromRaw(raw *RawOption) Quote {
	if raw == nil {
		return Quote{}
	}
	return Quote{
		LTP:    raw.LastPrice,
		Bid:    raw.TopBidPrice,
		Ask:    raw.TopAskPrice,
		Volume: raw.Volume,
		OI:     raw.OI,
		IV:     raw.ImpliedVolatility,
		Delta:  raw.Greeks.Delta,
		Gamma:  raw.Greeks.Gamma,
		Theta:  raw.Greeks.Theta,
		Vega:   raw.Greeks.Vega,
	}
}
