package strategy

import (
	"errors"
	"math"

	"options-calendar-bot/internal/chain"
)

var ErrInvalidChain = errors.New("invalid option chain data")

// SelectByDelta returns the candidate whose delta is nearest to target.
// On equal distance the earlier candidate wins. Candidates with a zero or NaN
// delta carry no greeks and are skipped. A nil slice is rejected.
func SelectByDelta(candidates []Candidate, target float64, side Side) (*Position, error) {
	if candidates == nil {
		return nil, ErrInvalidChain
	}
	var best *Position
	smallest := math.Inf(1)
	for _, c := range candidates {
		if c.Delta == 0 || math.IsNaN(c.Delta) {
			continue
		}
		diff := math.Abs(c.Delta - target)
		if diff < smallest {
			smallest = diff
			best = &Position{
				Strike: c.Strike,
				Delta:  c.Delta,
				Price:  c.Price,
				Type:   side,
				Expiry: c.Expiry,
			}
		}
	}
	return best, nil
}

func callCandidates(snap chain.Snapshot, expiry string) []Candidate {
	out := make([]Candidate, 0, len(snap.Legs))
	for _, leg := range snap.Legs {
		out = append(out, Candidate{Strike: leg.Strike, Delta: leg.Call.Delta, Price: leg.Call.LTP, Expiry: expiry})
	}
	return out
}

// putCandidates reports put deltas as positive values.
func putCandidates(snap chain.Snapshot, expiry string) []Candidate {
	out := make([]Candidate, 0, len(snap.Legs))
	for _, leg := range snap.Legs {
		out = append(out, Candidate{Strike: leg.Strike, Delta: math.Abs(leg.Put.Delta), Price: leg.Put.LTP, Expiry: expiry})
	}
	return out
}
