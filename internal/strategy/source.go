package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"options-calendar-bot/internal/chain"
	"options-calendar-bot/internal/metrics"
	"options-calendar-bot/internal/mock"

	"go.uber.org/zap"
)

var ErrLiveSourceUnavailable = errors.New("live option chain source not configured")

// ChainSource resolves the chain for one expiry, live or mocked.
type ChainSource interface {
	Chain(ctx context.Context, expiry string, mode Mode) (Fetched, error)
}

// LiveFetcher is the broker capability the live path depends on.
type LiveFetcher interface {
	FetchOptionChain(ctx context.Context, expiry string) (chain.RawChain, error)
}

type Source struct {
	live            LiveFetcher
	mock            *mock.Provider
	strikes         int
	defaultScenario string
	log             *zap.Logger
	metrics         *metrics.Metrics
}

func NewSource(live LiveFetcher, provider *mock.Provider, strikes int, defaultScenario string, log *zap.Logger, m *metrics.Metrics) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if strings.TrimSpace(defaultScenario) == "" {
		defaultScenario = mock.DefaultScenario
	}
	return &Source{
		live:            live,
		mock:            provider,
		strikes:         strikes,
		defaultScenario: defaultScenario,
		log:             log,
		metrics:         m,
	}
}

func (s *Source) Chain(ctx context.Context, expiry string, mode Mode) (Fetched, error) {
	if mode.TestMode {
		return s.mocked(expiry, mode.Scenario)
	}
	snap, err := s.Live(ctx, expiry, s.strikes)
	if err != nil {
		return Fetched{}, err
	}
	return Fetched{Snapshot: snap, Live: true}, nil
}

// Live fetches and normalizes the broker chain with a custom window width.
func (s *Source) Live(ctx context.Context, expiry string, strikes int) (chain.Snapshot, error) {
	if s.live == nil {
		return chain.Snapshot{}, ErrLiveSourceUnavailable
	}
	s.metrics.ChainFetches.Inc()
	raw, err := s.live.FetchOptionChain(ctx, expiry)
	if err != nil {
		s.metrics.ChainFetchFailed.Inc()
		return chain.Snapshot{}, fmt.Errorf("fetch option chain %s: %w", expiry, err)
	}
	snap, err := chain.Normalize(raw, strikes)
	if err != nil {
		s.metrics.ChainFetchFailed.Inc()
		return chain.Snapshot{}, fmt.Errorf("option chain %s: %w", expiry, err)
	}
	return snap, nil
}

func (s *Source) mocked(expiry, scenario string) (Fetched, error) {
	if strings.TrimSpace(scenario) == "" {
		scenario = s.defaultScenario
	}
	date, err := time.Parse(chain.ExpiryLayout, expiry)
	if err != nil {
		return Fetched{}, fmt.Errorf("mock expiry %q: %w", expiry, err)
	}
	res, err := s.mock.Snapshot(scenario, date)
	if err != nil {
		return Fetched{}, err
	}
	if res.UsedFallback {
		s.metrics.MockFallbacks.Inc()
	}
	s.log.Debug("using mock option chain",
		zap.String("scenario", res.Scenario),
		zap.String("expiry", expiry),
		zap.String("class", string(res.Class)),
	)
	return Fetched{Snapshot: res.Snapshot, Scenario: res.Scenario, UsedFallback: res.UsedFallback}, nil
}

// fetchPair reads the weekly then the monthly chain. Live reads are separated
// by pause to stay under the broker rate limit.
func fetchPair(ctx context.Context, src ChainSource, pause time.Duration, cfg Config, mode Mode) (Fetched, Fetched, error) {
	weekly, err := src.Chain(ctx, cfg.WeeklyExpiry, mode)
	if err != nil {
		return Fetched{}, Fetched{}, fmt.Errorf("weekly chain: %w", err)
	}
	if !mode.TestMode {
		if err := sleep(ctx, pause); err != nil {
			return Fetched{}, Fetched{}, err
		}
	}
	monthly, err := src.Chain(ctx, cfg.MonthlyExpiry, mode)
	if err != nil {
		return Fetched{}, Fetched{}, fmt.Errorf("monthly chain: %w", err)
	}
	return weekly, monthly, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
