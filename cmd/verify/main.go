package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"options-calendar-bot/internal/config"
	"options-calendar-bot/internal/dhan"
	"options-calendar-bot/internal/logging"
	"options-calendar-bot/internal/metrics"
	"options-calendar-bot/internal/mock"
	"options-calendar-bot/internal/strategy"

	"go.uber.org/zap"
)

const (
	defaultVerifyEnvFile = ".env"
	defaultVerifyTimeout = 2 * time.Minute
)

// verify runs one broker or mock round trip and prints the result as JSON.
func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	expiries := flag.Bool("expiries", false, "print the broker expiry list and exit")
	expiry := flag.String("expiry", "", "print the normalized live option chain for this expiry (YYYY-MM-DD) and exit")
	strikes := flag.Int("strikes", -1, "strikes above and below the closest strike (default from config)")
	weekly := flag.String("weekly", "", "weekly expiry for a one-shot deploy and monitor")
	monthly := flag.String("monthly", "", "monthly expiry for a one-shot deploy and monitor")
	sellDelta := flag.Float64("sell-delta", 0.5, "target delta of the weekly sell legs")
	buyDelta := flag.Float64("buy-delta", 0.3, "target delta of the monthly buy legs")
	exitSellLower := flag.Float64("exit-sell-lower", 0.25, "lower delta band of the weekly sell legs")
	exitSellUpper := flag.Float64("exit-sell-upper", 0.75, "upper delta band of the weekly sell legs")
	exitBuy := flag.Float64("exit-buy", 0.7, "exit delta of the monthly buy legs")
	testMode := flag.Bool("test-mode", false, "use mock data instead of the broker")
	scenario := flag.String("scenario", "", "mock scenario used with -test-mode")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	width := cfg.Strategy.StrikesAroundATM
	if *strikes >= 0 {
		width = *strikes
	}
	client := dhan.New(cfg.Dhan, log)
	provider := mock.NewProvider(nil, log)
	if *testMode {
		data, err := mock.Load(cfg.Strategy.MockDataPath)
		if err != nil {
			fatal(err)
		}
		provider = mock.NewProvider(data, log)
	}
	source := strategy.NewSource(client, provider, width, cfg.Strategy.DefaultScenario, log, metrics.NewNoop())

	ctx, cancel := context.WithTimeout(context.Background(), defaultVerifyTimeout)
	defer cancel()

	switch {
	case *expiries:
		list, err := client.ExpiryList(ctx)
		if err != nil {
			fatal(err)
		}
		printJSON(list)
	case *expiry != "":
		snap, err := source.Live(ctx, *expiry, width)
		if err != nil {
			fatal(err)
		}
		printJSON(snap)
	case *weekly != "" || *monthly != "":
		runStrategy(ctx, log, source, cfg, strategy.Config{
			WeeklyExpiry:  *weekly,
			MonthlyExpiry: *monthly,
			SellLegDelta:  *sellDelta,
			BuyLegDelta:   *buyDelta,
			ExitSellLower: *exitSellLower,
			ExitSellUpper: *exitSellUpper,
			ExitBuyDelta:  *exitBuy,
		}, strategy.Mode{TestMode: *testMode, Scenario: *scenario})
	default:
		fatal(errors.New("one of -expiries, -expiry or -weekly/-monthly is required"))
	}
}

func runStrategy(ctx context.Context, log *zap.Logger, source *strategy.Source, cfg *config.Config, stratCfg strategy.Config, mode strategy.Mode) {
	engine := strategy.NewEngine(source, cfg.Strategy.APIDelay, log)
	positions, err := engine.Deploy(ctx, stratCfg, mode)
	if err != nil {
		fatal(err)
	}
	// the monitor starts with another live fetch right after the deploy's last one
	if err := pause(ctx, mode, cfg.Strategy.APIDelay); err != nil {
		fatal(err)
	}
	monitor := strategy.NewMonitor(source, cfg.Strategy.APIDelay, log)
	report, err := monitor.Evaluate(ctx, positions, stratCfg, mode)
	if err != nil {
		fatal(err)
	}
	printJSON(struct {
		Config    strategy.Config    `json:"config"`
		Mode      strategy.Mode      `json:"mode"`
		Positions strategy.Positions `json:"positions"`
		Report    strategy.Report    `json:"report"`
	}{stratCfg, mode, positions, report})
}

// pause waits d between live broker calls. Mock data needs no pause.
func pause(ctx context.Context, mode strategy.Mode, d time.Duration) error {
	if mode.TestMode || d <= 0 {
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

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
	os.Exit(1)
}
