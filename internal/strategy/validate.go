package strategy

import (
	"encoding/json"
	"strings"
	"time"

	"options-calendar-bot/internal/chain"
)

// InvalidConfigError lists every violated constraint of a strategy config.
type InvalidConfigError struct {
	Violations []string
}

func (e *InvalidConfigError) Error() string {
	return "invalid strategy configuration: " + strings.Join(e.Violations, "; ")
}

func Validate(cfg Config) error {
	var violations []string
	violations = append(violations, checkExpiry("weeklyExpiry", cfg.WeeklyExpiry)...)
	violations = append(violations, checkExpiry("monthlyExpiry", cfg.MonthlyExpiry)...)
	if !openUnit(cfg.SellLegDelta) {
		violations = append(violations, "sellLegDelta must be a number between 0 and 1")
	}
	if !openUnit(cfg.BuyLegDelta) {
		violations = append(violations, "buyLegDelta must be a number between 0 and 1")
	}
	if len(violations) > 0 {
		return &InvalidConfigError{Violations: violations}
	}
	return nil
}

func checkExpiry(field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{field + " is required"}
	}
	if _, err := time.Parse(chain.ExpiryLayout, value); err != nil {
		return []string{field + " must be a date in YYYY-MM-DD format"}
	}
	return nil
}

func openUnit(v float64) bool {
	return v > 0 && v < 1
}

// ParseConfig decodes a JSON strategy config and validates it. Fields holding
// the wrong JSON type are reported in field order with the range violations.
func ParseConfig(data []byte) (Config, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Config{}, &InvalidConfigError{Violations: []string{"request body must be a JSON object"}}
	}
	var cfg Config
	typed := []struct {
		name string
		dst  any
		want string
	}{
		{"weeklyExpiry", &cfg.WeeklyExpiry, "a date in YYYY-MM-DD format"},
		{"monthlyExpiry", &cfg.MonthlyExpiry, "a date in YYYY-MM-DD format"},
		{"sellLegDelta", &cfg.SellLegDelta, "a number between 0 and 1"},
		{"buyLegDelta", &cfg.BuyLegDelta, "a number between 0 and 1"},
		{"exitSellLower", &cfg.ExitSellLower, "a number"},
		{"exitSellUpper", &cfg.ExitSellUpper, "a number"},
		{"exitBuyDelta", &cfg.ExitBuyDelta, "a number"},
	}
	mistyped := make(map[string]string)
	for _, f := range typed {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			mistyped[f.name] = f.name + " must be " + f.want
		}
	}
	err := Validate(cfg)
	if len(mistyped) == 0 {
		return cfg, err
	}

	byField := make(map[string][]string)
	if invalid, ok := err.(*InvalidConfigError); ok {
		for _, v := range invalid.Violations {
			name, _, _ := strings.Cut(v, " ")
			byField[name] = append(byField[name], v)
		}
	}
	var violations []string
	for _, f := range typed {
		if msg, ok := mistyped[f.name]; ok {
			violations = append(violations, msg)
			continue
		}
		violations = append(violations, byField[f.name]...)
	}
	return cfg, &InvalidConfigError{Violations: violations}
}
