package mock

import (
	"fmt"
	"sort"
	"time"

	"options-calendar-bot/internal/chain"

	"go.uber.org/zap"
)

// DefaultScenario is served whenever a requested scenario cannot be.
const DefaultScenario = "no-adjustments"

type ExpiryClass string

const (
	Weekly  ExpiryClass = "weekly"
	Monthly ExpiryClass = "monthly"
)

// Classify buckets an expiry by day of month: 1-15 weekly, 16+ monthly.
func Classify(expiry time.Time) ExpiryClass {
	if expiry.Day() <= 15 {
		return Weekly
	}
	return Monthly
}

// ScenarioNotAvailableError is returned when neither the requested scenario
// nor the default one can serve the expiry class.
type ScenarioNotAvailableError struct {
	Scenario string
	Class    ExpiryClass
}

func (e *ScenarioNotAvailableError) Error() string {
	return fmt.Sprintf("mock scenario %q (%s) not available", e.Scenario, e.Class)
}

type Result struct {
	Snapshot     chain.Snapshot
	Scenario     string
	Class        ExpiryClass
	UsedFallback bool
}

type Listing struct {
	Scenarios    []string          `json:"scenarios"`
	Descriptions map[string]string `json:"descriptions"`
}

// Provider serves canned snapshots. It never mutates the dataset and is safe
// for concurrent use.
type Provider struct {
	data *Dataset
	log  *zap.Logger
}

func NewProvider(data *Dataset, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{data: data, log: log}
}

func (p *Provider) Available() bool {
	return p != nil && p.data != nil
}

func (p *Provider) Dataset() *Dataset {
	if !p.Available() {
		return nil
	}
	return p.data
}

func (p *Provider) Snapshot(scenario string, expiry time.Time) (Result, error) {
	class := Classify(expiry)
	if !p.Available() {
		return Result{}, &ScenarioNotAvailableError{Scenario: scenario, Class: class}
	}
	if snap, ok := p.lookup(scenario, class); ok {
		return Result{Snapshot: snap, Scenario: scenario, Class: class}, nil
	}
	p.log.Warn("mock scenario not found, falling back",
		zap.String("scenario", scenario),
		zap.String("class", string(class)),
		zap.String("fallback", DefaultScenario),
		zap.Strings("available", p.names()),
	)
	snap, ok := p.lookup(DefaultScenario, class)
	if !ok {
		return Result{}, &ScenarioNotAvailableError{Scenario: DefaultScenario, Class: class}
	}
	return Result{Snapshot: snap, Scenario: DefaultScenario, Class: class, UsedFallback: true}, nil
}

func (p *Provider) Scenarios() Listing {
	if !p.Available() {
		return Listing{
			Scenarios:    []string{DefaultScenario},
			Descriptions: map[string]string{DefaultScenario: "No Adjustments (Default)"},
		}
	}
	desc := p.data.Descriptions
	if desc == nil {
		desc = map[string]string{}
	}
	return Listing{Scenarios: p.names(), Descriptions: desc}
}

func (p *Provider) lookup(scenario string, class ExpiryClass) (chain.Snapshot, bool) {
	sc, ok := p.data.Scenarios[scenario]
	if !ok {
		return chain.Snapshot{}, false
	}
	snap := sc.bucket(class)
	if snap == nil {
		return chain.Snapshot{}, false
	}
	out := *snap
	out.Legs = append([]chain.OptionLeg(nil), snap.Legs...)
	return out, true
}

func (p *Provider) names() []string {
	names := make([]string, 0, len(p.data.Scenarios))
	for name := range p.data.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
