package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"options-calendar-bot/internal/chain"

	"gopkg.in/yaml.v3"
)

// Scenario holds one canned chain per expiry class.
type Scenario struct {
	Weekly  *chain.Snapshot `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	Monthly *chain.Snapshot `json:"monthly,omitempty" yaml:"monthly,omitempty"`
}

func (s Scenario) bucket(class ExpiryClass) *chain.Snapshot {
	switch class {
	case Weekly:
		return s.Weekly
	case Monthly:
		return s.Monthly
	}
	return nil
}

type Dataset struct {
	Scenarios    map[string]Scenario `json:"scenarios" yaml:"scenarios"`
	Descriptions map[string]string   `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
}

// Load reads a scenario dataset. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(path string) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("mock data path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ds)
	default:
		err = json.Unmarshal(data, &ds)
	}
	if err != nil {
		return nil, fmt.Errorf("decode mock data %s: %w", path, err)
	}
	if len(ds.Scenarios) == 0 {
		return nil, fmt.Errorf("mock data %s has no scenarios", path)
	}
	return &ds, nil
}
