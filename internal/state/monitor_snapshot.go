package state

import (
	"context"
	"encoding/json"
	"strings"

	"options-calendar-bot/internal/strategy"
)

const MonitorSnapshotKey = "monitor:last_report"

// MonitorSnapshot is the latest monitoring pass together with the strategy it evaluated.
type MonitorSnapshot struct {
	Config      strategy.Config    `json:"config"`
	Mode        strategy.Mode      `json:"mode"`
	Positions   strategy.Positions `json:"positions"`
	Report      strategy.Report    `json:"report"`
	UpdatedAtMS int64              `json:"updated_at_ms"`
}

func LoadMonitorSnapshot(ctx context.Context, store Store) (MonitorSnapshot, bool, error) {
	if store == nil {
		return MonitorSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, MonitorSnapshotKey)
	if err != nil {
		return MonitorSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return MonitorSnapshot{}, false, nil
	}
	var snapshot MonitorSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return MonitorSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SaveMonitorSnapshot(ctx context.Context, store Store, snapshot MonitorSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, MonitorSnapshotKey, string(payload))
}

// ClearMonitorSnapshot drops the cached report, used when the strategy is stopped.
func ClearMonitorSnapshot(ctx context.Context, store Store) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return store.Delete(ctx, MonitorSnapshotKey)
}
