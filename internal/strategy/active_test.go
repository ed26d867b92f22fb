package strategy

import (
	"errors"
	"testing"
)

func TestActiveStoreRejectsConcurrentDeploy(t *testing.T) {
	store := NewActiveStore()
	if _, err := store.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := store.Begin(); !errors.Is(err, ErrDeployInProgress) {
		t.Fatalf("expected ErrDeployInProgress, got %v", err)
	}
}

func TestActiveStoreCommitReplacesWholesale(t *testing.T) {
	store := NewActiveStore()
	first, _ := store.Begin()
	if err := store.Commit(first, Active{Config: Config{WeeklyExpiry: "2025-07-10"}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	second, err := store.Begin()
	if err != nil {
		t.Fatalf("redeploy while active: %v", err)
	}
	if err := store.Commit(second, Active{Config: Config{WeeklyExpiry: "2025-07-17"}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok := store.Current()
	if !ok || got.Config.WeeklyExpiry != "2025-07-17" {
		t.Fatalf("expected replaced strategy, got %+v (ok=%v)", got, ok)
	}
	if store.State() != StateActive {
		t.Fatalf("expected %s, got %s", StateActive, store.State())
	}
}

func TestActiveStoreAbortKeepsPrevious(t *testing.T) {
	store := NewActiveStore()
	first, _ := store.Begin()
	_ = store.Commit(first, Active{Config: Config{WeeklyExpiry: "2025-07-10"}})
	second, _ := store.Begin()
	store.Abort(second)
	got, ok := store.Current()
	if !ok || got.Config.WeeklyExpiry != "2025-07-10" {
		t.Fatalf("expected previous strategy kept, got %+v (ok=%v)", got, ok)
	}
	if store.State() != StateActive {
		t.Fatalf("expected %s, got %s", StateActive, store.State())
	}
}

func TestActiveStoreAbortWithoutPreviousIsIdle(t *testing.T) {
	store := NewActiveStore()
	ticket, _ := store.Begin()
	store.Abort(ticket)
	if _, ok := store.Current(); ok {
		t.Fatalf("expected empty slot")
	}
	if store.State() != StateIdle {
		t.Fatalf("expected %s, got %s", StateIdle, store.State())
	}
}

func TestActiveStoreStopCancelsInFlightDeploy(t *testing.T) {
	store := NewActiveStore()
	ticket, _ := store.Begin()
	store.Stop()
	if err := store.Commit(ticket, Active{}); !errors.Is(err, ErrDeployCancelled) {
		t.Fatalf("expected ErrDeployCancelled, got %v", err)
	}
	if _, ok := store.Current(); ok {
		t.Fatalf("expected empty slot after stop")
	}
	if _, err := store.Begin(); err != nil {
		t.Fatalf("expected deploy allowed after stop, got %v", err)
	}
}

func TestActiveStoreStopClears(t *testing.T) {
	store := NewActiveStore()
	ticket, _ := store.Begin()
	_ = store.Commit(ticket, Active{})
	store.Stop()
	if _, ok := store.Current(); ok {
		t.Fatalf("expected empty slot after stop")
	}
	if store.State() != StateIdle {
		t.Fatalf("expected %s, got %s", StateIdle, store.State())
	}
}

func TestActiveStoreIfCurrent(t *testing.T) {
	store := NewActiveStore()
	ticket, _ := store.Begin()
	_ = store.Commit(ticket, Active{})
	first, _ := store.Current()

	ran := false
	if !store.IfCurrent(first.Generation, func() { ran = true }) || !ran {
		t.Fatalf("expected fn to run for the current generation")
	}

	ticket, _ = store.Begin()
	_ = store.Commit(ticket, Active{})
	if store.IfCurrent(first.Generation, func() { t.Fatalf("replaced strategy must not run") }) {
		t.Fatalf("expected replaced generation to be rejected")
	}
	second, _ := store.Current()
	store.Stop()
	if store.IfCurrent(second.Generation, func() { t.Fatalf("stopped strategy must not run") }) {
		t.Fatalf("expected stopped generation to be rejected")
	}
}
