package strategy

import (
	"errors"
	"sync"
)

var (
	ErrDeployInProgress = errors.New("strategy deployment already in progress")
	ErrDeployCancelled  = errors.New("strategy deployment cancelled by stop")
	ErrNoActiveStrategy = errors.New("no active strategy positions found")
)

// Active is the deployed strategy owned by an ActiveStore.
type Active struct {
	Config    Config    `json:"config"`
	Mode      Mode      `json:"mode"`
	Positions Positions `json:"positions"`
	// Generation changes whenever the slot is replaced or cleared.
	Generation uint64 `json:"-"`
}

// ActiveStore is the single active-strategy slot. Only one deployment may be
// in flight; a completed deployment replaces the slot wholesale, a failed one
// leaves the previous strategy in place, and Stop discards both the slot and
// any deployment still in flight.
type ActiveStore struct {
	mu     sync.Mutex
	sm     *StateMachine
	active *Active
	ticket uint64
	gen    uint64
}

func NewActiveStore() *ActiveStore {
	return &ActiveStore{sm: NewStateMachine()}
}

// Begin reserves the slot for a deployment and returns its ticket.
func (s *ActiveStore) Begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm.Current() == StateDeploying {
		return 0, ErrDeployInProgress
	}
	s.sm.Apply(EventDeploy)
	s.ticket++
	return s.ticket, nil
}

// Commit installs the result of the deployment holding ticket.
func (s *ActiveStore) Commit(ticket uint64, active Active) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.ticket || s.sm.Current() != StateDeploying {
		return ErrDeployCancelled
	}
	s.gen++
	active.Generation = s.gen
	s.active = &active
	s.sm.Apply(EventDeployed)
	return nil
}

// Abort releases a failed deployment, keeping any previous strategy.
func (s *ActiveStore) Abort(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.ticket || s.sm.Current() != StateDeploying {
		return
	}
	s.sm.Apply(EventFailed)
	if s.active != nil {
		s.sm.SetState(StateActive)
	}
}

func (s *ActiveStore) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	s.gen++
	s.active = nil
	s.sm.Apply(EventStop)
}

// IfCurrent runs fn with the slot locked when generation still names the
// active strategy, and reports whether fn ran. fn must not call back into s.
func (s *ActiveStore) IfCurrent(generation uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.Generation != generation {
		return false
	}
	fn()
	return true
}

func (s *ActiveStore) Current() (Active, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Active{}, false
	}
	return *s.active, true
}

func (s *ActiveStore) State() State {
	return s.sm.Current()
}
