package strategy

import "sync"

type State string

type Event string

const (
	StateIdle      State = "IDLE"
	StateDeploying State = "DEPLOYING"
	StateActive    State = "ACTIVE"
)

const (
	EventDeploy   Event = "DEPLOY"
	EventDeployed Event = "DEPLOYED"
	EventFailed   Event = "FAILED"
	EventStop     Event = "STOP"
)

type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateIdle}
}

func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *StateMachine) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

func nextState(current State, event Event) State {
	switch current {
	case StateIdle, StateActive:
		if event == EventDeploy {
			return StateDeploying
		}
		if event == EventStop {
			return StateIdle
		}
	case StateDeploying:
		switch event {
		case EventDeployed:
			return StateActive
		case EventFailed, EventStop:
			return StateIdle
		}
	}
	return current
}
