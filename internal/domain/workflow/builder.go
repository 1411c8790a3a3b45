package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a predicate that decides whether a candidate transition may run
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for the given status, creating it if needed
	Configure(status Status) StatusConfiguration

	// Build creates a new state machine instance positioned at the given status
	Build(initial Status) StateMachine
}

// StatusConfiguration configures outgoing transitions for a single status
type StatusConfiguration interface {
	// Permit allows an action to transition to the target status
	Permit(action Action, to Status) StatusConfiguration

	// PermitIf allows an action to transition to the target status when the guard passes
	PermitIf(action Action, to Status, guard GuardFunc) StatusConfiguration
}

type transition struct {
	to    Status
	guard GuardFunc
}

type statusConfig struct {
	from        Status
	transitions map[Action][]transition
}

type machineBuilder struct {
	configurations map[Status]*statusConfig
}

type stateMachine struct {
	current        Status
	configurations map[Status]*statusConfig
}

// NewBuilder creates an empty state machine builder
func NewBuilder() StateMachineBuilder {
	return &machineBuilder{
		configurations: make(map[Status]*statusConfig),
	}
}

func (b *machineBuilder) Configure(status Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	cfg, ok := b.configurations[status]
	if !ok {
		cfg = &statusConfig{
			from:        status,
			transitions: make(map[Action][]transition),
		}
		b.configurations[status] = cfg
	}

	return cfg
}

func (b *machineBuilder) Build(initial Status) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Deep copy so later builder mutations never leak into built machines
	configs := make(map[Status]*statusConfig, len(b.configurations))
	for status, cfg := range b.configurations {
		transitions := make(map[Action][]transition, len(cfg.transitions))
		for action, ts := range cfg.transitions {
			transitions[action] = append([]transition{}, ts...)
		}
		configs[status] = &statusConfig{from: status, transitions: transitions}
	}

	return &stateMachine{
		current:        initial,
		configurations: configs,
	}
}

func (c *statusConfig) Permit(action Action, to Status) StatusConfiguration {
	return c.PermitIf(action, to, nil)
}

func (c *statusConfig) PermitIf(action Action, to Status, guard GuardFunc) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}

	c.transitions[action] = append(c.transitions[action], transition{to: to, guard: guard})
	return c
}

func (m *stateMachine) Status() Status {
	return m.current
}

func (m *stateMachine) CanFire(action Action) bool {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return false
	}

	ts, ok := cfg.transitions[action]
	return ok && len(ts) > 0
}

func (m *stateMachine) Fire(ctx context.Context, action Action) error {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return &IllegalTransitionError{Status: m.current, Action: action}
	}

	ts, ok := cfg.transitions[action]
	if !ok || len(ts) == 0 {
		return &IllegalTransitionError{Status: m.current, Action: action}
	}

	// First transition whose guard passes wins
	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: action %s in status %s", ErrGuardFailed, action, m.current)
}

func (m *stateMachine) PermittedActions() []Action {
	cfg, ok := m.configurations[m.current]
	if !ok {
		return []Action{}
	}

	actions := make([]Action, 0, len(cfg.transitions))
	for action := range cfg.transitions {
		actions = append(actions, action)
	}

	return actions
}
