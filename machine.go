package statch

import (
	"fmt"

	"github.com/statch/statch/internal/runtime"
	"github.com/statch/statch/pkg/domain"
)

// Machine is the pure half of the engine: it computes transitions without
// owning or mutating any state. Safe for concurrent use once constructed.
type Machine struct {
	config  domain.Config
	scopes  runtime.Scopes // machine scope, then config scope
	lenient bool
}

// MachineOption configures a Machine at construction.
type MachineOption func(*machineOptions)

type machineOptions struct {
	actions map[string]domain.ActionFunc
	guards  map[string]domain.GuardFunc
	lenient bool
}

// WithActions registers machine-scope named actions. They shadow config-scope
// bindings of the same name and are shadowed by service-scope bindings.
func WithActions(actions map[string]domain.ActionFunc) MachineOption {
	return func(o *machineOptions) { o.actions = actions }
}

// WithGuards registers machine-scope named guards.
func WithGuards(guards map[string]domain.GuardFunc) MachineOption {
	return func(o *machineOptions) { o.guards = guards }
}

// WithLenientTargets switches the machine from the default strict target
// policy (unknown targets fail construction or Transition) to the lenient
// one, where an unresolvable target degrades to a no-match.
func WithLenientTargets() MachineOption {
	return func(o *machineOptions) { o.lenient = true }
}

// NewMachine validates the config and builds a machine.
//
// Construction fails when the initial state is missing or unknown, when any
// state declares nested states, or, in strict mode, when a transition
// targets an unknown state.
func NewMachine(cfg domain.Config, opts ...MachineOption) (*Machine, error) {
	var o machineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Initial == "" {
		return nil, &domain.ConfigError{Err: domain.ErrMissingInitial}
	}
	if _, ok := cfg.States[cfg.Initial]; !ok {
		return nil, &domain.ConfigError{State: cfg.Initial, Err: domain.ErrUnknownInitialState}
	}
	for name, st := range cfg.States {
		if len(st.States) > 0 {
			return nil, &domain.ConfigError{State: name, Err: domain.ErrNestedStates}
		}
		if o.lenient {
			continue
		}
		for event, candidates := range st.On {
			for _, cand := range candidates {
				if cand.Target == "" {
					continue
				}
				if _, ok := cfg.States[cand.Target]; !ok {
					return nil, &domain.ConfigError{
						State: name,
						Err:   fmt.Errorf("%w: %q (event %q)", domain.ErrUnknownTarget, cand.Target, event),
					}
				}
			}
		}
	}

	scopes := runtime.Scopes{
		{Actions: o.actions, Guards: o.guards},
		{Actions: cfg.Actions, Guards: cfg.Guards},
	}
	return &Machine{config: cfg, scopes: scopes, lenient: o.lenient}, nil
}

// Config returns the machine definition. Callers must treat it as read-only.
func (m *Machine) Config() domain.Config { return m.config }

// ID returns the config id, or "" when unset.
func (m *Machine) ID() string { return m.config.ID }

// InitialState computes the initial StateResult.
//
// Pass-1 assigns of the initial state's entry list are precomputed against a
// copy of the config context, so Context already reflects them; Actions
// carries only the non-assign remainder. Changed is always false.
func (m *Machine) InitialState() (domain.StateResult, error) {
	return m.stateResultFor(m.config.Initial)
}

// stateResultFor builds an entry StateResult for any known state value. It
// backs both InitialState and Service.StartAt.
func (m *Machine) stateResultFor(value string) (domain.StateResult, error) {
	st, ok := m.config.States[value]
	if !ok {
		return domain.StateResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownTarget, value)
	}
	ctx := domain.CopyContext(m.config.Context)
	if _, err := runtime.ApplyAssigns(ctx, st.Entry, domain.InitEvent()); err != nil {
		return domain.StateResult{}, err
	}
	return domain.StateResult{
		Value:   value,
		Context: ctx,
		Actions: nonAssign(st.Entry),
		Changed: false,
	}, nil
}

// Transition computes the next StateResult for (state, event).
//
// state may be nil (config defaults), a state value string, or a previous
// StateResult (whose context is then used). event may be a string, an Event,
// or a map with a "type" field.
//
// No matching candidate, or exhaustion of every guard, yields the
// canonical unchanged result and a nil error.
func (m *Machine) Transition(state any, event any) (domain.StateResult, error) {
	ev, err := runtime.NormalizeEvent(event)
	if err != nil {
		return domain.StateResult{}, err
	}

	value := m.config.Initial
	ctx := m.config.Context
	switch s := state.(type) {
	case nil:
	case string:
		if s != "" {
			value = s
		}
	case domain.StateResult:
		if s.Value != "" {
			value = s.Value
		}
		if s.Context != nil {
			ctx = s.Context
		}
	case *domain.StateResult:
		if s != nil {
			if s.Value != "" {
				value = s.Value
			}
			if s.Context != nil {
				ctx = s.Context
			}
		}
	}

	return m.transition(value, ctx, ev, m.scopes)
}

// transition is the shared pure core. The scope chain varies by caller: a
// Service prepends its own bindings.
func (m *Machine) transition(value string, ctx map[string]any, event domain.Event, scopes runtime.Scopes) (domain.StateResult, error) {
	src, ok := m.config.States[value]
	if !ok {
		return domain.Unchanged(value, ctx), nil
	}

	cand, ok := runtime.Select(src, ctx, event, scopes)
	if !ok {
		return domain.Unchanged(value, ctx), nil
	}

	var dst *domain.StateConfig
	if cand.Target != "" {
		d, ok := m.config.States[cand.Target]
		if !ok {
			if m.lenient {
				return domain.Unchanged(value, ctx), nil
			}
			return domain.StateResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownTarget, cand.Target)
		}
		dst = &d
	}

	raw := runtime.Compose(src, dst, cand)

	next := domain.CopyContext(ctx)
	assigned, err := runtime.ApplyAssigns(next, raw, event)
	if err != nil {
		return domain.StateResult{}, err
	}

	nextValue := value
	if cand.Target != "" {
		nextValue = cand.Target
	}

	return domain.StateResult{
		Value:   nextValue,
		Context: next,
		Actions: nonAssign(raw),
		Changed: (cand.Target != "" && cand.Target != value) || len(raw) > 0 || assigned,
	}, nil
}

// Interpret creates a Service bound to this machine.
func (m *Machine) Interpret(opts ...ServiceOption) *Service {
	return newService(m, opts...)
}

func nonAssign(actions []domain.ActionSpec) []domain.ActionSpec {
	var out []domain.ActionSpec
	for _, a := range actions {
		if !a.IsAssign() && !a.IsZero() {
			out = append(out, a)
		}
	}
	return out
}
