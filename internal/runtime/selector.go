package runtime

import (
	"github.com/statch/statch/pkg/domain"
)

// Select picks the transition to take for an event from a state's ordered
// candidate list. It returns false when the event has no entry or every
// guard fails.
//
// The scan is exhaustive: a failing guard moves on to the next candidate,
// it never aborts the list.
func Select(state domain.StateConfig, ctx map[string]any, event domain.Event, scopes Scopes) (domain.TransitionSpec, bool) {
	candidates, ok := state.On[event.Type]
	if !ok {
		return domain.TransitionSpec{}, false
	}
	for _, cand := range candidates {
		if EvalGuard(cand.Cond, ctx, event, scopes) {
			return cand, true
		}
	}
	return domain.TransitionSpec{}, false
}

// EvalGuard evaluates a guard spec. An absent guard passes. Named guards
// resolve through the scope chain; an unresolved name fails the guard rather
// than erroring. A panicking guard counts as a failing guard.
func EvalGuard(guard domain.GuardSpec, ctx map[string]any, event domain.Event, scopes Scopes) (pass bool) {
	if guard.IsZero() {
		return true
	}
	fn := guard.Fn
	if fn == nil {
		fn = scopes.Guard(guard.Name)
	}
	if fn == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			pass = false
		}
	}()
	return fn(ctx, event)
}
