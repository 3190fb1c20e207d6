package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ActionFunc is a side-effecting action invoked with the current context and
// the triggering event. A non-nil return value is treated as a patch and
// shallow-merged into the context (permissive, mirrors assign).
type ActionFunc func(ctx map[string]any, event Event) map[string]any

// AssignFunc computes a context patch. Non-map results are impossible in Go;
// a nil return simply merges nothing.
type AssignFunc func(ctx map[string]any, event Event) map[string]any

// ValueFunc computes a single context value for a per-key assignment.
// It observes the context as updated by earlier keys of the same assign.
type ValueFunc func(ctx map[string]any, event Event) any

// GuardFunc gates a transition candidate. Absent guards always pass.
type GuardFunc func(ctx map[string]any, event Event) bool

// AssignSpec describes a context-updating action. Exactly one of Fn or Keys
// is set. Keys is insertion-ordered: per-key functions are folded
// sequentially, each observing the writes of earlier keys.
type AssignSpec struct {
	Fn   AssignFunc
	Keys *orderedmap.OrderedMap[string, any]
}

// ActionSpec is a tagged union: a direct callable, a named reference
// (resolved against the service/machine/config action scopes), or an assign
// descriptor. The zero value is a no-op.
type ActionSpec struct {
	Exec   ActionFunc
	Name   string
	Assign *AssignSpec
}

// IsAssign reports whether the spec is a context-updating assign action.
func (a ActionSpec) IsAssign() bool { return a.Assign != nil }

// IsZero reports whether the spec carries nothing to execute.
func (a ActionSpec) IsZero() bool { return a.Exec == nil && a.Name == "" && a.Assign == nil }

// Action wraps a callable into an ActionSpec.
func Action(fn ActionFunc) ActionSpec { return ActionSpec{Exec: fn} }

// Named references an action registered in one of the action scopes.
// Unresolved names are silent no-ops at execution time.
func Named(name string) ActionSpec { return ActionSpec{Name: name} }

// Assign builds an assign action from a patch-producing function.
func Assign(fn AssignFunc) ActionSpec {
	return ActionSpec{Assign: &AssignSpec{Fn: fn}}
}

// AssignKeys builds an assign action from an insertion-ordered key map.
// Values may be literals or ValueFuncs.
func AssignKeys(keys *orderedmap.OrderedMap[string, any]) ActionSpec {
	return ActionSpec{Assign: &AssignSpec{Keys: keys}}
}

// KV is a single ordered assignment entry for AssignMap.
type KV struct {
	Key   string
	Value any
}

// AssignMap builds an assign action from ordered key/value entries.
// It is the literal-map shorthand: AssignMap(KV{"x", 1}) sets x to 1.
func AssignMap(entries ...KV) ActionSpec {
	keys := orderedmap.New[string, any]()
	for _, e := range entries {
		keys.Set(e.Key, e.Value)
	}
	return AssignKeys(keys)
}

// GuardSpec is a guard callable or a named reference. The zero value means
// "no guard" and always passes; an unresolved name always fails.
type GuardSpec struct {
	Fn   GuardFunc
	Name string
}

// IsZero reports whether no guard was configured.
func (g GuardSpec) IsZero() bool { return g.Fn == nil && g.Name == "" }

// Guard wraps a predicate into a GuardSpec.
func Guard(fn GuardFunc) GuardSpec { return GuardSpec{Fn: fn} }

// GuardRef references a guard registered in one of the guard scopes.
func GuardRef(name string) GuardSpec { return GuardSpec{Name: name} }
