package domain

// TransitionSpec describes one transition candidate for an event.
// An empty Target makes the transition targetless: it runs only its own
// actions, never exit/entry, and never changes the current value.
type TransitionSpec struct {
	Target  string
	Actions []ActionSpec
	Cond    GuardSpec
}

// Target is the shorthand for a bare-target transition.
func Target(state string) TransitionSpec { return TransitionSpec{Target: state} }

// StateConfig describes a single flat state.
type StateConfig struct {
	// Entry and Exit run on targeted transitions into / out of the state.
	Entry []ActionSpec
	Exit  []ActionSpec

	// On maps an event type to its ordered transition candidates. The first
	// candidate whose guard passes is taken; the scan is exhaustive.
	On map[string][]TransitionSpec

	// States exists only so nested definitions can be detected and rejected
	// at machine construction. It must be empty.
	States map[string]StateConfig
}

// Config is the immutable machine definition. It is copied as needed at
// construction and never mutated afterwards; the engine only reads it.
type Config struct {
	ID      string
	Initial string
	Context map[string]any
	States  map[string]StateConfig

	// Actions and Guards are the config-scope name bindings, the lowest
	// priority of the three resolution scopes (service, machine, config).
	Actions map[string]ActionFunc
	Guards  map[string]GuardFunc
}

// CopyContext shallow-copies a context map. Nil maps copy to empty maps so
// callers can always write to the result.
func CopyContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
