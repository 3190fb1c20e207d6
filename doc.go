/*
Package statch is a deterministic, flat (non-hierarchical) statechart engine.

It separates the pure transition computation (Machine) from the stateful
interpreter (Service). A Machine never mutates anything: InitialState and
Transition return immutable StateResult snapshots. A Service owns a mutable
context, drives the Machine, executes actions and notifies subscribers.

# Concept

States declare entry/exit actions and guarded, ordered transition candidates
per event. Actions come in two kinds: assign actions, which patch the
context, and plain actions, which perform side effects. Within one
transition every assign is applied before any plain action runs, so side
effects always observe the fully updated context.

# Usage

	machine, err := statch.NewMachine(domain.Config{
		Initial: "idle",
		Context: map[string]any{"count": 0},
		States: map[string]domain.StateConfig{
			"idle": {
				On: map[string][]domain.TransitionSpec{
					"START": {{Target: "running"}},
				},
			},
			"running": {
				Entry: []domain.ActionSpec{
					domain.AssignMap(domain.KV{Key: "count", Value: domain.ValueFunc(
						func(ctx map[string]any, _ domain.Event) any {
							return ctx["count"].(int) + 1
						})}),
				},
				On: map[string][]domain.TransitionSpec{
					"STOP": {{Target: "idle"}},
				},
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	service := machine.Interpret()
	service.Start()
	service.Send("START")
	fmt.Println(service.State().Value) // running

A Service is single-threaded by design: every call runs synchronously to
completion on the caller's stack. Reentrant Send from inside an action is
supported and serializes depth-first.
*/
package statch

// Version is the library version, set at release time.
const Version = "0.3.0"
