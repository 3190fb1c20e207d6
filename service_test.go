package statch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statch/statch"
	"github.com/statch/statch/pkg/domain"
)

func counterMachine(t *testing.T) *statch.Machine {
	t.Helper()
	m, err := statch.NewMachine(domain.Config{
		ID:      "counter",
		Initial: "active",
		Context: map[string]any{"n": 0},
		States: map[string]domain.StateConfig{
			"active": {
				Entry: []domain.ActionSpec{incrementBy("n", 1)},
				On: map[string][]domain.TransitionSpec{
					"INC":  {{Actions: []domain.ActionSpec{incrementBy("n", 1)}}},
					"DONE": {{Target: "done"}},
				},
			},
			"done": {},
		},
	})
	require.NoError(t, err)
	return m
}

func TestService_Lifecycle(t *testing.T) {
	// Scenario A: entry assigns are invisible before Start and applied by it.
	m := counterMachine(t)
	svc := m.Interpret()

	assert.Equal(t, domain.StatusNotStarted, svc.Status())
	assert.Equal(t, "active", svc.State().Value)
	assert.Equal(t, 0, svc.State().Context["n"], "entry assign must not run before Start")

	svc.Send("INC")
	assert.Equal(t, 0, svc.State().Context["n"], "Send before Start is a no-op")

	svc.Start()
	assert.Equal(t, domain.StatusRunning, svc.Status())
	assert.Equal(t, 1, svc.State().Context["n"])

	svc.Start()
	assert.Equal(t, 1, svc.State().Context["n"], "Start is idempotent while Running")

	svc.Send("INC")
	assert.Equal(t, 2, svc.State().Context["n"])

	svc.Stop()
	assert.Equal(t, domain.StatusStopped, svc.Status())
	svc.Send("INC")
	assert.Equal(t, 2, svc.State().Context["n"], "Send after Stop is a no-op")
}

func TestService_RestartAfterStop(t *testing.T) {
	m := counterMachine(t)
	svc := m.Interpret().Start()
	svc.Send("DONE")
	require.Equal(t, "done", svc.State().Value)

	svc.Stop()
	svc.Start()
	assert.Equal(t, domain.StatusRunning, svc.Status())
	assert.Equal(t, "active", svc.State().Value, "restart returns to the initial state")
}

func TestService_InvalidEventContained(t *testing.T) {
	m := counterMachine(t)
	svc := m.Interpret().Start()

	svc.Send(42)
	assert.Equal(t, "active", svc.State().Value)
	assert.Equal(t, domain.StatusRunning, svc.Status())

	svc.Send("INC")
	assert.Equal(t, 2, svc.State().Context["n"], "service stays usable after a rejected event")
}

func TestService_Subscribe(t *testing.T) {
	t.Run("initial notification carries the current state", func(t *testing.T) {
		m := counterMachine(t)
		svc := m.Interpret().Start()

		var got []domain.StateResult
		svc.Subscribe(func(st domain.StateResult) { got = append(got, st) })

		require.Len(t, got, 1)
		assert.Equal(t, "active", got[0].Value)
		assert.Equal(t, 1, got[0].Context["n"])
	})

	t.Run("top-level initial notification precedes the handle", func(t *testing.T) {
		m := counterMachine(t)
		svc := m.Interpret().Start()

		var unsubscribe func()
		sawHandle := false
		unsubscribe = svc.Subscribe(func(domain.StateResult) {
			sawHandle = unsubscribe != nil
		})
		require.NotNil(t, unsubscribe)
		assert.False(t, sawHandle, "delivery happens while Subscribe is still returning")
	})

	t.Run("subscribing inside an action defers until the send unwinds", func(t *testing.T) {
		var svc *statch.Service
		var got []string

		m, err := statch.NewMachine(domain.Config{
			Initial: "a",
			States: map[string]domain.StateConfig{
				"a": {On: map[string][]domain.TransitionSpec{
					"GO": {{Target: "b", Actions: []domain.ActionSpec{
						domain.Action(func(map[string]any, domain.Event) map[string]any {
							svc.Subscribe(func(st domain.StateResult) {
								got = append(got, st.Value)
							})
							return nil
						}),
					}}},
				}},
				"b": {},
			},
		})
		require.NoError(t, err)

		svc = m.Interpret().Start()
		svc.Send("GO")

		// One regular notification for the transition, then the deferred
		// initial one; both observe the committed state.
		assert.Equal(t, []string{"b", "b"}, got)
	})

	t.Run("unsubscribe by registration, not by callable", func(t *testing.T) {
		m := counterMachine(t)
		svc := m.Interpret().Start()

		calls := 0
		listener := func(domain.StateResult) { calls++ }

		first := svc.Subscribe(listener)
		second := svc.Subscribe(listener)
		calls = 0 // drop the two initial notifications

		svc.Send("INC")
		assert.Equal(t, 2, calls, "same callable twice means two registrations")

		first()
		svc.Send("INC")
		assert.Equal(t, 3, calls, "only the first registration was removed")

		first() // repeat unsubscribe is a no-op
		svc.Send("INC")
		assert.Equal(t, 4, calls)

		second()
		svc.Send("INC")
		assert.Equal(t, 4, calls)
	})

	t.Run("notification on every processed event", func(t *testing.T) {
		// Scenario D: a no-match result still notifies, with changed false.
		m := counterMachine(t)
		svc := m.Interpret().Start()

		var got []domain.StateResult
		svc.Subscribe(func(st domain.StateResult) { got = append(got, st) })
		got = nil

		svc.Send("UNKNOWN")
		require.Len(t, got, 1)
		assert.Equal(t, "active", got[0].Value)
		assert.False(t, got[0].Changed)
	})

	t.Run("stop clears subscriptions", func(t *testing.T) {
		m := counterMachine(t)
		svc := m.Interpret().Start()

		calls := 0
		svc.Subscribe(func(domain.StateResult) { calls++ })
		calls = 0

		svc.Stop()
		svc.Start()
		svc.Send("INC")
		assert.Zero(t, calls)
	})
}

func TestService_StateSnapshotIsolated(t *testing.T) {
	m := counterMachine(t)
	svc := m.Interpret().Start()

	st := svc.State()
	st.Context["n"] = 99

	assert.Equal(t, 1, svc.State().Context["n"], "State returns an isolated context copy")
}

func TestService_ReentrantSend(t *testing.T) {
	// An action sends a nested event. The nested Send observes the pre-outer
	// state, runs to completion first, and the outer call persists last.
	var svc *statch.Service
	var order []string

	m, err := statch.NewMachine(domain.Config{
		Initial: "a",
		States: map[string]domain.StateConfig{
			"a": {On: map[string][]domain.TransitionSpec{
				"OUTER": {{Target: "b", Actions: []domain.ActionSpec{
					domain.Action(func(map[string]any, domain.Event) map[string]any {
						order = append(order, "outer-action")
						svc.Send("INNER")
						order = append(order, "outer-resumed")
						return nil
					}),
				}}},
				"INNER": {{Target: "c", Actions: []domain.ActionSpec{
					domain.Action(func(map[string]any, domain.Event) map[string]any {
						order = append(order, "inner-action")
						return nil
					}),
				}}},
			}},
			"b": {}, "c": {},
		},
	})
	require.NoError(t, err)

	svc = m.Interpret().Start()

	var notified []string
	svc.Subscribe(func(st domain.StateResult) { notified = append(notified, st.Value) })
	notified = nil

	svc.Send("OUTER")

	assert.Equal(t, []string{"outer-action", "inner-action", "outer-resumed"}, order)
	assert.Equal(t, []string{"c", "b"}, notified, "inner notifies first, outer persists last")
	assert.Equal(t, "b", svc.State().Value, "the outermost result wins")
}

func TestService_ReentrantSend_KeepsOuterPatches(t *testing.T) {
	// Context writes landing after a nested Send must survive into the outer
	// call's persisted result: the service context is one map for the whole
	// call tree, never a fresh copy per call.
	var svc *statch.Service

	m, err := statch.NewMachine(domain.Config{
		Initial: "a",
		States: map[string]domain.StateConfig{
			"a": {On: map[string][]domain.TransitionSpec{
				"OUTER": {{Target: "b", Actions: []domain.ActionSpec{
					domain.Action(func(map[string]any, domain.Event) map[string]any {
						svc.Send("INNER")
						return nil
					}),
					domain.Action(func(map[string]any, domain.Event) map[string]any {
						return map[string]any{"after": 1}
					}),
					domain.AssignMap(domain.KV{Key: "assigned", Value: true}),
				}}},
				"INNER": {{Actions: []domain.ActionSpec{
					domain.AssignMap(domain.KV{Key: "inner", Value: 1}),
				}}},
			}},
			"b": {},
		},
	})
	require.NoError(t, err)

	svc = m.Interpret().Start()
	svc.Send("OUTER")

	st := svc.State()
	assert.Equal(t, "b", st.Value)
	assert.Equal(t, 1, st.Context["inner"], "the nested assign survives")
	assert.Equal(t, 1, st.Context["after"], "a patch returned after the nested send survives")
	assert.Equal(t, true, st.Context["assigned"])
}

func TestService_ActionPanicContained(t *testing.T) {
	m, err := statch.NewMachine(domain.Config{
		Initial: "a",
		Context: map[string]any{"n": 0},
		States: map[string]domain.StateConfig{
			"a": {On: map[string][]domain.TransitionSpec{
				"BOOM": {{Target: "b", Actions: []domain.ActionSpec{
					incrementBy("n", 1),
					domain.Action(func(map[string]any, domain.Event) map[string]any {
						panic("action failure")
					}),
				}}},
				"OK": {{Target: "b"}},
			}},
			"b": {},
		},
	})
	require.NoError(t, err)

	svc := m.Interpret().Start()

	calls := 0
	svc.Subscribe(func(domain.StateResult) { calls++ })
	calls = 0

	svc.Send("BOOM")
	assert.Equal(t, "a", svc.State().Value, "in-flight result is discarded")
	assert.Zero(t, calls, "no notification for a discarded result")
	assert.Equal(t, domain.StatusRunning, svc.Status())

	svc.Send("OK")
	assert.Equal(t, "b", svc.State().Value, "service stays usable after a panic")
	assert.Equal(t, 1, svc.State().Context["n"], "assigns committed before the panic are retained")
}

func TestService_ActionScopePriority(t *testing.T) {
	var resolved []string
	mark := func(scope string) domain.ActionFunc {
		return func(map[string]any, domain.Event) map[string]any {
			resolved = append(resolved, scope)
			return nil
		}
	}

	cfg := domain.Config{
		Initial: "a",
		Actions: map[string]domain.ActionFunc{
			"greet": mark("config"),
			"only":  mark("config"),
		},
		States: map[string]domain.StateConfig{
			"a": {On: map[string][]domain.TransitionSpec{
				"GREET":   {{Actions: []domain.ActionSpec{domain.Named("greet")}}},
				"ONLY":    {{Actions: []domain.ActionSpec{domain.Named("only")}}},
				"MISSING": {{Actions: []domain.ActionSpec{domain.Named("nobody")}}},
			}},
		},
	}

	m, err := statch.NewMachine(cfg, statch.WithActions(map[string]domain.ActionFunc{
		"greet": mark("machine"),
	}))
	require.NoError(t, err)

	svc := m.Interpret(statch.WithLocalActions(map[string]domain.ActionFunc{
		"greet": mark("service"),
	})).Start()

	svc.Send("GREET")
	assert.Equal(t, []string{"service"}, resolved, "service scope shadows machine and config")

	resolved = nil
	svc.Send("ONLY")
	assert.Equal(t, []string{"config"}, resolved)

	resolved = nil
	svc.Send("MISSING")
	assert.Empty(t, resolved, "unresolved names are no-ops")
	assert.Equal(t, "a", svc.State().Value)
}

func TestService_SnapshotRoundTrip(t *testing.T) {
	m := counterMachine(t)
	svc := m.Interpret().Start()
	svc.Send("INC")
	svc.Send("DONE")

	snap := svc.Snapshot()
	assert.Equal(t, "done", snap.Value)
	assert.Equal(t, 2, snap.Context["n"])
	assert.Equal(t, "Running", snap.Status)

	resumed := m.Interpret(statch.WithSnapshot(snap))
	assert.Equal(t, domain.StatusRunning, resumed.Status())
	assert.Equal(t, "done", resumed.State().Value)
	assert.Equal(t, 2, resumed.State().Context["n"])

	// Resuming a running snapshot must not replay entry actions.
	resumed.Start()
	assert.Equal(t, 2, resumed.State().Context["n"])
}

func TestService_NotStartedSnapshotSeedsOnly(t *testing.T) {
	m := counterMachine(t)
	snap := domain.Snapshot{
		Value:   "done",
		Context: map[string]any{"n": 7},
		Status:  "NotStarted",
	}

	svc := m.Interpret(statch.WithSnapshot(snap))
	assert.Equal(t, domain.StatusNotStarted, svc.Status())
	assert.Equal(t, "done", svc.State().Value)
	assert.Equal(t, 7, svc.State().Context["n"])

	// Start begins fresh from the definition; the seed is pre-start only.
	svc.Start()
	assert.Equal(t, "active", svc.State().Value)
	assert.Equal(t, 1, svc.State().Context["n"])

	// Beginning at the snapshot's position is explicit, and still rebuilds
	// the context from the definition.
	resumed := m.Interpret(statch.WithSnapshot(snap)).StartAt(snap.Value)
	assert.Equal(t, "done", resumed.State().Value)
	assert.Equal(t, 0, resumed.State().Context["n"])
}

func TestService_StartAt(t *testing.T) {
	entered := 0
	m, err := statch.NewMachine(domain.Config{
		Initial: "a",
		States: map[string]domain.StateConfig{
			"a": {},
			"b": {
				Entry: []domain.ActionSpec{domain.Action(func(map[string]any, domain.Event) map[string]any {
					entered++
					return nil
				})},
				On: map[string][]domain.TransitionSpec{"GO": {{Target: "a"}}},
			},
		},
	})
	require.NoError(t, err)

	svc := m.Interpret().StartAt("b")
	assert.Equal(t, "b", svc.State().Value)
	assert.Equal(t, 1, entered, "the seeded state's entry actions run on start")

	svc.Send("GO")
	assert.Equal(t, "a", svc.State().Value)
}
