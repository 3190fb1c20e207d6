package statch_test

import (
	"fmt"

	"github.com/statch/statch"
	"github.com/statch/statch/pkg/domain"
)

// A toggle with a bounded counter: each flip to "on" increments the count,
// and a guard refuses further flips once the limit is reached.
func Example() {
	machine, err := statch.NewMachine(domain.Config{
		ID:      "toggle",
		Initial: "off",
		Context: map[string]any{"count": 0},
		States: map[string]domain.StateConfig{
			"off": {On: map[string][]domain.TransitionSpec{
				"FLIP": {{
					Target: "on",
					Cond: domain.Guard(func(ctx map[string]any, _ domain.Event) bool {
						return ctx["count"].(int) < 2
					}),
					Actions: []domain.ActionSpec{
						domain.AssignMap(domain.KV{Key: "count", Value: domain.ValueFunc(
							func(ctx map[string]any, _ domain.Event) any {
								return ctx["count"].(int) + 1
							})}),
					},
				}},
			}},
			"on": {On: map[string][]domain.TransitionSpec{
				"FLIP": {{Target: "off"}},
			}},
		},
	})
	if err != nil {
		panic(err)
	}

	service := machine.Interpret().Start()
	service.Subscribe(func(st domain.StateResult) {
		fmt.Printf("%s count=%v\n", st.Value, st.Context["count"])
	})

	for i := 0; i < 5; i++ {
		service.Send("FLIP")
	}

	// Output:
	// off count=0
	// on count=1
	// off count=1
	// on count=2
	// off count=2
	// off count=2
}
