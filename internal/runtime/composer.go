package runtime

import (
	"github.com/statch/statch/pkg/domain"
)

// Compose builds the raw ordered action list for a selected transition.
//
// Targeted transitions run src.Exit, then the transition's own actions, then
// dst.Entry. Targetless transitions run only their own actions; exit and
// entry are never included.
func Compose(src domain.StateConfig, dst *domain.StateConfig, t domain.TransitionSpec) []domain.ActionSpec {
	if t.Target == "" {
		return append([]domain.ActionSpec(nil), t.Actions...)
	}
	out := make([]domain.ActionSpec, 0, len(src.Exit)+len(t.Actions)+8)
	out = append(out, src.Exit...)
	out = append(out, t.Actions...)
	if dst != nil {
		out = append(out, dst.Entry...)
	}
	return out
}
