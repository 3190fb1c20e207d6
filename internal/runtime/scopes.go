package runtime

import (
	"github.com/statch/statch/pkg/domain"
)

// Scope is one named-binding layer for actions and guards.
type Scope struct {
	Actions map[string]domain.ActionFunc
	Guards  map[string]domain.GuardFunc
}

// IsEmpty reports whether the scope binds nothing.
func (s Scope) IsEmpty() bool { return len(s.Actions) == 0 && len(s.Guards) == 0 }

// Scopes is an ordered resolution chain, highest priority first
// (service, then machine, then config).
type Scopes []Scope

// Action resolves a named action, or nil if no scope binds it.
func (s Scopes) Action(name string) domain.ActionFunc {
	for _, sc := range s {
		if fn, ok := sc.Actions[name]; ok && fn != nil {
			return fn
		}
	}
	return nil
}

// Guard resolves a named guard, or nil if no scope binds it.
func (s Scopes) Guard(name string) domain.GuardFunc {
	for _, sc := range s {
		if fn, ok := sc.Guards[name]; ok && fn != nil {
			return fn
		}
	}
	return nil
}

// Prepend returns a chain with sc at the highest priority. Empty scopes are
// skipped so a bare machine chain stays as-is.
func (s Scopes) Prepend(sc Scope) Scopes {
	if sc.IsEmpty() {
		return s
	}
	out := make(Scopes, 0, len(s)+1)
	out = append(out, sc)
	out = append(out, s...)
	return out
}
