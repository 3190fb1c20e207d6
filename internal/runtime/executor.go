package runtime

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/statch/statch/pkg/domain"
)

// ActionError reports a panic recovered from a user action. Context
// mutations committed before the failure are retained; the caller discards
// the in-flight result and carries on.
type ActionError struct {
	Name      string
	Recovered any
}

func (e *ActionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("action %q panicked: %v", e.Name, e.Recovered)
	}
	return fmt.Sprintf("action panicked: %v", e.Recovered)
}

// ApplyAssigns is pass 1 of the execution pipeline: every assign descriptor
// in the raw list is folded into ctx, in list order, before any non-assign
// action runs. It reports whether at least one assign executed.
//
// A function-valued assignment produces a whole patch; a key map folds
// sequentially so later ValueFuncs observe earlier writes. A panic stops the
// pass at the failing item; earlier merges stay.
func ApplyAssigns(ctx map[string]any, actions []domain.ActionSpec, event domain.Event) (bool, error) {
	assigned := false
	for _, a := range actions {
		if !a.IsAssign() {
			continue
		}
		if err := applyAssign(ctx, a.Assign, event); err != nil {
			return assigned, err
		}
		assigned = true
	}
	return assigned, nil
}

func applyAssign(ctx map[string]any, spec *domain.AssignSpec, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Name: "assign", Recovered: r}
		}
	}()

	if spec.Fn != nil {
		patch := spec.Fn(ctx, event)
		mergePatch(ctx, patch)
		return nil
	}
	if spec.Keys != nil {
		for pair := spec.Keys.Oldest(); pair != nil; pair = pair.Next() {
			if fn, ok := pair.Value.(domain.ValueFunc); ok {
				ctx[pair.Key] = fn(ctx, event)
				continue
			}
			// Bare funcs are accepted as ValueFuncs for convenience.
			if fn, ok := pair.Value.(func(map[string]any, domain.Event) any); ok {
				ctx[pair.Key] = fn(ctx, event)
				continue
			}
			ctx[pair.Key] = pair.Value
		}
	}
	return nil
}

func mergePatch(ctx, patch map[string]any) {
	for k, v := range patch {
		ctx[k] = v
	}
}

// Executor runs pass 2: the non-assign remainder of an action list against
// the interpreter's owned context.
type Executor struct {
	scopes Scopes
	logger *slog.Logger
}

// NewExecutor builds an executor over an ordered scope chain.
func NewExecutor(scopes Scopes, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{scopes: scopes, logger: logger}
}

// Scopes returns the executor's resolution chain.
func (e *Executor) Scopes() Scopes { return e.scopes }

// Run invokes each non-assign action in order with (ctx, event). Named
// actions resolve through the scope chain; unresolved names are no-ops. A
// returned patch is merged into ctx immediately. Assign items are tolerated
// and applied in place, though callers normally strip them in pass 1.
//
// The first panic stops the run and is returned as an *ActionError; actions
// already executed keep their effects.
func (e *Executor) Run(ctx map[string]any, actions []domain.ActionSpec, event domain.Event) error {
	for _, a := range actions {
		if a.IsAssign() {
			if err := applyAssign(ctx, a.Assign, event); err != nil {
				return err
			}
			continue
		}
		fn := a.Exec
		name := a.Name
		if fn == nil && name != "" {
			fn = e.scopes.Action(name)
			if fn == nil {
				e.logger.Debug("unresolved action reference", "action", name)
				continue
			}
		}
		if fn == nil {
			continue
		}
		if err := e.invoke(ctx, fn, name, event); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) invoke(ctx map[string]any, fn domain.ActionFunc, name string, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Name: name, Recovered: r}
		}
	}()
	if patch := fn(ctx, event); patch != nil {
		mergePatch(ctx, patch)
	}
	return nil
}
