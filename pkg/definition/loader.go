// Package definition loads machine definitions from YAML or JSON files.
//
// Definitions are declarative: actions and guards appear by name (bound at
// runtime through machine or service scopes) or as literal assign maps.
// Example:
//
//	id: turnstile
//	initial: locked
//	context:
//	  coins: 0
//	states:
//	  locked:
//	    on:
//	      COIN:
//	        target: unlocked
//	        actions:
//	          - assign: {coins: 1}
//	      PUSH: locked
//	  unlocked:
//	    entry: [announce]
//	    on:
//	      PUSH: {target: locked, cond: isCalibrated}
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/statch/statch/pkg/domain"
)

// File is the raw decoded shape of a definition document.
type File struct {
	ID      string               `mapstructure:"id"`
	Initial string               `mapstructure:"initial"`
	Context map[string]any       `mapstructure:"context"`
	States  map[string]StateSpec `mapstructure:"states"`
}

// StateSpec keeps the loose forms the format allows: entry/exit may be a
// single item or a list, on-values may be a shorthand string, a single
// transition map, or a candidate list.
type StateSpec struct {
	Entry any            `mapstructure:"entry"`
	Exit  any            `mapstructure:"exit"`
	On    map[string]any `mapstructure:"on"`

	// States is decoded only to reject nested definitions with a clear error.
	States map[string]any `mapstructure:"states"`
}

type transitionSpec struct {
	Target  string `mapstructure:"target"`
	Cond    string `mapstructure:"cond"`
	Actions any    `mapstructure:"actions"`
}

// Load reads and compiles a definition file. The extension picks the codec:
// .json is JSON, everything else is YAML.
func Load(path string) (domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to read definition: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse compiles a YAML definition document.
func Parse(data []byte) (domain.Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Config{}, fmt.Errorf("failed to parse definition yaml: %w", err)
	}
	return compileRaw(raw)
}

// ParseJSON compiles a JSON definition document.
func ParseJSON(data []byte) (domain.Config, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Config{}, fmt.Errorf("failed to parse definition json: %w", err)
	}
	return compileRaw(raw)
}

func compileRaw(raw map[string]any) (domain.Config, error) {
	var file File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &file,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.Config{}, fmt.Errorf("failed to decode definition: %w", err)
	}
	return Compile(file)
}

// Compile turns a decoded File into a domain.Config. Named actions and
// guards stay unresolved; they bind at runtime through the scope chain.
func Compile(file File) (domain.Config, error) {
	cfg := domain.Config{
		ID:      file.ID,
		Initial: file.Initial,
		Context: file.Context,
		States:  make(map[string]domain.StateConfig, len(file.States)),
	}

	for name, spec := range file.States {
		if len(spec.States) > 0 {
			return domain.Config{}, &domain.ConfigError{State: name, Err: domain.ErrNestedStates}
		}

		entry, err := compileActions(spec.Entry)
		if err != nil {
			return domain.Config{}, &domain.ConfigError{State: name, Err: err}
		}
		exit, err := compileActions(spec.Exit)
		if err != nil {
			return domain.Config{}, &domain.ConfigError{State: name, Err: err}
		}

		st := domain.StateConfig{Entry: entry, Exit: exit}
		if len(spec.On) > 0 {
			st.On = make(map[string][]domain.TransitionSpec, len(spec.On))
			for event, value := range spec.On {
				candidates, err := compileTransitions(value)
				if err != nil {
					return domain.Config{}, &domain.ConfigError{
						State: name,
						Err:   fmt.Errorf("event %q: %w", event, err),
					}
				}
				st.On[event] = candidates
			}
		}
		cfg.States[name] = st
	}

	return cfg, nil
}

// compileTransitions handles the three on-value forms: shorthand target
// string, single transition map, candidate list.
func compileTransitions(value any) ([]domain.TransitionSpec, error) {
	switch v := value.(type) {
	case string:
		return []domain.TransitionSpec{{Target: v}}, nil
	case []any:
		out := make([]domain.TransitionSpec, 0, len(v))
		for _, item := range v {
			specs, err := compileTransitions(item)
			if err != nil {
				return nil, err
			}
			out = append(out, specs...)
		}
		return out, nil
	case map[string]any:
		var spec transitionSpec
		if err := mapstructure.Decode(v, &spec); err != nil {
			return nil, fmt.Errorf("invalid transition: %w", err)
		}
		actions, err := compileActions(spec.Actions)
		if err != nil {
			return nil, err
		}
		t := domain.TransitionSpec{Target: spec.Target, Actions: actions}
		if spec.Cond != "" {
			t.Cond = domain.GuardRef(spec.Cond)
		}
		return []domain.TransitionSpec{t}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid transition value of type %T", value)
	}
}

// compileActions handles single-or-list action values. Strings are named
// references; maps are literal assigns, either tagged ({assign: {...}}) or
// bare shorthand.
func compileActions(value any) ([]domain.ActionSpec, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []domain.ActionSpec{domain.Named(v)}, nil
	case []any:
		var out []domain.ActionSpec
		for _, item := range v {
			specs, err := compileActions(item)
			if err != nil {
				return nil, err
			}
			out = append(out, specs...)
		}
		return out, nil
	case map[string]any:
		return []domain.ActionSpec{compileAssign(v)}, nil
	default:
		return nil, fmt.Errorf("invalid action value of type %T", value)
	}
}

func compileAssign(m map[string]any) domain.ActionSpec {
	patch := m
	if inner, ok := m["assign"].(map[string]any); ok && len(m) == 1 {
		patch = inner
	}

	// Literal patches carry no per-key functions, so ordering is only about
	// determinism; sort the keys.
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]domain.KV, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, domain.KV{Key: k, Value: patch[k]})
	}
	return domain.AssignMap(entries...)
}
