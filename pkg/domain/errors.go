package domain

import (
	"errors"
	"fmt"
)

// Construction-time errors. A machine with an invalid config is never produced.
var (
	// ErrMissingInitial is returned when the config has no initial state.
	ErrMissingInitial = errors.New("machine config has no initial state")

	// ErrUnknownInitialState is returned when `initial` names a state that
	// does not exist in the states map.
	ErrUnknownInitialState = errors.New("initial state is not defined in states")

	// ErrNestedStates is returned when a state carries its own states map.
	// statch machines are flat; hierarchical charts are out of scope.
	ErrNestedStates = errors.New("nested states are not supported")
)

// Transition-time errors.
var (
	// ErrUnknownTarget is returned (in strict mode) when a selected
	// transition targets a state that does not exist.
	ErrUnknownTarget = errors.New("transition target is not defined in states")

	// ErrInvalidEvent is returned when an event is neither a string, an
	// Event, nor a map with a type field.
	ErrInvalidEvent = errors.New("event must be a string or an object with a type")
)

// ErrSessionNotFound is returned when a session ID cannot be found in a store.
var ErrSessionNotFound = errors.New("session not found")

// ConfigError annotates a construction failure with the offending state.
type ConfigError struct {
	State string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("invalid machine config: %v", e.Err)
	}
	return fmt.Sprintf("invalid machine config (state %q): %v", e.State, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
