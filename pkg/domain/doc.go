// Package domain contains the core types of the statch state machine:
// machine configuration, action and guard specs, events, state results and
// the errors shared across the engine and its adapters.
//
// The types here are pure data. Behavior (selection, composition, execution)
// lives in the engine; storage and transport live in adapters.
package domain
