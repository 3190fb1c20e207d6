// Package ports declares the driven-port interfaces of the engine, keeping
// storage backends decoupled from the interpreter. Adapters live under
// pkg/adapters.
package ports
