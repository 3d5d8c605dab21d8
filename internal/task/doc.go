// Package task defines the conversion task model, its lifecycle state
// machine, and the in-memory registry that owns the authoritative task state.
// Callers receive snapshot copies only; all mutation flows through the
// registry so the state machine cannot be bypassed.
package task
