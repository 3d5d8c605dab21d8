// Package runner executes one external conversion per work token inside the
// shared scratch directory, with a bounded wall-clock timeout, bounded output
// capture, prefix-based output discovery, and cleanup guaranteed on every
// exit path.
package runner
