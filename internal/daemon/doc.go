// Package daemon hosts the long-running fetchmill process: a single-instance
// lock, the background sweeper, and the local HTTP API the CLI talks to.
package daemon
