// Package history persists finished tasks to a SQLite archive. The in-memory
// registry forgets terminal tasks after the retention window; the archive is
// what the CLI and API consult afterwards.
package history
