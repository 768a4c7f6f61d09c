// Package history persists a summary of every run in a SQLite database under
// the state directory, so operators can see which members were unblocked,
// when, and by which run.
package history
