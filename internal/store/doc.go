// Package store provides the SQLite-backed submission journal.
//
// Every submission a session processes is recorded with its outcome, and
// every library registration is recorded alongside the submission that
// caused it. The journal is an audit trail for the REPL's :history
// command and for tests; it is never read back to rebuild a registry, so
// a restarted process always begins with an empty session.
//
// # Ordering
//
// Submissions are ordered by seq, the session's execution counter.
// Library events are ordered by their insertion id. All list queries
// include an explicit ORDER BY.
//
// # Database Configuration
//
//   - WAL mode (ignored for :memory: databases)
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - one open connection, so a :memory: journal stays a single database
package store
