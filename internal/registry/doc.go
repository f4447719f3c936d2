// Package registry holds a session's library records and resolves the
// transitive set of libraries an executable must be linked against.
//
// A record is created the first time a name is registered as either a
// header or a library body and is merged into on every later registration.
// Records are never deleted; the registry is discarded with its session.
//
// The registry performs no locking. Submissions are processed one at a
// time, so every mutation happens on the submitting goroutine.
package registry
