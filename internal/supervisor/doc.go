// Package supervisor runs external processes while continuously draining
// their standard output and standard error.
//
// Each Run owns one process and two drainers. A drainer is a goroutine
// that reads its stream in chunks until end-of-stream and pushes every
// chunk onto a queue. Join blocks until the process exits, flushing both
// queues to a Sink on every poll tick so a process that writes more than
// the OS pipe buffer never stalls waiting for a reader.
//
// # Interleaving contract
//
// Every byte a process writes is delivered to the sink exactly once.
// Bytes from one stream arrive in the order the process wrote them.
// Nothing is promised about the order between the two streams: each flush
// delivers whatever standard error has queued, then whatever standard
// output has queued, so cross-stream order is only as good as the poll
// interval. Callers and tests must treat it as approximate.
//
// A non-zero exit status is returned as a value, never as an error.
package supervisor
