// Package engine drives one submission at a time through the
// compile-link-run state machine.
//
// A Session is the explicit owner of everything that outlives a single
// submission: the library registry, the artifact directory, the execution
// counter and the journal. Nothing in this package is process-global, so
// several sessions can coexist in one process.
//
// STATE MACHINE:
//
//	Preprocessed -> CompiledAsHeader -> Done
//	Preprocessed -> Compiling -> CompiledAsLibrary -> Done
//	Preprocessed -> Compiling -> LinkResolving -> Linking
//	             -> InputBridging -> Running -> Done
//
// Errored is reachable from Compiling, LinkResolving, Linking,
// InputBridging and Running. Every external exit code is checked before
// the machine advances. A program's own non-zero exit is not an error.
//
// SCHEDULING:
//
// Execute is single-flight: concurrent calls on one Session are
// serialized. Each submission still runs background goroutines (two
// stream drainers per subprocess and, while a program runs, one
// virtual-input listener).
package engine
