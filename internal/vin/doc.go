// Package vin bridges a running program's standard input to the
// interactive session through an external virtual-input service.
//
// The service exposes four operations: create a session (which yields a
// file path the program reads as stdin), subscribe to "the program is
// blocked on input" notifications, supply input, and destroy the session.
// Bridge.Acquire creates a session and starts one listener goroutine that
// answers each notification with exactly one line from an InputSource,
// in notification order. Lease.Release tears the session down.
//
// GRPCService speaks the FuseVin gRPC protocol.
package vin
