package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/registry"
	"github.com/roach88/cppcell/internal/vin"
)

// StageError reports a compile or link step whose external tool failed.
//
// StageError carries the stage so callers can render stage-specific
// diagnostics, and the tool's exit code (-1 if it never started).
type StageError struct {
	// Kind is ir.CompilationError or ir.LinkingError.
	Kind ir.ErrorKind

	// Stage is the state the machine was in when the tool failed.
	Stage State

	// Tool is the program that was invoked.
	Tool string

	// ExitCode is the tool's exit status.
	ExitCode int

	// Err is set when the tool could not be started or waited for.
	Err error
}

// Error implements the error interface. The message matches what users of
// the interactive kernel have always seen, e.g. "g++ failed with code 1".
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed with code %d", e.Tool, e.ExitCode)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(kind ir.ErrorKind, stage State, tool string, code int, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Tool: tool, ExitCode: code, Err: err}
}

// IsCompilationError returns true if the error is a failed compile step.
// Uses errors.As to handle wrapped errors.
func IsCompilationError(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == ir.CompilationError
	}
	return false
}

// IsLinkingError returns true if the error is a failed link step.
func IsLinkingError(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == ir.LinkingError
	}
	return false
}

// ErrorKindOf maps err onto the result taxonomy. The boolean is false for
// a nil error.
func ErrorKindOf(err error) (ir.ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	if registry.IsUnknownLibrary(err) {
		return ir.UnknownLibraryError, true
	}
	if vin.IsBridgeError(err) {
		return ir.BridgeProtocolError, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ir.Interrupted, true
	}
	return ir.InternalError, true
}
