package ir

import "fmt"

// Channel identifies one of a subprocess's two output streams.
type Channel int

const (
	Stdout Channel = iota + 1
	Stderr
)

// String returns "stdout" or "stderr".
func (c Channel) String() string {
	switch c {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// TargetKind says what a submitted snippet becomes once it is processed.
type TargetKind string

const (
	// TargetExecutable is compiled, linked and run. It is the zero value's meaning.
	TargetExecutable TargetKind = "executable"
	// TargetHeader is never compiled; it only populates the registry.
	TargetHeader TargetKind = "header"
	// TargetLibrary is compiled to an object and registered as a library body.
	TargetLibrary TargetKind = "library"
)

// Directive is the structured "this snippet is X named Y" record produced by
// preprocessing. A nil *Directive means an ordinary executable snippet.
type Directive struct {
	TargetName string     `json:"target_name" yaml:"target_name"`
	TargetKind TargetKind `json:"target_kind" yaml:"target_kind"`
}

// Snippet is one preprocessed submission.
type Snippet struct {
	// Code is the translation unit source after include rewriting.
	Code string `json:"code" yaml:"code"`

	// CompilerFlags are appended to the compile command after the defaults.
	CompilerFlags []string `json:"compiler_flags,omitempty" yaml:"compiler_flags,omitempty"`

	// LinkerFlags are appended to the link command.
	LinkerFlags []string `json:"linker_flags,omitempty" yaml:"linker_flags,omitempty"`

	// Args are passed to the executable when it runs.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Target is set when the snippet declares itself a header or library.
	Target *Directive `json:"target,omitempty" yaml:"target,omitempty"`

	// Includes are the library names the snippet's includes reference.
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`
}

// Kind returns the snippet's target kind, defaulting to TargetExecutable.
func (s Snippet) Kind() TargetKind {
	if s.Target == nil || s.Target.TargetKind == "" {
		return TargetExecutable
	}
	return s.Target.TargetKind
}

// Status is the terminal outcome of one submission.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ErrorKind classifies a failed submission.
type ErrorKind string

const (
	CompilationError    ErrorKind = "CompilationError"
	LinkingError        ErrorKind = "LinkingError"
	UnknownLibraryError ErrorKind = "UnknownLibraryError"
	BridgeProtocolError ErrorKind = "BridgeProtocolError"
	// InternalError covers failures outside the taxonomy above, such as an
	// artifact that could not be written or a subprocess that could not start.
	InternalError ErrorKind = "InternalError"
	// Interrupted means the submission was cancelled before it finished.
	Interrupted ErrorKind = "Interrupted"
)

// Result is reported upward for every submission.
//
// On StatusOK the program's exit code, if a program ran, is informational
// and never turns the status into an error.
type Result struct {
	Status         Status    `json:"status" yaml:"status"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Message        string    `json:"message,omitempty" yaml:"message,omitempty"`
	ExitCode       *int      `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	ExecutionCount int64     `json:"execution_count" yaml:"execution_count"`
	SubmissionID   string    `json:"submission_id,omitempty" yaml:"submission_id,omitempty"`
}

// OK reports whether the result has StatusOK.
func (r Result) OK() bool {
	return r.Status == StatusOK
}
