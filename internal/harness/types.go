package harness

import "github.com/roach88/cppcell/internal/ir"

// CellTrace is the observable outcome of one cell.
type CellTrace struct {
	Cell      int          `yaml:"cell" json:"cell"`
	Seq       int64        `yaml:"seq" json:"seq"`
	Status    ir.Status    `yaml:"status" json:"status"`
	ErrorKind ir.ErrorKind `yaml:"error_kind,omitempty" json:"error_kind,omitempty"`
	Message   string       `yaml:"message,omitempty" json:"message,omitempty"`
	ExitCode  *int         `yaml:"exit_code,omitempty" json:"exit_code,omitempty"`
	Stdout    string       `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr    string       `yaml:"stderr,omitempty" json:"stderr,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one entry per cell, in submission order.
	Trace []CellTrace `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []CellTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCell appends a cell's outcome to the trace.
func (r *Result) AddCell(c CellTrace) {
	r.Trace = append(r.Trace, c)
}
