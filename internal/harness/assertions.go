package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/cppcell/internal/engine"
	"github.com/roach88/cppcell/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []CellTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nCells:\n")
		for _, c := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", c.Cell, c.Status, c.ErrorKind)
		}
	}

	return buf.String()
}

// AssertionContext provides the session state assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Session *engine.Session

	// VIN is nil when the scenario has no virtual-input service.
	VIN *testutil.FakeVin
}

// EvaluateAssertions runs all assertions and returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertLibrary:
			err = assertLibrary(actx, a)
		case AssertRegistrySize:
			err = assertRegistrySize(actx, a)
		case AssertLinkSet:
			err = assertLinkSet(actx, a)
		case AssertInputSupplied:
			err = assertInputSupplied(actx, a)
		case AssertCycles:
			err = assertCycles(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			if ae, ok := err.(*AssertionError); ok {
				ae.Trace = result.Trace
			}
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertLibrary(actx *AssertionContext, a Assertion) error {
	rec, ok := actx.Session.Registry().Lookup(a.Name)
	if !ok {
		return &AssertionError{
			Type:     AssertLibrary,
			Expected: fmt.Sprintf("library %q registered", a.Name),
			Actual:   fmt.Sprintf("registered: %v", actx.Session.Registry().Names()),
		}
	}
	if a.Header != nil && rec.HasHeader() != *a.Header {
		return &AssertionError{
			Type:     AssertLibrary,
			Expected: fmt.Sprintf("library %q header=%t", a.Name, *a.Header),
			Actual:   fmt.Sprintf("header path %q", rec.HeaderPath),
		}
	}
	if a.Binary != nil && rec.HasBinary() != *a.Binary {
		return &AssertionError{
			Type:     AssertLibrary,
			Expected: fmt.Sprintf("library %q binary=%t", a.Name, *a.Binary),
			Actual:   fmt.Sprintf("binary path %q", rec.BinaryPath),
		}
	}
	if a.Deps != nil && !namesEqual(rec.Deps(), a.Deps) {
		return &AssertionError{
			Type:     AssertLibrary,
			Expected: fmt.Sprintf("library %q deps %v", a.Name, a.Deps),
			Actual:   fmt.Sprintf("deps %v", rec.Deps()),
		}
	}
	return nil
}

func assertRegistrySize(actx *AssertionContext, a Assertion) error {
	if n := actx.Session.Registry().Len(); n != a.Count {
		return &AssertionError{
			Type:     AssertRegistrySize,
			Expected: fmt.Sprintf("%d libraries", a.Count),
			Actual:   fmt.Sprintf("%d libraries %v", n, actx.Session.Registry().Names()),
		}
	}
	return nil
}

func assertLinkSet(actx *AssertionContext, a Assertion) error {
	history, err := actx.Session.History(actx.Ctx)
	if err != nil {
		return fmt.Errorf("link_set: reading journal: %w", err)
	}
	for _, sub := range history {
		if sub.Seq != int64(a.Cell) {
			continue
		}
		if !namesEqual(sub.LinkSet, a.Names) {
			return &AssertionError{
				Type:     AssertLinkSet,
				Expected: fmt.Sprintf("cell %d linked %v", a.Cell, a.Names),
				Actual:   fmt.Sprintf("linked %v", sub.LinkSet),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertLinkSet,
		Expected: fmt.Sprintf("cell %d journaled", a.Cell),
		Actual:   fmt.Sprintf("%d journaled submissions", len(history)),
	}
}

func assertInputSupplied(actx *AssertionContext, a Assertion) error {
	if actx.VIN == nil {
		return fmt.Errorf("input_supplied: scenario has no vin section")
	}
	got := actx.VIN.Supplied()
	if !namesEqual(got, a.Lines) {
		return &AssertionError{
			Type:     AssertInputSupplied,
			Expected: fmt.Sprintf("%q", a.Lines),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

func assertCycles(actx *AssertionContext, a Assertion) error {
	cycles := actx.Session.Registry().Cycles()
	if len(cycles) != a.Count {
		msgs := make([]string, len(cycles))
		for i, c := range cycles {
			msgs[i] = c.Message
		}
		return &AssertionError{
			Type:     AssertCycles,
			Expected: fmt.Sprintf("%d cycles", a.Count),
			Actual:   fmt.Sprintf("%d cycles %v", len(cycles), msgs),
		}
	}
	return nil
}

// namesEqual treats nil and empty as equal.
func namesEqual(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
