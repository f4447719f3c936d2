package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roach88/cppcell/internal/engine"
	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/store"
	"github.com/roach88/cppcell/internal/supervisor"
	"github.com/roach88/cppcell/internal/testutil"
	"github.com/roach88/cppcell/internal/toolchain"
	"github.com/roach88/cppcell/internal/vin"
)

// ArtifactsPlaceholder replaces the session's artifact directory in traces.
const ArtifactsPlaceholder = "$ARTIFACTS"

// Harness holds one scenario's session and its fakes.
type Harness struct {
	session *engine.Session
	sink    *supervisor.BufferSink
	vin     *testutil.FakeVin
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	system  toolchain.Config
	timeout time.Duration
}

// WithSystemToolchain sets the compiler used by scenarios that ask for the
// system toolchain.
func WithSystemToolchain(tc toolchain.Config) Option {
	return func(c *runConfig) {
		c.system = tc
	}
}

// WithCellTimeout bounds each cell. Zero means no bound.
func WithCellTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh session with an in-memory journal, a
// scratch directory for the fake toolchain and FIFOs, and sequential ids.
//
// Execution flow:
// 1. Create the journal, scratch directory and session
// 2. Submit every cell, checking its expect clause
// 3. Evaluate assertions against the final state
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{system: toolchain.DefaultConfig(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	scratch, err := os.MkdirTemp("", "cppcell-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tc := cfg.system
	if scenario.Toolchain != ToolchainSystem {
		cc, err := testutil.WriteFakeCompiler(scratch)
		if err != nil {
			return nil, err
		}
		tc = toolchain.DefaultConfig()
		tc.Compiler = cc
	}

	h := &Harness{sink: &supervisor.BufferSink{}}
	sessionOpts := []engine.Option{
		engine.WithToolchain(tc),
		engine.WithSink(h.sink),
		engine.WithJournal(st),
		engine.WithPrintInfos(scenario.PrintInfos),
		engine.WithArtifactRoot(scratch),
		engine.WithIDGenerator(testutil.NewSequenceGenerator(scenario.Name)),
		engine.WithSupervisor(supervisor.New(supervisor.WithPollInterval(time.Millisecond))),
	}
	if scenario.VIN != nil {
		h.vin = testutil.NewFakeVin(scratch, scenario.VIN.Notifications)
		bridge := vin.NewBridge(h.vin, testutil.NewScriptedInput(scenario.Input...))
		sessionOpts = append(sessionOpts, engine.WithBridge(bridge))
	}

	h.session, err = engine.NewSession(ctx, sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer h.session.Close()

	result := NewResult()
	for i, cell := range scenario.Cells {
		trace := h.submit(ctx, cfg.timeout, cell)
		trace.Cell = i + 1
		result.AddCell(trace)

		for _, msg := range checkExpect(i, cell.Expect, trace) {
			result.AddError(msg)
		}
		slog.Debug("scenario cell completed", "scenario", scenario.Name, "cell", i+1, "status", trace.Status)
	}

	actx := &AssertionContext{Ctx: ctx, Session: h.session, VIN: h.vin}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) submit(ctx context.Context, timeout time.Duration, cell Cell) CellTrace {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	h.sink.Reset()
	res := h.session.Submit(ctx, cell.Code)

	return CellTrace{
		Seq:       res.ExecutionCount,
		Status:    res.Status,
		ErrorKind: res.ErrorKind,
		Message:   h.scrub(res.Message),
		ExitCode:  res.ExitCode,
		Stdout:    h.scrub(h.sink.Stdout()),
		Stderr:    h.scrub(h.sink.Stderr()),
	}
}

// scrub replaces the session's artifact directory so traces are stable.
func (h *Harness) scrub(s string) string {
	return strings.ReplaceAll(s, h.session.Dir(), ArtifactsPlaceholder)
}

// checkExpect compares one cell's trace with its expect clause. A cell
// without one must succeed.
func checkExpect(index int, want *Expect, got CellTrace) []string {
	if want == nil {
		want = &Expect{Status: ir.StatusOK}
	}

	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("cell %d: ", index+1)+fmt.Sprintf(format, args...))
	}

	if got.Status != want.Status {
		fail("status: expected %s, got %s (%s: %s)", want.Status, got.Status, got.ErrorKind, got.Message)
	}
	if want.ErrorKind != "" && got.ErrorKind != want.ErrorKind {
		fail("error_kind: expected %s, got %q", want.ErrorKind, got.ErrorKind)
	}
	if want.ExitCode != nil {
		switch {
		case got.ExitCode == nil:
			fail("exit_code: expected %d, no process ran", *want.ExitCode)
		case *got.ExitCode != *want.ExitCode:
			fail("exit_code: expected %d, got %d", *want.ExitCode, *got.ExitCode)
		}
	}
	if want.Stdout != nil && got.Stdout != *want.Stdout {
		fail("stdout: expected %q, got %q", *want.Stdout, got.Stdout)
	}
	for _, s := range want.StdoutContains {
		if !strings.Contains(got.Stdout, s) {
			fail("stdout: expected to contain %q, got %q", s, got.Stdout)
		}
	}
	for _, s := range want.StderrContains {
		if !strings.Contains(got.Stderr, s) {
			fail("stderr: expected to contain %q, got %q", s, got.Stderr)
		}
	}
	return errs
}
