package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/vin"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	KeepGoing bool // submit every file even after a failure
}

// ExecCell is the outcome of one submitted file.
type ExecCell struct {
	File   string    `json:"file"`
	Result ir.Result `json:"result"`
	Stdout string    `json:"stdout,omitempty"`
	Stderr string    `json:"stderr,omitempty"`
}

// ExecResult is the payload of the exec command in JSON mode.
type ExecResult struct {
	Cells  []ExecCell `json:"cells"`
	Failed int        `json:"failed"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <file>...",
		Short: "Submit files as cells to one session",
		Long: `Submit each file as one cell, in order, to a single session.

Libraries and headers registered by earlier files are visible to later
ones. Program input is read line by line from standard input.

Exit codes:
  0 - Every cell succeeded
  1 - A cell failed
  2 - Command error (unreadable file, bad config, etc.)

Examples:
  cppcell exec util.h util.cpp main.cpp
  cppcell exec --format json main.cpp < input.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "continue after a failed cell")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions, files []string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	cells := make([]string, len(files))
	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read cell", err)
		}
		cells[i] = string(data)
	}

	out := opts.formatter(cmd)
	jsonOut := opts.Format == "json"

	// In JSON mode cell output is captured per cell rather than streamed.
	var stdout, stderr bytes.Buffer
	sio := sessionIO{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Input:  vin.NewReaderSource(cmd.InOrStdin()),
	}
	if jsonOut {
		sio.Stdout, sio.Stderr = &stdout, &stderr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess, cleanup, err := openSession(ctx, cfg, sio)
	if err != nil {
		return err
	}
	defer cleanup()

	result := ExecResult{Cells: make([]ExecCell, 0, len(files))}
	var firstErr error
	for i, code := range cells {
		out.VerboseLog("Submitting %s", files[i])
		res := sess.Submit(ctx, code)
		cell := ExecCell{File: files[i], Result: res, Stdout: stdout.String(), Stderr: stderr.String()}
		stdout.Reset()
		stderr.Reset()
		result.Cells = append(result.Cells, cell)

		if res.OK() {
			continue
		}
		result.Failed++
		if firstErr == nil {
			firstErr = NewExitError(ExitFailure, fmt.Sprintf("%s: %s: %s", files[i], res.ErrorKind, res.Message))
		}
		if !opts.KeepGoing || res.ErrorKind == ir.Interrupted {
			break
		}
	}

	if jsonOut {
		out.SessionID = sess.ID()
		if err := outputExecJSON(out, result); err != nil {
			return err
		}
	}
	return firstErr
}

func outputExecJSON(f *OutputFormatter, result ExecResult) error {
	if result.Failed > 0 {
		return f.Report(result, &CLIError{
			Code:    "E_CELL_FAILED",
			Message: fmt.Sprintf("%d cell(s) failed", result.Failed),
		})
	}
	return f.Report(result, nil)
}
