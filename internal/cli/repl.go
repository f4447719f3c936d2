package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/cppcell/internal/engine"
	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/vin"
)

const (
	historyFile = ".cppcell_history"

	promptMain  = "cpp> "
	promptCont  = "...> "
	promptInput = "stdin> "

	// cellTerminator on a line of its own ends a cell.
	cellTerminator = ";;"
)

const replHelp = `Type C++ and end the cell with a line containing only ;;

Directives (at the start of a line):
  //%file:name.h      register the cell as header "name"
  //%file:name.cpp    compile the cell as library "name"
  //%cppflags:...     extra compiler flags
  //%ldflags:...      extra linker flags
  //%args:...         program arguments

Commands:
  :libs [glob]   list registered libraries
  :history [lib] list this session's submissions, or the revisions of lib
  :help          show this help
  :quit          leave the session
`

// Prompter reads one line of interactive input. *liner.State implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session.

Each cell is compiled and, unless it registers a header or library, linked
and run. When a running program reads its standard input you are prompted
with "stdin> ".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, rootOpts)
		},
	}
}

func runRepl(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, cleanup, err := openSession(ctx, cfg, sessionIO{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Input:  promptSource(ln),
	})
	if err != nil {
		return err
	}
	defer cleanup()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		cancel()
		ln.Close()
		cleanup()
		os.Exit(130)
	}()

	r := newRepl(sess, ln, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Format)
	r.output.Verbose = opts.Verbose
	r.history = ln.AppendHistory
	return r.Run(ctx)
}

// promptSource answers program input requests by prompting. Ctrl-C at the
// prompt ends the program's input.
func promptSource(p Prompter) vin.InputSource {
	return vin.InputFunc(func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := p.Prompt(promptInput)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		return line, err
	})
}

// repl reads cells and meta commands and submits cells to one session.
type repl struct {
	session *engine.Session
	in      Prompter
	out     io.Writer
	output  *OutputFormatter
	history func(string)
}

func newRepl(sess *engine.Session, in Prompter, out, errOut io.Writer, format string) *repl {
	output := &OutputFormatter{
		Format:    format,
		Writer:    out,
		ErrWriter: errOut,
		SessionID: sess.ID(),
	}
	return &repl{
		session: sess,
		in:      in,
		out:     out,
		output:  output,
		history: func(string) {},
	}
}

// Run loops until :quit or end of input. A cell still open at end of
// input is submitted.
func (r *repl) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		code, cmd, ok := r.readCell()
		switch {
		case cmd != "":
			if quit := r.meta(ctx, cmd); quit {
				return nil
			}
		case strings.TrimSpace(code) != "":
			r.submit(ctx, code)
		}
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
	}
}

// readCell collects lines up to the terminator. A line starting with ':'
// outside a cell is returned as a meta command. ok is false at end of
// input.
func (r *repl) readCell() (code, cmd string, ok bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := r.in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the cell being typed.
			b.Reset()
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				_ = r.output.Error("E_INPUT", err.Error(), nil)
			}
			return b.String(), "", false
		}

		trimmed := strings.TrimSpace(line)
		if b.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			r.history(trimmed)
			return "", trimmed, true
		}
		if trimmed == cellTerminator {
			return b.String(), "", true
		}
		if trimmed != "" {
			r.history(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func (r *repl) submit(ctx context.Context, code string) {
	subCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	res := r.session.Submit(subCtx, code)
	stop()

	r.output.VerboseLog("submission %d: %s", res.ExecutionCount, res.Status)

	var cliErr *CLIError
	if !res.OK() {
		cliErr = &CLIError{Code: string(res.ErrorKind), Message: res.Message}
	}
	if r.output.Format == "json" {
		_ = r.output.Report(res, cliErr)
		return
	}
	if cliErr != nil {
		_ = r.output.Error(cliErr.Code, cliErr.Message, nil)
	}
}

// meta runs a colon command and reports whether the session should end.
func (r *repl) meta(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		_, _ = io.WriteString(r.out, replHelp)
	case ":libs":
		pattern := ""
		if len(fields) > 1 {
			pattern = fields[1]
		}
		r.listLibraries(pattern)
	case ":history":
		if len(fields) > 1 {
			r.listLibraryHistory(ctx, fields[1])
			return false
		}
		r.listHistory(ctx)
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for a list.\n", fields[0])
	}
	return false
}

func (r *repl) listLibraries(pattern string) {
	records, err := r.session.Registry().Match(pattern)
	if err != nil {
		_ = r.output.Error("E_PATTERN", err.Error(), nil)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(r.out, "No libraries registered.")
		return
	}
	for _, rec := range records {
		var kinds []string
		if rec.HasHeader() {
			kinds = append(kinds, "header")
		}
		if rec.HasBinary() {
			kinds = append(kinds, "binary")
		}
		fmt.Fprintf(r.out, "%s [%s] rev %d", rec.Name, strings.Join(kinds, "+"), rec.Revision)
		if deps := rec.Deps(); len(deps) > 0 {
			fmt.Fprintf(r.out, " deps: %s", strings.Join(deps, ", "))
		}
		fmt.Fprintln(r.out)
	}
}

func (r *repl) listHistory(ctx context.Context) {
	subs, err := r.session.History(ctx)
	if err != nil {
		_ = r.output.Error("E_JOURNAL", err.Error(), nil)
		return
	}
	if len(subs) == 0 {
		fmt.Fprintln(r.out, "No submissions yet.")
		return
	}
	for _, sub := range subs {
		target := sub.TargetKind
		if sub.TargetName != "" {
			target += " " + sub.TargetName
		}
		fmt.Fprintf(r.out, "[%d] %s %s", sub.Seq, target, sub.Status)
		if sub.Status != string(ir.StatusOK) {
			fmt.Fprintf(r.out, " (%s)", sub.ErrorKind)
		}
		if sub.Message != "" {
			fmt.Fprintf(r.out, ": %s", sub.Message)
		}
		fmt.Fprintln(r.out)
	}
}

// listLibraryHistory prints every registration of name, oldest first.
func (r *repl) listLibraryHistory(ctx context.Context, name string) {
	events, err := r.session.LibraryHistory(ctx, name)
	if err != nil {
		_ = r.output.Error("E_JOURNAL", err.Error(), nil)
		return
	}
	if len(events) == 0 {
		fmt.Fprintf(r.out, "No registrations of %s.\n", name)
		return
	}
	for _, ev := range events {
		fmt.Fprintf(r.out, "%s rev %d %s %s", ev.Name, ev.Revision, ev.Kind, filepath.Base(ev.Path))
		if len(ev.Deps) > 0 {
			fmt.Fprintf(r.out, " deps: %s", strings.Join(ev.Deps, ", "))
		}
		fmt.Fprintln(r.out)
	}
}
