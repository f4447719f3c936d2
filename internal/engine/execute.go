package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/store"
	"github.com/roach88/cppcell/internal/toolchain"
	"github.com/roach88/cppcell/internal/vin"
)

// submission is one pass through the state machine.
type submission struct {
	session *Session
	id      string
	seq     int64
	snippet ir.Snippet
	state   State

	linkSet  []string
	exitCode *int
	message  string
	library  *store.LibraryEvent
}

// to moves the machine to next. An illegal transition is a bug in the
// engine, not a user error.
func (sub *submission) to(next State) error {
	if !CanTransition(sub.state, next) {
		return fmt.Errorf("illegal transition %s -> %s", sub.state, next)
	}
	slog.Debug("state transition", "submission", sub.id, "seq", sub.seq, "from", sub.state, "to", next)
	sub.state = next
	return nil
}

func (sub *submission) fail(err error) {
	if sub.state.Terminal() {
		return
	}
	slog.Warn("submission failed", "submission", sub.id, "seq", sub.seq, "state", sub.state, "error", err)
	sub.state = StateErrored
}

func (sub *submission) result(err error) ir.Result {
	res := ir.Result{
		Status:         ir.StatusOK,
		Message:        sub.message,
		ExitCode:       sub.exitCode,
		ExecutionCount: sub.seq,
		SubmissionID:   sub.id,
	}
	if kind, failed := ErrorKindOf(err); failed {
		res.Status = ir.StatusError
		res.ErrorKind = kind
		res.Message = err.Error()
	}
	return res
}

// artifact returns the path of this submission's artifact with ext.
// Paths are unique per submission, so a redefinition never touches a file
// an earlier executable was built from.
func (sub *submission) artifact(ext string) string {
	return filepath.Join(sub.session.dir, fmt.Sprintf("cell%d%s", sub.seq, ext))
}

func (sub *submission) targetName() string {
	if sub.snippet.Target == nil {
		return ""
	}
	return sub.snippet.Target.TargetName
}

func (sub *submission) run(ctx context.Context) error {
	if sub.snippet.Kind() == ir.TargetHeader {
		return sub.saveHeader()
	}

	if err := sub.to(StateCompiling); err != nil {
		return err
	}
	object, err := sub.compile(ctx)
	if err != nil {
		return err
	}

	if sub.snippet.Kind() == ir.TargetLibrary {
		return sub.saveBinary(object)
	}

	if err := sub.to(StateLinkResolving); err != nil {
		return err
	}
	linkSet, err := sub.session.registry.ResolveLinkSet(sub.snippet.Includes)
	if err != nil {
		return err
	}
	sub.linkSet = linkSet

	if err := sub.to(StateLinking); err != nil {
		return err
	}
	executable, err := sub.link(ctx, object)
	if err != nil {
		return err
	}

	if err := sub.to(StateInputBridging); err != nil {
		return err
	}
	return sub.execute(ctx, executable)
}

// saveHeader writes the snippet as a header. Headers are never compiled.
func (sub *submission) saveHeader() error {
	if err := sub.to(StateCompiledAsHeader); err != nil {
		return err
	}
	path := sub.artifact(".h")
	if err := os.WriteFile(path, []byte(sub.snippet.Code), 0o644); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec, err := sub.session.registry.RegisterHeader(sub.targetName(), path, sub.snippet.Includes)
	if err != nil {
		return err
	}
	sub.library = &store.LibraryEvent{
		Name:     rec.Name,
		Kind:     store.KindHeader,
		Path:     path,
		Deps:     rec.HeaderDeps,
		Revision: rec.Revision,
	}
	sub.message = "Saved as header"
	sub.session.info("%s.", sub.message)
	return sub.to(StateDone)
}

func (sub *submission) saveBinary(object string) error {
	if err := sub.to(StateCompiledAsLibrary); err != nil {
		return err
	}
	rec, err := sub.session.registry.RegisterBinary(sub.targetName(), object, sub.snippet.Includes)
	if err != nil {
		return err
	}
	sub.library = &store.LibraryEvent{
		Name:     rec.Name,
		Kind:     store.KindBinary,
		Path:     object,
		Deps:     rec.BinaryDeps,
		Revision: rec.Revision,
	}
	sub.message = "Saved as binary"
	sub.session.info("%s.", sub.message)
	return sub.to(StateDone)
}

func (sub *submission) compile(ctx context.Context) (string, error) {
	s := sub.session
	source, object := sub.artifact(".cpp"), sub.artifact(".o")
	if err := os.WriteFile(source, []byte(sub.snippet.Code), 0o644); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	s.info("Compiling with flags '%s'.", strings.Join(s.toolchain.CompileFlags(sub.snippet.CompilerFlags, s.dir), " "))
	cmd := s.toolchain.Compile(source, object, s.dir, sub.snippet.CompilerFlags)
	if err := sub.tool(ctx, ir.CompilationError, filepath.Base(cmd.Path), func() (int, error) {
		return s.supervisor.Exec(ctx, cmd, s.toolSink())
	}); err != nil {
		return "", err
	}
	return object, nil
}

func (sub *submission) link(ctx context.Context, object string) (string, error) {
	s := sub.session
	executable := sub.artifact(".out")

	s.info("Linking with flags '%s'.", strings.Join(sub.snippet.LinkerFlags, " "))
	cmd := s.toolchain.Link(object, s.registry.BinaryPaths(sub.linkSet), executable, sub.snippet.LinkerFlags)
	if err := sub.tool(ctx, ir.LinkingError, filepath.Base(cmd.Path), func() (int, error) {
		return s.supervisor.Exec(ctx, cmd, s.toolSink())
	}); err != nil {
		return "", err
	}
	return executable, nil
}

// tool runs a compiler or linker step and turns its outcome into a
// StageError of kind. Cancellation is passed through untouched.
func (sub *submission) tool(ctx context.Context, kind ir.ErrorKind, name string, exec func() (int, error)) error {
	code, err := exec()
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return newStageError(kind, sub.state, name, -1, err)
	}
	sub.exitCode = &code
	if code != 0 {
		return newStageError(kind, sub.state, name, code, nil)
	}
	return nil
}

// execute binds the program's standard input and runs it. The
// virtual-input session is released once the program has exited,
// whatever its exit code.
func (sub *submission) execute(ctx context.Context, executable string) error {
	s := sub.session

	var (
		stdin io.Reader
		lease *vin.Lease
	)
	if s.bridge != nil {
		var err error
		lease, err = s.bridge.Acquire(ctx)
		if err != nil {
			return err
		}
		f, err := os.Open(lease.Path)
		if err != nil {
			if rerr := lease.Release(ctx); rerr != nil {
				slog.Warn("releasing virtual input failed", "session", lease.ID, "error", rerr)
			}
			return &vin.BridgeError{Op: vin.OpOpenInput, Err: err}
		}
		defer f.Close()
		stdin = f
	}

	if err := sub.to(StateRunning); err != nil {
		return err
	}
	s.info("Running the compiled program.\n")
	code, runErr := s.supervisor.Exec(ctx, toolchain.Run(executable, sub.snippet.Args, stdin), s.sink)

	var bridgeErr error
	if lease != nil {
		bridgeErr = lease.Release(ctx)
		if bridgeErr == nil {
			bridgeErr = lease.Err()
		}
	}

	if runErr != nil {
		return runErr
	}
	sub.exitCode = &code
	sub.message = fmt.Sprintf("Program exited with code %d.", code)
	s.info("\n%s", sub.message)

	if bridgeErr != nil {
		return bridgeErr
	}
	return sub.to(StateDone)
}
