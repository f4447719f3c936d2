package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/roach88/cppcell/internal/ir"
)

const (
	// DefaultPollInterval is how often Join flushes queued output.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultReadSize is the drainers' read buffer size.
	DefaultReadSize = 4096
)

// Command describes one process to launch.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string // nil inherits the parent environment

	// Stdin is connected to the process's standard input. nil means the
	// null device.
	Stdin io.Reader
}

// String renders the command line for logs and diagnostics.
func (c Command) String() string {
	s := c.Path
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Supervisor launches and joins processes.
type Supervisor struct {
	pollInterval time.Duration
	readSize     int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPollInterval sets how often Join flushes output while the process runs.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithReadSize sets the maximum chunk size a drainer reads at once.
func WithReadSize(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.readSize = n
		}
	}
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		pollInterval: DefaultPollInterval,
		readSize:     DefaultReadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run is one started process and its two drainers.
type Run struct {
	cmd    *exec.Cmd
	desc   string
	sink   Sink
	poll   time.Duration
	stdout *drainer
	stderr *drainer

	exited  chan struct{}
	waitErr error // valid after exited closes
	joined  bool
}

// Start launches c and begins draining its output into sink. The caller
// must call Join.
func (s *Supervisor) Start(c Command, sink Sink) (*Run, error) {
	if sink == nil {
		sink = Discard
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("start %s: stdout pipe: %w", c.Path, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("start %s: stderr pipe: %w", c.Path, err)
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin
	// Plain *os.File writers: exec starts no copying goroutines and Wait
	// leaves our read ends alone.
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return nil, fmt.Errorf("start %s: %w", c.Path, err)
	}

	// The child holds its own copies; ours must go or the drainers never see EOF.
	outW.Close()
	errW.Close()

	r := &Run{
		cmd:    cmd,
		desc:   c.String(),
		sink:   sink,
		poll:   s.pollInterval,
		stdout: startDrainer(ir.Stdout, outR, s.readSize),
		stderr: startDrainer(ir.Stderr, errR, s.readSize),
		exited: make(chan struct{}),
	}
	go func() {
		r.waitErr = cmd.Wait()
		close(r.exited)
	}()

	slog.Debug("subprocess started", "cmd", r.desc, "pid", cmd.Process.Pid)
	return r, nil
}

// Exec is Start followed by Join.
func (s *Supervisor) Exec(ctx context.Context, c Command, sink Sink) (int, error) {
	r, err := s.Start(c, sink)
	if err != nil {
		return -1, err
	}
	return r.Join(ctx)
}

// Join blocks until the process exits and all of its output has been
// forwarded, flushing queued output every poll interval meanwhile.
//
// The exit code is returned whatever its value. If ctx is cancelled first
// the process group is killed, the drainers are unblocked, whatever was
// already read is flushed, and the context error is returned.
func (r *Run) Join(ctx context.Context) (int, error) {
	if r.joined {
		return -1, fmt.Errorf("join %s: already joined", r.desc)
	}
	r.joined = true

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			return -1, r.cancel(ctx.Err())
		case <-r.exited:
			running = false
		case <-ticker.C:
			r.flush()
		}
	}

	// The process is gone but a drainer may still be reading the tail of a
	// pipe, so keep flushing until both hit end-of-stream.
	for _, d := range []*drainer{r.stderr, r.stdout} {
	wait:
		for {
			select {
			case <-d.done:
				break wait
			case <-ctx.Done():
				return -1, r.cancel(ctx.Err())
			case <-ticker.C:
				r.flush()
			}
		}
	}
	r.flush()

	code, err := r.exitCode()
	if err != nil {
		return -1, err
	}
	slog.Debug("subprocess exited", "cmd", r.desc, "code", code)
	return code, nil
}

func (r *Run) cancel(cause error) error {
	slog.Warn("subprocess cancelled", "cmd", r.desc, "pid", r.cmd.Process.Pid)
	killProcessGroup(r.cmd.Process)
	<-r.exited
	r.stdout.abort()
	r.stderr.abort()
	<-r.stdout.done
	<-r.stderr.done
	r.flush()
	return fmt.Errorf("join %s: %w", r.desc, cause)
}

// flush forwards everything queued, standard error first.
func (r *Run) flush() {
	for _, d := range []*drainer{r.stderr, r.stdout} {
		for _, p := range d.queue.PopAll() {
			r.sink.Emit(d.channel, p)
		}
	}
}

func (r *Run) exitCode() (int, error) {
	if r.waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(r.waitErr, &exitErr) {
			return -1, fmt.Errorf("wait %s: %w", r.desc, r.waitErr)
		}
	}
	return r.cmd.ProcessState.ExitCode(), nil
}
