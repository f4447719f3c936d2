package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/roach88/cppcell/internal/directive"
	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/registry"
	"github.com/roach88/cppcell/internal/store"
	"github.com/roach88/cppcell/internal/supervisor"
	"github.com/roach88/cppcell/internal/toolchain"
	"github.com/roach88/cppcell/internal/vin"
)

// InfoPrefix starts every informational line written to the sink.
const InfoPrefix = "[cppcell] "

// ErrSessionClosed is returned for work submitted after Close.
var ErrSessionClosed = errors.New("session closed")

// Session is the explicit per-session context: registry, artifact
// directory, execution counter and journal. All submissions of one
// interactive session go through one Session.
//
// Thread-safety: Execute, Submit and Close are serialized by an internal
// mutex. Registry must not be used concurrently with Execute.
type Session struct {
	id       string
	dir      string
	registry *registry.Registry
	clock    *Clock

	toolchain  toolchain.Config
	supervisor *supervisor.Supervisor
	bridge     *vin.Bridge
	journal    *store.Store
	ids        IDGenerator
	sink       supervisor.Sink

	printInfos   bool
	artifactRoot string

	mu     sync.Mutex
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithToolchain sets the compiler and default flags.
func WithToolchain(tc toolchain.Config) Option {
	return func(s *Session) {
		s.toolchain = tc
	}
}

// WithSupervisor sets the supervisor running every subprocess.
func WithSupervisor(sup *supervisor.Supervisor) Option {
	return func(s *Session) {
		s.supervisor = sup
	}
}

// WithBridge binds program input to a virtual-input bridge. Without one
// (or with nil) programs read from the null device.
func WithBridge(b *vin.Bridge) Option {
	return func(s *Session) {
		s.bridge = b
	}
}

// WithJournal records every submission in st.
func WithJournal(st *store.Store) Option {
	return func(s *Session) {
		s.journal = st
	}
}

// WithIDGenerator sets the session and submission id source.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithSink sets where program output and informational lines go.
//
// Default: supervisor.Discard.
func WithSink(sink supervisor.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithPrintInfos controls informational lines and the forwarding of
// compiler and linker output. Program output is always forwarded.
func WithPrintInfos(on bool) Option {
	return func(s *Session) {
		s.printInfos = on
	}
}

// WithArtifactRoot sets the directory the session's artifact directory is
// created in. Empty means the system temp directory.
func WithArtifactRoot(dir string) Option {
	return func(s *Session) {
		s.artifactRoot = dir
	}
}

// NewSession creates a session with a fresh artifact directory and an
// empty registry.
func NewSession(ctx context.Context, opts ...Option) (*Session, error) {
	s := &Session{
		registry:   registry.New(),
		clock:      NewClock(),
		toolchain:  toolchain.DefaultConfig(),
		ids:        UUIDv7Generator{},
		sink:       supervisor.Discard,
		printInfos: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.supervisor == nil {
		s.supervisor = supervisor.New()
	}

	dir, err := os.MkdirTemp(s.artifactRoot, "cppcell-")
	if err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	s.dir = dir
	s.id = s.ids.Generate()

	if s.journal != nil {
		err := s.journal.WriteSession(ctx, store.Session{
			ID:             s.id,
			ArtifactDir:    dir,
			JournalVersion: ir.JournalVersion,
		})
		if err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}

	slog.Debug("session started", "session", s.id, "dir", dir)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Dir returns the artifact directory. It is also the include search path
// of every compile.
func (s *Session) Dir() string { return s.dir }

// Registry returns the session's library registry.
func (s *Session) Registry() *registry.Registry { return s.registry }

// Submit preprocesses a raw cell against the current registry, prints
// any directive notices and executes the result.
func (s *Session) Submit(ctx context.Context, code string) ir.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed := directive.Parse(code, s.registry)
	for _, notice := range parsed.Notices {
		s.emitLine(notice)
	}
	return s.execute(ctx, parsed.Snippet)
}

// Execute drives one preprocessed snippet through the state machine and
// reports the outcome. It never panics on tool failures: every failure is
// folded into the returned result.
func (s *Session) Execute(ctx context.Context, snip ir.Snippet) ir.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(ctx, snip)
}

func (s *Session) execute(ctx context.Context, snip ir.Snippet) ir.Result {
	if s.closed {
		return ir.Result{
			Status:    ir.StatusError,
			ErrorKind: ir.InternalError,
			Message:   ErrSessionClosed.Error(),
		}
	}

	sub := &submission{
		session: s,
		id:      s.ids.Generate(),
		seq:     s.clock.Next(),
		snippet: snip,
		state:   StatePreprocessed,
	}
	err := sub.run(ctx)
	if err != nil {
		sub.fail(err)
	}
	res := sub.result(err)
	s.record(ctx, sub, res)
	return res
}

// History returns the journaled submissions in execution order. It is
// empty when the session has no journal.
func (s *Session) History(ctx context.Context) ([]store.Submission, error) {
	if s.journal == nil {
		return []store.Submission{}, nil
	}
	return s.journal.ReadSubmissions(ctx, s.id)
}

// LibraryHistory returns every journaled registration of the named library,
// oldest first. It is empty when the session has no journal.
func (s *Session) LibraryHistory(ctx context.Context, name string) ([]store.LibraryEvent, error) {
	if s.journal == nil {
		return []store.LibraryEvent{}, nil
	}
	return s.journal.ReadLibraryHistory(ctx, s.id, name)
}

// Close removes every artifact the session wrote. Later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	slog.Debug("session closed", "session", s.id, "submissions", s.clock.Current())
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove artifacts: %w", err)
	}
	return nil
}

func (s *Session) record(ctx context.Context, sub *submission, res ir.Result) {
	if s.journal == nil {
		return
	}
	row := store.Submission{
		ID:         sub.id,
		SessionID:  s.id,
		Seq:        sub.seq,
		TargetKind: string(sub.snippet.Kind()),
		FinalState: sub.state.String(),
		Status:     string(res.Status),
		ErrorKind:  string(res.ErrorKind),
		Message:    res.Message,
		ExitCode:   res.ExitCode,
		LinkSet:    sub.linkSet,
		Library:    sub.library,
	}
	if sub.snippet.Target != nil {
		row.TargetName = sub.snippet.Target.TargetName
	}
	// The submission already ran; a journal failure must not change its result.
	if err := s.journal.WriteSubmission(context.WithoutCancel(ctx), row); err != nil {
		slog.Warn("journal write failed", "submission", sub.id, "error", err)
	}
}

// emitLine writes one informational line to the sink unconditionally.
// Leading blank lines stay ahead of the prefix.
func (s *Session) emitLine(text string) {
	body := strings.TrimLeft(text, "\n")
	lead := text[:len(text)-len(body)]
	s.sink.Emit(ir.Stdout, []byte(lead+InfoPrefix+body+"\n"))
}

// info writes one informational line when infos are enabled.
func (s *Session) info(format string, args ...any) {
	if s.printInfos {
		s.emitLine(fmt.Sprintf(format, args...))
	}
}

// toolSink is where compiler and linker output goes.
func (s *Session) toolSink() supervisor.Sink {
	if s.printInfos {
		return s.sink
	}
	return supervisor.Discard
}
