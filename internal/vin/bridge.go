package vin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultLineTerminator is appended to every supplied line.
const DefaultLineTerminator = "\n"

// DefaultCallTimeout bounds each unary call to the service.
const DefaultCallTimeout = 5 * time.Second

// Bridge acquires virtual-input sessions for program runs.
type Bridge struct {
	svc         Service
	input       InputSource
	terminator  string
	callTimeout time.Duration
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLineTerminator sets the bytes appended to each supplied line.
func WithLineTerminator(term string) BridgeOption {
	return func(b *Bridge) {
		b.terminator = term
	}
}

// WithCallTimeout bounds CreateSession, SupplyInput and DestroySession.
// Zero disables the bound.
func WithCallTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.callTimeout = d
	}
}

// NewBridge creates a Bridge that answers input requests from input.
func NewBridge(svc Service, input InputSource, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		svc:         svc,
		input:       input,
		terminator:  DefaultLineTerminator,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Lease is one acquired session, bound to one program run.
type Lease struct {
	// Path is the file the program must use as its standard input.
	Path string
	// ID is the service's session id.
	ID string

	bridge  *Bridge
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	release error

	mu       sync.Mutex
	supplied int
	err      error
}

// Acquire creates a session and starts its listener. The listener answers
// each notification with one line from the bridge's InputSource until the
// stream ends or Release is called.
func (b *Bridge) Acquire(ctx context.Context) (*Lease, error) {
	callCtx, cancelCall := b.callContext(ctx)
	sess, err := b.svc.CreateSession(callCtx)
	cancelCall()
	if err != nil {
		return nil, &BridgeError{Op: OpCreateSession, Err: err}
	}

	listenCtx, cancel := context.WithCancel(ctx)
	stream, err := b.svc.SubscribeInputRequests(listenCtx, sess.ID)
	if err != nil {
		cancel()
		b.destroy(ctx, sess.ID)
		return nil, &BridgeError{Op: OpSubscribeInputRequests, Err: err}
	}

	l := &Lease{
		Path:   sess.Path,
		ID:     sess.ID,
		bridge: b,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.listen(listenCtx, stream)

	slog.Debug("virtual input acquired", "session", sess.ID, "path", sess.Path)
	return l, nil
}

func (l *Lease) listen(ctx context.Context, stream NotificationStream) {
	defer close(l.done)
	b := l.bridge

	for {
		if err := stream.Recv(); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				l.fail(&BridgeError{Op: OpSubscribeInputRequests, Err: err})
			}
			return
		}

		line, err := b.input.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, io.EOF) {
				slog.Warn("reading program input failed", "session", l.ID, "error", err)
			}
			// Nothing more to give: tell the service so the program sees end of input.
			if err := l.supply(ctx, nil); err != nil {
				l.fail(err)
			}
			return
		}

		if err := l.supply(ctx, []byte(line+b.terminator)); err != nil {
			l.fail(err)
			return
		}
	}
}

func (l *Lease) supply(ctx context.Context, payload []byte) error {
	callCtx, cancel := l.bridge.callContext(ctx)
	defer cancel()

	if err := l.bridge.svc.SupplyInput(callCtx, l.ID, payload); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &BridgeError{Op: OpSupplyInput, Err: err}
	}
	l.mu.Lock()
	l.supplied++
	l.mu.Unlock()
	return nil
}

func (l *Lease) fail(err error) {
	slog.Error("virtual input listener failed", "session", l.ID, "error", err)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}

// Supplied returns how many payloads the listener has delivered.
func (l *Lease) Supplied() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supplied
}

// Err returns the first error the listener hit, if any.
func (l *Lease) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Release stops the listener and destroys the session. It must be called
// only after the program reading Path has exited. The listener is stopped
// first so stream errors caused by the teardown are not reported by Err.
// Later calls return the first call's result.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.cancel()
		l.release = l.bridge.destroy(ctx, l.ID)
		slog.Debug("virtual input released", "session", l.ID, "supplied", l.Supplied())
	})
	return l.release
}

func (b *Bridge) destroy(ctx context.Context, id string) error {
	callCtx, cancel := b.callContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := b.svc.DestroySession(callCtx, id); err != nil {
		return &BridgeError{Op: OpDestroySession, Err: err}
	}
	return nil
}

func (b *Bridge) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.callTimeout)
}
