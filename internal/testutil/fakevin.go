package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/cppcell/internal/vin"
)

// FakeVin is an in-process virtual-input service backed by named pipes.
//
// Each session's path is a FIFO. The first input-request notification is
// sent once a reader has opened the FIFO, and each supplied payload is
// written to it and followed by the next notification until the session's
// notification budget is spent. The write end is closed after the last
// supply, after an empty (end of input) payload, or on destroy, so the
// program then sees end of file.
type FakeVin struct {
	dir           string
	notifications int

	// CreateErr, when set, fails every CreateSession.
	CreateErr error

	mu        sync.Mutex
	next      int
	sessions  map[string]*fakeVinSession
	supplied  []string
	destroyed []string
}

var _ vin.Service = (*FakeVin)(nil)

// NewFakeVin creates a service whose sessions each request up to
// notifications lines. FIFOs are created in dir.
func NewFakeVin(dir string, notifications int) *FakeVin {
	return &FakeVin{
		dir:           dir,
		notifications: notifications,
		sessions:      make(map[string]*fakeVinSession),
	}
}

type fakeVinSession struct {
	path      string
	remaining int
	notify    chan struct{}

	mu       sync.Mutex
	writer   *os.File
	finished bool
}

// CreateSession makes a FIFO for the program's standard input.
func (f *FakeVin) CreateSession(context.Context) (vin.Session, error) {
	if f.CreateErr != nil {
		return vin.Session{}, f.CreateErr
	}

	f.mu.Lock()
	f.next++
	id := fmt.Sprintf("puppet-%d", f.next)
	f.mu.Unlock()

	path := filepath.Join(f.dir, id)
	if err := mkfifo(path); err != nil {
		return vin.Session{}, fmt.Errorf("mkfifo: %w", err)
	}

	sess := &fakeVinSession{
		path:      path,
		remaining: f.notifications,
		notify:    make(chan struct{}, 1),
	}
	if sess.remaining > 0 {
		sess.notify <- struct{}{}
	} else {
		sess.finished = true
		close(sess.notify)
	}

	f.mu.Lock()
	f.sessions[id] = sess
	f.mu.Unlock()
	return vin.Session{ID: id, Path: path}, nil
}

// SubscribeInputRequests returns the session's notification stream.
func (f *FakeVin) SubscribeInputRequests(ctx context.Context, id string) (vin.NotificationStream, error) {
	sess, err := f.session(id)
	if err != nil {
		return nil, err
	}
	return &fakeVinStream{ctx: ctx, sess: sess}, nil
}

// SupplyInput writes payload to the FIFO.
func (f *FakeVin) SupplyInput(_ context.Context, id string, payload []byte) error {
	sess, err := f.session(id)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.supplied = append(f.supplied, string(payload))
	f.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.finished {
		return errors.New("input after end of input")
	}
	if len(payload) == 0 {
		sess.finish()
		return nil
	}
	if sess.writer == nil {
		return errors.New("no reader attached")
	}
	if _, err := sess.writer.Write(payload); err != nil {
		return err
	}
	sess.remaining--
	if sess.remaining > 0 {
		sess.notify <- struct{}{}
	} else {
		sess.finish()
	}
	return nil
}

// DestroySession ends the session and removes its FIFO.
func (f *FakeVin) DestroySession(_ context.Context, id string) error {
	sess, err := f.session(id)
	if err != nil {
		return err
	}

	f.mu.Lock()
	delete(f.sessions, id)
	f.destroyed = append(f.destroyed, id)
	f.mu.Unlock()

	sess.mu.Lock()
	sess.finish()
	sess.mu.Unlock()
	return os.Remove(sess.path)
}

// Supplied returns every payload received, in order.
func (f *FakeVin) Supplied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.supplied...)
}

// Destroyed returns the ids of destroyed sessions.
func (f *FakeVin) Destroyed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.destroyed...)
}

// Live returns how many sessions have not been destroyed.
func (f *FakeVin) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *FakeVin) session(id string) (*fakeVinSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return sess, nil
}

// finish closes the write end and ends the stream. Callers hold sess.mu.
func (sess *fakeVinSession) finish() {
	if sess.writer != nil {
		sess.writer.Close()
		sess.writer = nil
	}
	if !sess.finished {
		sess.finished = true
		close(sess.notify)
	}
}

// attach opens the write end once a reader is present. Opening it
// earlier would let the write end close before the program ever opened
// the FIFO, leaving its open blocked forever.
func (sess *fakeVinSession) attach(ctx context.Context) error {
	for {
		sess.mu.Lock()
		if sess.writer != nil || sess.finished {
			sess.mu.Unlock()
			return nil
		}
		w, err := openWriterNonblock(sess.path)
		if err == nil {
			sess.writer = w
			sess.mu.Unlock()
			return nil
		}
		sess.mu.Unlock()
		if !errNoReader(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

type fakeVinStream struct {
	ctx  context.Context
	sess *fakeVinSession
}

func (s *fakeVinStream) Recv() error {
	if err := s.sess.attach(s.ctx); err != nil {
		return err
	}
	select {
	case _, ok := <-s.sess.notify:
		if !ok {
			return io.EOF
		}
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
