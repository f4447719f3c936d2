package vin

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// Session is one bound instance of the virtual-input service.
type Session struct {
	// ID identifies the session in later calls.
	ID string

	// Path is the file the program should open as its standard input.
	Path string
}

// Service is the four-operation virtual-input protocol.
type Service interface {
	CreateSession(ctx context.Context) (Session, error)

	// SubscribeInputRequests streams one notification per time the program
	// blocks reading its input, until the session is destroyed.
	SubscribeInputRequests(ctx context.Context, id string) (NotificationStream, error)

	// SupplyInput makes payload available to the program. An empty payload
	// signals end of input.
	SupplyInput(ctx context.Context, id string, payload []byte) error

	DestroySession(ctx context.Context, id string) error
}

// NotificationStream yields input-request notifications.
type NotificationStream interface {
	// Recv blocks until the next notification. It returns io.EOF once the
	// service ends the stream.
	Recv() error
}

// InputSource supplies lines typed into the interactive session.
type InputSource interface {
	// ReadLine blocks until the session provides a line, without its
	// terminator. io.EOF means no more input will ever arrive.
	ReadLine(ctx context.Context) (string, error)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(ctx context.Context) (string, error)

// ReadLine calls f.
func (f InputFunc) ReadLine(ctx context.Context) (string, error) { return f(ctx) }

// ReaderSource reads newline-separated input from an io.Reader. It is
// safe to share between successive program runs; each line is handed out
// once.
type ReaderSource struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

// NewReaderSource wraps r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

// ReadLine returns the next line. The context is not consulted once the
// underlying read has started.
func (s *ReaderSource) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
