package supervisor

import (
	"bytes"
	"io"
	"sync"

	"github.com/roach88/cppcell/internal/ir"
)

// Sink receives forwarded output. Emit is only ever called from the
// goroutine running Join, never concurrently for one Run.
type Sink interface {
	Emit(ch ir.Channel, p []byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ch ir.Channel, p []byte)

// Emit calls f.
func (f SinkFunc) Emit(ch ir.Channel, p []byte) { f(ch, p) }

// Discard drops all output.
var Discard Sink = SinkFunc(func(ir.Channel, []byte) {})

// WriterSink forwards each channel to its own writer. A nil writer drops
// that channel.
type WriterSink struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Emit writes p to the writer for ch. Write errors are ignored; a broken
// terminal must not stop the supervised process from being drained.
func (w WriterSink) Emit(ch ir.Channel, p []byte) {
	var dst io.Writer
	switch ch {
	case ir.Stdout:
		dst = w.Stdout
	case ir.Stderr:
		dst = w.Stderr
	}
	if dst != nil {
		_, _ = dst.Write(p)
	}
}

// Chunk is one forwarded write.
type Chunk struct {
	Channel ir.Channel
	Data    []byte
}

// BufferSink records everything it receives. It is safe for concurrent use.
type BufferSink struct {
	mu     sync.Mutex
	chunks []Chunk
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// Emit records a copy of p.
func (b *BufferSink) Emit(ch ir.Channel, p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, Chunk{Channel: ch, Data: bytes.Clone(p)})
	switch ch {
	case ir.Stdout:
		b.stdout.Write(p)
	case ir.Stderr:
		b.stderr.Write(p)
	}
}

// Stdout returns everything received on the stdout channel.
func (b *BufferSink) Stdout() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stdout.String()
}

// Stderr returns everything received on the stderr channel.
func (b *BufferSink) Stderr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stderr.String()
}

// Chunks returns the received chunks in delivery order.
func (b *BufferSink) Chunks() []Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Chunk(nil), b.chunks...)
}

// Reset forgets everything received so far.
func (b *BufferSink) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.stdout.Reset()
	b.stderr.Reset()
}
