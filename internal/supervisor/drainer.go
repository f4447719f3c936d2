package supervisor

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/cppcell/internal/ir"
)

// drainer reads one stream to completion on its own goroutine.
type drainer struct {
	channel ir.Channel
	src     io.ReadCloser
	queue   *chunkQueue
	done    chan struct{}
	err     error // read error other than EOF; valid after done closes
}

func startDrainer(ch ir.Channel, src io.ReadCloser, readSize int) *drainer {
	d := &drainer{
		channel: ch,
		src:     src,
		queue:   newChunkQueue(),
		done:    make(chan struct{}),
	}
	go d.loop(readSize)
	return d
}

func (d *drainer) loop(readSize int) {
	defer close(d.done)
	defer d.queue.Close()
	defer d.src.Close()

	for {
		buf := make([]byte, readSize)
		n, err := d.src.Read(buf)
		if n > 0 {
			d.queue.Push(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, os.ErrClosed) {
				d.err = err
				slog.Warn("stream drainer stopped", "channel", d.channel, "error", err)
			}
			return
		}
	}
}

// abort unblocks a pending Read. Data already queued is kept.
func (d *drainer) abort() {
	if f, ok := d.src.(*os.File); ok {
		if err := f.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	d.src.Close()
}
