//go:build unix

package testutil

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func mkfifo(path string) error {
	return unix.Mkfifo(path, 0o600)
}

// openWriterNonblock fails with ENXIO while nobody has the FIFO open for
// reading.
func openWriterNonblock(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
}

func errNoReader(err error) bool {
	return errors.Is(err, unix.ENXIO)
}
