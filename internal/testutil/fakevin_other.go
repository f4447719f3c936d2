//go:build !unix

package testutil

import (
	"errors"
	"os"
)

var errNoFIFO = errors.New("named pipes are not supported on this platform")

func mkfifo(string) error { return errNoFIFO }

func openWriterNonblock(string) (*os.File, error) { return nil, errNoFIFO }

func errNoReader(error) bool { return false }
