package testutil

import (
	"context"
	"io"
	"sync"
)

// ScriptedInput hands out a fixed list of lines, then io.EOF. It
// implements vin.InputSource.
type ScriptedInput struct {
	mu    sync.Mutex
	lines []string
	read  int
}

// NewScriptedInput creates an input source returning lines in order.
func NewScriptedInput(lines ...string) *ScriptedInput {
	return &ScriptedInput{lines: append([]string(nil), lines...)}
}

// ReadLine returns the next line.
func (s *ScriptedInput) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.read >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.read]
	s.read++
	return line, nil
}

// Read returns how many lines have been handed out.
func (s *ScriptedInput) Read() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read
}
