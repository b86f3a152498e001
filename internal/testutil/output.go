package testutil

import (
	"bytes"
	"strings"
	"sync"
)

// LineBuffer is an io.Writer that collects newline-terminated output,
// e.g. from the print_queue_entry handler.
type LineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Lines returns the complete lines written so far, without newlines.
// A trailing partial line is omitted.
func (b *LineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.buf.String()
	end := strings.LastIndexByte(text, '\n')
	if end < 0 {
		return []string{}
	}
	return strings.Split(text[:end], "\n")
}

// String returns everything written so far.
func (b *LineBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
