// Package sink is the result writer shared by the consumers of a pipeline.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("sink: writer closed")

// Writer writes records made of lines, each record followed by a blank line. Records from concurrent callers
// never interleave.
type Writer struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	closer  io.Closer
	records int64
	closed  bool
}

// New wraps w. Close flushes and, when w is an io.Closer, closes it.
func New(w io.Writer) *Writer {
	c, _ := w.(io.Closer)
	return &Writer{buf: bufio.NewWriter(w), closer: c}
}

// Create truncates or creates the file at path, making missing parent directories.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	return New(f), nil
}

// WriteRecord writes lines followed by a blank line as one unit.
func (w *Writer) WriteRecord(lines ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	for _, line := range lines {
		if _, err := w.buf.WriteString(line); err != nil {
			return err
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.records++
	return nil
}

// Records returns the number of records written.
func (w *Writer) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.buf.Flush()
}

// Close flushes buffered records and closes the underlying writer. Calling it again returns nil.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.buf.Flush()
	if w.closer != nil {
		err = multierr.Append(err, w.closer.Close())
	}
	return err
}
