package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultBufferSize batches roughly a few hundred JSON lines per write
const DefaultBufferSize = 32 * 1024

// DefaultFlushInterval bounds how long a line can sit in the buffer
const DefaultFlushInterval = 5 * time.Second

var errWriterClosed = errors.New("log writer is closed")

// BufferedFileWriter is an append-only, goroutine-safe buffered log file.
// A background loop flushes it every flush interval, and Reopen lets external
// rotation tools (logrotate with copytruncate off) move the file away.
type BufferedFileWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	buf      *bufio.Writer
	size     int
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// BufferedWriterOption configures a BufferedFileWriter
type BufferedWriterOption func(*BufferedFileWriter)

// WithBufferSize sets the buffer size for the writer
func WithBufferSize(size int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if size > 0 {
			w.size = size
		}
	}
}

// WithFlushInterval sets the auto-flush interval. Zero disables auto-flush.
func WithFlushInterval(interval time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		w.interval = interval
	}
}

// NewBufferedFileWriter opens path for appending and starts the flush loop.
func NewBufferedFileWriter(path string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		path:     path,
		size:     DefaultBufferSize,
		interval: DefaultFlushInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.open(); err != nil {
		return nil, err
	}

	if w.interval > 0 {
		w.wg.Add(1)
		go w.flushLoop()
	}

	return w, nil
}

func (w *BufferedFileWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from operator config
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", w.path, err)
	}
	w.file = file
	w.buf = bufio.NewWriterSize(file, w.size)
	return nil
}

func (w *BufferedFileWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			// errors resurface on the next Write
			_ = w.Flush()
		}
	}
}

// Write buffers p.
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errWriterClosed
	}
	return w.buf.Write(p)
}

// Flush hands buffered bytes to the OS without fsync.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Reopen flushes, closes and reopens the file at the same path.
func (w *BufferedFileWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errWriterClosed
	}

	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	if err := w.open(); err != nil {
		return errors.Join(flushErr, closeErr, err)
	}
	return errors.Join(flushErr, closeErr)
}

// Close stops the flush loop, syncs to disk and closes the file. It is idempotent.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush buffer: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync file: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close file: %w", err))
	}
	return errors.Join(errs...)
}

// Path returns the path of the underlying file
func (w *BufferedFileWriter) Path() string {
	return w.path
}

var _ io.WriteCloser = (*BufferedFileWriter)(nil)
