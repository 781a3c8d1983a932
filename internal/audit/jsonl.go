package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/logger"
)

// ErrSinkClosed is returned by Write after Close has been called.
var ErrSinkClosed = errors.New("audit: sink closed")

// JSONLSink appends entries to a file, one JSON object per line. A single
// writer goroutine owns the file handle so Write never blocks callers on
// disk latency. Write after Close returns ErrSinkClosed.
type JSONLSink struct {
	queue chan []Entry
	done  chan struct{}
	once  sync.Once
	log   *logger.Logger

	// closeMu serializes Close against in-flight Writes so the queue is
	// never closed while a send is pending.
	closeMu sync.RWMutex
	closed  bool

	mu  sync.Mutex
	err error
}

// NewJSONLSink opens (or creates) the audit file in append mode.
func NewJSONLSink(path string, log *logger.Logger) (*JSONLSink, error) {
	if log == nil {
		log = logger.Nop()
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	s := &JSONLSink{
		queue: make(chan []Entry, 256),
		done:  make(chan struct{}),
		log:   log.WithComponent("audit-jsonl"),
	}
	go s.run(file)
	return s, nil
}

func (s *JSONLSink) run(file *os.File) {
	defer close(s.done)
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for batch := range s.queue {
		for _, e := range batch {
			if err := enc.Encode(e); err != nil {
				s.setErr(err)
			}
		}
		if err := w.Flush(); err != nil {
			s.setErr(err)
		}
	}
	if err := w.Flush(); err != nil {
		s.setErr(err)
	}
	if err := file.Close(); err != nil {
		s.setErr(err)
	}
}

func (s *JSONLSink) setErr(err error) {
	s.log.Error("audit write failed", zap.Error(err))
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Write enqueues entries for the writer goroutine. It respects context
// cancellation while the queue is full.
func (s *JSONLSink) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	batch := append([]Entry(nil), entries...)
	select {
	case s.queue <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer and flushes the file. Safe to call twice.
func (s *JSONLSink) Close() error {
	s.once.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		close(s.queue)
		s.closeMu.Unlock()
	})
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
