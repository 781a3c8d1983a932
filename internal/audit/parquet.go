package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/segmentio/parquet-go"

	"github.com/raaihank/data-sentinel/internal/logger"
)

// ParquetSink archives audit entries as a Parquet file for columnar
// analytics. Rows become visible to readers once Close has run.
type ParquetSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[Entry]
	closed bool
	log    *logger.Logger
}

// NewParquetSink creates the archive file, truncating any previous one.
func NewParquetSink(path string, log *logger.Logger) (*ParquetSink, error) {
	if log == nil {
		log = logger.Nop()
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create audit archive: %w", err)
	}
	return &ParquetSink{
		file:   file,
		writer: parquet.NewGenericWriter[Entry](file),
		log:    log.WithComponent("audit-parquet"),
	}, nil
}

func (s *ParquetSink) Write(_ context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("audit archive already closed")
	}
	if _, err := s.writer.Write(entries); err != nil {
		return fmt.Errorf("write audit archive: %w", err)
	}
	return nil
}

func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.writer.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("close audit archive: %w", err)
	}
	return s.file.Close()
}
