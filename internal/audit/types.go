package audit

import (
	"context"
	"time"
)

// Entry records one transformation decision. One entry is written per
// finding, allow decisions included, so the trail shows what was seen as
// well as what was changed. Original values never appear here.
type Entry struct {
	RunID      string    `json:"run_id" db:"run_id" parquet:"run_id"`
	Dataset    string    `json:"dataset,omitempty" db:"dataset" parquet:"dataset,optional"`
	Field      string    `json:"field,omitempty" db:"field" parquet:"field,optional"`
	Type       string    `json:"type" db:"type" parquet:"type"`
	Action     string    `json:"action" db:"action" parquet:"action"`
	Reason     string    `json:"reason" db:"reason" parquet:"reason"`
	Detector   string    `json:"detector,omitempty" db:"detector" parquet:"detector,optional"`
	Confidence float64   `json:"confidence" db:"confidence" parquet:"confidence"`
	Offset     int       `json:"offset" db:"span_start" parquet:"span_start"`
	Length     int       `json:"length" db:"span_length" parquet:"span_length"`
	Timestamp  time.Time `json:"timestamp" db:"created_at" parquet:"created_at,timestamp"`
}

// Sink receives audit entries. Implementations must tolerate concurrent
// Write calls. Close flushes anything buffered.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
	Close() error
}
