package audit

import (
	"context"
	"errors"
)

// Fanout writes every batch to all sinks. A failing sink does not stop the
// others; errors are joined so no failure is silent.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Write(ctx context.Context, entries []Entry) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Write(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
