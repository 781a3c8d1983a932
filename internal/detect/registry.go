package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/raaihank/data-sentinel/internal/logger"
	"go.uber.org/zap"
)

// ErrDuplicateDetector is returned when a detector identifier is already
// registered.
var ErrDuplicateDetector = errors.New("duplicate detector id")

const defaultWorkers = 4

// Registry holds the set of available detectors and fans a single input out
// to all of them. Detectors are stateless, so runs over independent units
// need no synchronization beyond the join point.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
	order     []string

	workers int
	logger  *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		detectors: make(map[string]Detector),
		workers:   defaultWorkers,
		logger:    log,
	}
}

// SetWorkers bounds the detector fan-out concurrency. Values below 1 reset
// to the default.
func (r *Registry) SetWorkers(n int) {
	if n < 1 {
		n = defaultWorkers
	}
	r.mu.Lock()
	r.workers = n
	r.mu.Unlock()
}

// Register adds a detector under its unique identifier.
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := d.ID()
	if _, exists := r.detectors[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, id)
	}
	r.detectors[id] = d
	r.order = append(r.order, id)

	r.logger.Debug("Detector registered",
		zap.String("detector", id),
		zap.String("class", d.Class().String()),
	)
	return nil
}

// Unregister removes a detector by identifier. Unknown identifiers are a
// no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.detectors[id]; !exists {
		return
	}
	delete(r.detectors, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Detector, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.detectors[id])
	}
	return out
}

// RunAll invokes every registered detector against the unit and concatenates
// results. A detector that fails (error or panic) never aborts the others:
// its findings are dropped and the failure is returned alongside the
// successful results. Partial coverage beats a crashed pipeline.
func (r *Registry) RunAll(ctx context.Context, unit Unit) ([]Finding, []DetectorError) {
	detectors := r.Detectors()
	r.mu.RLock()
	workers := r.workers
	r.mu.RUnlock()

	if len(detectors) == 0 {
		return nil, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		findings []Finding
		failures []DetectorError
	)

	sem := make(chan struct{}, workers)
	for _, d := range detectors {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(d Detector) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					failures = append(failures, DetectorError{
						Detector: d.ID(),
						Err:      fmt.Errorf("panic: %v", rec),
					})
					mu.Unlock()
					r.logger.Error("Detector panicked",
						zap.String("detector", d.ID()),
						zap.Any("panic", rec),
					)
				}
			}()

			found, err := d.Detect(unit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, DetectorError{Detector: d.ID(), Err: err})
				r.logger.Warn("Detector failed, findings dropped",
					zap.String("detector", d.ID()),
					zap.Error(err),
				)
				return
			}
			findings = append(findings, found...)
		}(d)
	}
	wg.Wait()

	// Deterministic output regardless of goroutine scheduling.
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Detector < b.Detector
	})
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Detector < failures[j].Detector
	})

	return findings, failures
}
