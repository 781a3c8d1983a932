package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/policy"
	"github.com/raaihank/data-sentinel/internal/transform"
)

// Result is the outcome of scrubbing one text unit.
type Result struct {
	RunID    string          `json:"run_id"`
	Output   string          `json:"output"`
	Entries  []audit.Entry   `json:"entries"`
	Findings []detect.Finding `json:"findings,omitempty"`
	CacheHit bool            `json:"cache_hit,omitempty"`
}

// RecordResult is the outcome of scrubbing one structured record.
type RecordResult struct {
	RunID   string            `json:"run_id"`
	Record  map[string]string `json:"record"`
	Entries []audit.Entry     `json:"entries"`
}

// Orchestrator runs the scan → reconcile → resolve → transform → splice
// sequence. Detection fans out across the registry, the active policy model
// is read once per unit, and every reconciled finding produces exactly one
// audit entry, allow decisions included.
type Orchestrator struct {
	registry *detect.Registry
	store    *policy.Store
	sink     audit.Sink
	cache    *cache.ResultCache
	log      *logger.Logger
}

// New wires an orchestrator. The sink may be nil when no audit trail is
// wanted (tests); the cache is attached separately.
func New(registry *detect.Registry, store *policy.Store, sink audit.Sink, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		sink:     sink,
		log:      log.WithComponent("pipeline"),
	}
}

// WithCache attaches an optional scan-result cache. A cache hit skips
// detection entirely and does not re-emit audit entries; the original run
// already recorded them.
func (o *Orchestrator) WithCache(c *cache.ResultCache) *Orchestrator {
	o.cache = c
	return o
}

// ProcessText scrubs free text under the active policy.
func (o *Orchestrator) ProcessText(ctx context.Context, text string, rctx policy.Context) (*Result, error) {
	runID := uuid.NewString()
	model := o.store.Current()

	var cacheKey string
	if o.cache != nil {
		cacheKey = o.cache.Key(model.Fingerprint(), rctx.Dataset, rctx.Role, rctx.Field, text)
		if hit, _ := o.cache.Get(ctx, cacheKey); hit != nil {
			return &Result{RunID: runID, Output: hit.Output, Entries: hit.Entries, CacheHit: true}, nil
		}
	}

	result, err := o.scrubUnit(ctx, runID, model, detect.Unit{Field: rctx.Field, Text: text}, rctx)
	if err != nil {
		return nil, err
	}

	if err := o.emit(ctx, result.Entries); err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.Put(ctx, cacheKey, &cache.CachedResult{Output: result.Output, Entries: result.Entries})
	}
	return result, nil
}

// ProcessRecord scrubs every field of a structured record. Field names feed
// both the schema-hint detector and field-scope policy resolution. Fields
// are visited in sorted order so the audit trail is stable.
func (o *Orchestrator) ProcessRecord(ctx context.Context, record map[string]string, rctx policy.Context) (*RecordResult, error) {
	runID := uuid.NewString()
	model := o.store.Current()

	fields := make([]string, 0, len(record))
	for name := range record {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	out := make(map[string]string, len(record))
	var entries []audit.Entry
	for _, name := range fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fctx := rctx
		fctx.Field = name
		res, err := o.scrubUnit(ctx, runID, model, detect.Unit{Field: name, Text: record[name]}, fctx)
		if err != nil {
			return nil, err
		}
		out[name] = res.Output
		entries = append(entries, res.Entries...)
	}

	if err := o.emit(ctx, entries); err != nil {
		return nil, err
	}
	return &RecordResult{RunID: runID, Record: out, Entries: entries}, nil
}

// ProcessBatch scrubs a sequence of text units, stopping at the first
// context cancellation. Results for units already processed remain valid
// and their audit entries stay written.
func (o *Orchestrator) ProcessBatch(ctx context.Context, texts []string, rctx policy.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("batch aborted at unit %d: %w", i, err)
		}
		res, err := o.ProcessText(ctx, text, rctx)
		if err != nil {
			return results, fmt.Errorf("batch unit %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// scrubUnit runs detection and transformation for one unit. Replacements
// are spliced from the highest offset down so earlier spans keep their
// original coordinates; audit entries come out in ascending offset order.
func (o *Orchestrator) scrubUnit(ctx context.Context, runID string, model *policy.Model, unit detect.Unit, rctx policy.Context) (*Result, error) {
	findings, failures := o.registry.RunAll(ctx, unit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range failures {
		o.log.Warn("detector failed",
			zap.String("run_id", runID),
			zap.String("detector", f.Detector),
			zap.Error(f.Err))
	}

	findings = detect.Reconcile(findings)

	type splice struct {
		span   detect.Span
		output string
	}
	now := time.Now().UTC()
	entries := make([]audit.Entry, 0, len(findings))
	splices := make([]splice, 0, len(findings))
	for _, f := range findings {
		fctx := rctx
		if f.Field != "" {
			fctx.Field = f.Field
		}
		resolved := model.Resolve(f, fctx)
		applied := transform.Apply(f, resolved)

		entries = append(entries, audit.Entry{
			RunID:      runID,
			Dataset:    rctx.Dataset,
			Field:      fctx.Field,
			Type:       f.Type,
			Action:     string(applied.Action),
			Reason:     applied.Reason,
			Detector:   f.Detector,
			Confidence: f.Confidence,
			Offset:     f.Span.Start,
			Length:     f.Span.End - f.Span.Start,
			Timestamp:  now,
		})
		if applied.Action != policy.ActionAllow {
			splices = append(splices, splice{span: f.Span, output: applied.Output})
		}
	}

	output := unit.Text
	for i := len(splices) - 1; i >= 0; i-- {
		s := splices[i]
		var b strings.Builder
		b.Grow(len(output) - (s.span.End - s.span.Start) + len(s.output))
		b.WriteString(output[:s.span.Start])
		b.WriteString(s.output)
		b.WriteString(output[s.span.End:])
		output = b.String()
	}

	return &Result{RunID: runID, Output: output, Entries: entries, Findings: findings}, nil
}

func (o *Orchestrator) emit(ctx context.Context, entries []audit.Entry) error {
	if o.sink == nil || len(entries) == 0 {
		return nil
	}
	if err := o.sink.Write(ctx, entries); err != nil {
		return fmt.Errorf("write audit entries: %w", err)
	}
	return nil
}
