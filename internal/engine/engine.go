package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/esungul/UniveralValidator/internal/aggregate"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// DefaultMaxConcurrent bounds how many subscribers a batch validates at
// once.
const DefaultMaxConcurrent = 5

// RuleSource hands out the active RuleSet. *rules.Registry implements it.
type RuleSource interface {
	Current() *rules.RuleSet
}

// Engine runs validations against the active RuleSet.
//
// Thread-safety: every method is safe for concurrent use. A run reads the
// RuleSet once at its start, so a reload during a batch never mixes two
// rule sets within one run.
type Engine struct {
	rules         RuleSource
	logger        *slog.Logger
	runIDs        RunIDGenerator
	now           func() time.Time
	maxConcurrent int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxConcurrent bounds batch fan-out. Values below 1 are ignored.
func WithMaxConcurrent(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// WithRunIDs sets the run id generator. The default is UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.runIDs = gen
		}
	}
}

// WithClock sets the clock used to stamp runs.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine reading rules from src.
func New(src RuleSource, opts ...EngineOption) *Engine {
	e := &Engine{
		rules:         src,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		runIDs:        UUIDv7Generator{},
		now:           time.Now,
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is the output of one batch.
type Run struct {
	ID            string                `json:"run_id"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	RuleSetDigest string                `json:"ruleset_digest"`
	EngineVersion string                `json:"engine_version"`
	Results       []ir.ValidationResult `json:"results"`
	Summary       aggregate.Summary     `json:"summary"`
}

// Validate validates a single snapshot as a run of one.
func (e *Engine) Validate(ctx context.Context, snap ir.Snapshot) ir.ValidationResult {
	return e.ValidateAll(ctx, []ir.Snapshot{snap}).Results[0]
}

// ValidateAll validates every snapshot concurrently, at most
// maxConcurrent at a time.
//
// There is exactly one result per snapshot, in input order. A failure in
// one subscriber's data (including a panic) only affects that subscriber's
// result. Snapshots not started before ctx is done get a CANCELLED result.
// Every result carries the run id.
func (e *Engine) ValidateAll(ctx context.Context, snaps []ir.Snapshot) Run {
	rs := e.rules.Current()
	run := Run{
		ID:            e.runIDs.Generate(),
		StartedAt:     e.now(),
		RuleSetDigest: rs.Digest(),
		EngineVersion: ir.EngineVersion,
		Results:       make([]ir.ValidationResult, len(snaps)),
	}
	log := e.logger.With("run_id", run.ID)
	log.Info("batch started", "subscribers", len(snaps), "max_concurrent", e.maxConcurrent, "ruleset", rs.Digest())

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, snap := range snaps {
		if ctx.Err() != nil {
			run.Results[i] = cancelled(snap.Subscriber, ctx.Err())
			continue
		}
		g.Go(func() error {
			run.Results[i] = e.validateOne(ctx, snap, rs)
			return nil
		})
	}
	_ = g.Wait()

	for i := range run.Results {
		run.Results[i].RunID = run.ID
		if r := run.Results[i]; r.Error != nil {
			log.Warn("subscriber not validated", "subscriber", r.Subscriber, "code", r.Error.Code, "error", r.Error.Message)
		}
	}
	run.Summary = aggregate.Summarize(run.Results)
	run.FinishedAt = e.now()

	log.Info("batch finished",
		"total", run.Summary.Total,
		"passed", run.Summary.Passed,
		"failed", run.Summary.Failed,
		"errors", run.Summary.Errors,
		"success_rate", run.Summary.SuccessRate,
	)
	return run
}

func (e *Engine) validateOne(ctx context.Context, snap ir.Snapshot, rs *rules.RuleSet) (result ir.ValidationResult) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("validation panicked", "subscriber", snap.Subscriber, "panic", p, "stack", string(debug.Stack()))
			result = seal(errorResult(snap.Subscriber, 0, &RuntimeError{
				Code:       ErrCodeInternal,
				Subscriber: snap.Subscriber,
				Err:        fmt.Errorf("panic: %v", p),
			}))
		}
	}()
	if err := ctx.Err(); err != nil {
		return cancelled(snap.Subscriber, err)
	}
	return Validate(snap.Subscriber, snap.Orders, snap.Assets, rs)
}

func cancelled(subscriber string, err error) ir.ValidationResult {
	return seal(errorResult(subscriber, 0, &RuntimeError{
		Code:       ErrCodeCancelled,
		Subscriber: subscriber,
		Err:        err,
	}))
}
