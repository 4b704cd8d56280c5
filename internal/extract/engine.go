// Package extract implements the concurrent extraction engine (spec.md
// §4.3): a bounded worker pool fanning out across all configured sources,
// a global timeout, result aggregation, and all-failed/partial-failure
// classification.
package extract

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/internal/observability"
	"github.com/cuong/dayetl/internal/registry"
)

// Engine runs the concurrent extraction stage.
type Engine struct {
	registry *registry.ExtractorRegistry
	log      observability.Logger
}

// New builds an extraction engine backed by reg.
func New(reg *registry.ExtractorRegistry, log observability.Logger) *Engine {
	return &Engine{registry: reg, log: log}
}

// taskResult is the private, per-task outcome the engine joins back into
// the ETLContext single-threaded after every task has finished.
type taskResult struct {
	source  string
	records []model.SourceRecord
	err     error
}

// Run executes the stage against ec. Precondition: ec.Config.Sources has
// at least one entry (empty sources is an InputError, §4.3 step 1).
func (e *Engine) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	sources := ec.Config.Sources
	if len(sources) == 0 {
		return etlerrors.New(etlerrors.KindInput, etlerrors.StageExtract, "no sources configured")
	}

	timeoutSeconds := ec.Config.Loader.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 1800
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	workerPool := len(sources)
	if max := 2 * runtime.NumCPU(); workerPool > max {
		workerPool = max
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workerPool)

	results := make(chan taskResult, len(sources))

	for _, sc := range sources {
		sc := sc
		g.Go(func() error {
			records, err := e.runOne(gctx, ec, sc)
			results <- taskResult{source: sc.Name, records: records, err: err}
			return nil // task errors are aggregated below, not propagated through errgroup
		})
	}

	_ = g.Wait() // task errors are aggregated via results, not propagated through errgroup
	close(results)

	var errs []error
	total := 0
	for r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", r.source, r.err))
			continue
		}
		ec.AppendExtracted(r.records)
		total += len(r.records)
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return etlerrors.Wrap(etlerrors.KindTimeout, etlerrors.StageExtract,
			fmt.Sprintf("extraction exceeded %ds timeout", timeoutSeconds), runCtx.Err())
	}
	// Checked directly against runCtx, not against an errgroup error: every
	// g.Go closure swallows its task error into results (see above), so
	// g.Wait() itself never reports a cancellation.
	if runCtx.Err() == context.Canceled {
		return etlerrors.Wrap(etlerrors.KindCancelled, etlerrors.StageExtract, "extraction cancelled", runCtx.Err())
	}

	if len(errs) > 0 {
		if total == 0 {
			return etlerrors.Wrap(etlerrors.KindSource, etlerrors.StageExtract,
				"all extractors failed", errs[0])
		}
		// Partial success: log and continue, per §4.3 step 6 / §7.
		e.log.Warn(observability.Event{
			Category:     "extract",
			Event:        "partial_extract_failure",
			SourceCount:  len(sources),
			SuccessCount: len(sources) - len(errs),
			FailureCount: len(errs),
			TotalRecords: total,
			ErrorDetails: errs[0].Error(),
		})
	}

	return nil
}

// runOne drives one source's full lifecycle: setup -> validate -> extract
// -> cleanup, with cleanup guaranteed on every exit path.
func (e *Engine) runOne(ctx context.Context, ec *etlcontext.ETLContext, sc config.SourceConfig) ([]model.SourceRecord, error) {
	extractor, err := e.registry.New(sc, ec.Config.ScratchRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = extractor.Cleanup()
	}()

	if err := extractor.Setup(ctx, ec); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	if err := extractor.Validate(ctx, ec); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	ch, err := extractor.Extract(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var records []model.SourceRecord
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return records, nil
			}
			if payload.Err != nil {
				return nil, payload.Err
			}
			records = append(records, payload.Data)
		}
	}
}
