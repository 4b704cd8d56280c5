// Package pipeline implements DailyPipeline (spec.md §3/§5): the
// strictly sequential Extract -> Transform -> Load -> Validate -> Clean
// driver for a single day's ETLContext.
package pipeline

import (
	"context"

	"github.com/cuong/dayetl/internal/cleaner"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/observability"
)

// Stage is any of the pipeline's four non-Clean stages, run in order by
// DailyPipeline.
type Stage interface {
	Run(ctx context.Context, ec *etlcontext.ETLContext) error
}

// DailyPipeline owns one day's run from NotStarted through Completed or
// Failed. It is the sole caller of ETLContext.Advance and
// CheckInvariants, since it is the only component with the whole
// ordering picture.
type DailyPipeline struct {
	extract   Stage
	transform Stage
	load      Stage
	validate  Stage
	clean     *cleaner.Cleaner
	log       observability.Logger
}

// New builds a DailyPipeline from its five stage implementations.
func New(extract, transform, load, validate Stage, clean *cleaner.Cleaner, log observability.Logger) *DailyPipeline {
	return &DailyPipeline{extract: extract, transform: transform, load: load, validate: validate, clean: clean, log: log}
}

// Run drives ec through every stage in order, stopping at the first
// failure. Clean always runs on the way out once Extract has begun,
// per §4.7; it never overwrites a Validate failure's verdict, it only
// releases resources.
func (p *DailyPipeline) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	runErr := p.runStages(ctx, ec)

	if runErr != nil {
		_ = ec.Advance(etlcontext.Failed)
	} else {
		_ = ec.Advance(etlcontext.Completed)
	}

	p.clean.Run(ec)

	return runErr
}

func (p *DailyPipeline) runStages(ctx context.Context, ec *etlcontext.ETLContext) error {
	if err := ec.Advance(etlcontext.Extract); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageNone, "advance to extract", err)
	}
	if err := p.extract.Run(ctx, ec); err != nil {
		return err
	}
	if err := ec.CheckInvariants(); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageExtract, "post-extract invariant check", err)
	}

	if err := ec.Advance(etlcontext.Transform); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageNone, "advance to transform", err)
	}
	if err := p.transform.Run(ctx, ec); err != nil {
		return err
	}
	if err := ec.CheckInvariants(); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageTransform, "post-transform invariant check", err)
	}

	if err := ec.Advance(etlcontext.Load); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageNone, "advance to load", err)
	}
	if err := p.load.Run(ctx, ec); err != nil {
		return err
	}
	if err := ec.CheckInvariants(); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageLoad, "post-load invariant check", err)
	}

	if err := ec.Advance(etlcontext.Validate); err != nil {
		return etlerrors.Wrap(etlerrors.KindUnexpected, etlerrors.StageNone, "advance to validate", err)
	}
	if err := p.validate.Run(ctx, ec); err != nil {
		return err
	}

	return nil
}
