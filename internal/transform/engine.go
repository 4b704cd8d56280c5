// Package transform implements the concurrent transformation engine
// (spec.md §4.4): partition extractedData by source-model tag, dispatch
// one worker per non-empty tag bucket to its registered Transformer, and
// fail fast on the first error.
package transform

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/internal/registry"
)

// Engine runs the concurrent transformation stage.
type Engine struct {
	registry *registry.TransformerRegistry
}

// New builds a transformation engine backed by reg.
func New(reg *registry.TransformerRegistry) *Engine {
	return &Engine{registry: reg}
}

// Run executes the stage against ec, reading ec.ExtractedData and writing
// ec.TransformedData/TransformedCount.
func (e *Engine) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	buckets := partition(ec.ExtractedData)
	if len(buckets) == 0 {
		return etlerrors.New(etlerrors.KindTransform, etlerrors.StageTransform, "no data")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(buckets))

	outputs := make([][]model.TargetRecord, len(buckets))
	tags := make([]string, 0, len(buckets))
	for tag := range buckets {
		tags = append(tags, tag)
	}

	for i, tag := range tags {
		i, tag := i, tag
		g.Go(func() error {
			transformer, err := e.registry.Lookup(tag)
			if err != nil {
				return err
			}
			out, err := transformer.Transform(gctx, buckets[tag])
			if err != nil {
				return fmt.Errorf("transform tag %q: %w", tag, err)
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return etlerrors.Wrap(etlerrors.KindTransform, etlerrors.StageTransform, "transform failed", err)
	}

	var all []model.TargetRecord
	for _, out := range outputs {
		all = append(all, out...)
	}
	ec.SetTransformed(all)

	return nil
}

// partition groups records by SourceType, preserving each tag's
// insertion order (§4.4 step 1). Map iteration order over the result is
// unspecified, matching "tag order unspecified" in §4.4 step 5.
func partition(records []model.SourceRecord) map[string][]model.SourceRecord {
	buckets := make(map[string][]model.SourceRecord)
	for _, r := range records {
		tag := r.SourceType()
		buckets[tag] = append(buckets[tag], r)
	}
	return buckets
}
