// Package orchestrator implements RangeOrchestrator (spec.md §4.1): the
// top-level driver that walks a closed date range day by day, handing
// each day to DailyPipeline and stopping at the first failure.
package orchestrator

import (
	"context"
	"time"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
)

// DailyPipeline is the subset of pipeline.DailyPipeline the orchestrator
// depends on, declared locally to avoid an import from orchestrator back
// into pipeline's concrete type.
type DailyPipeline interface {
	Run(ctx context.Context, ec *etlcontext.ETLContext) error
}

// FirstFailure names the first day and stage that failed a range run.
type FirstFailure struct {
	Date    time.Time
	Stage   etlerrors.Stage
	Message string
}

// Summary is the aggregate result §4.1 documents.
type Summary struct {
	TotalDays    int
	SuccessDays  int
	TotalRecords int
	FirstFailure *FirstFailure
	StartTime    time.Time
	EndTime      time.Time
}

// RangeOrchestrator drives one DailyPipeline across an inclusive date
// range, one fresh ETLContext per day.
type RangeOrchestrator struct {
	pipeline DailyPipeline
	cfg      *config.Config
}

// New returns a RangeOrchestrator that runs pipeline against cfg for
// each day in a range.
func New(pipeline DailyPipeline, cfg *config.Config) *RangeOrchestrator {
	return &RangeOrchestrator{pipeline: pipeline, cfg: cfg}
}

// Run iterates from..to inclusive, in order, stopping at the first day
// that fails. from/to are truncated to UTC midnight so date arithmetic
// is unambiguous.
func (o *RangeOrchestrator) Run(ctx context.Context, from, to time.Time) (Summary, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)

	if from.After(to) {
		return Summary{}, etlerrors.New(etlerrors.KindInput, etlerrors.StageNone, "fromDate must not be after toDate")
	}

	summary := Summary{StartTime: time.Now()}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		summary.TotalDays++

		ec := etlcontext.New(day, o.cfg)
		err := o.pipeline.Run(ctx, ec)
		summary.TotalRecords += ec.LoadedCount

		if err != nil {
			se, _ := etlerrors.As(err)
			stage := etlerrors.StageNone
			msg := err.Error()
			if se != nil {
				stage = se.Stage
				msg = se.Error()
			}
			summary.FirstFailure = &FirstFailure{Date: day, Stage: stage, Message: msg}
			summary.EndTime = time.Now()
			return summary, err
		}

		summary.SuccessDays++
	}

	summary.EndTime = time.Now()
	return summary, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
