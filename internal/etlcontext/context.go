// Package etlcontext defines ETLContext, the single-writer carrier of all
// inter-stage state for one day's pipeline run (spec.md §3).
package etlcontext

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/model"
)

// Stage is the pipeline's current position. Stage values only ever
// advance forward (NotStarted -> ... -> Completed, or -> Failed from any
// in-progress stage); DailyPipeline is the sole writer of CurrentStage and
// enforces that ordering.
type Stage int

const (
	NotStarted Stage = iota
	Extract
	Transform
	Load
	Validate
	Clean
	Completed
	Failed
)

func (s Stage) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Extract:
		return "EXTRACT"
	case Transform:
		return "TRANSFORM"
	case Load:
		return "LOAD"
	case Validate:
		return "VALIDATE"
	case Clean:
		return "CLEAN"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TriState models validationPassed's unset/true/false states explicitly,
// rather than overloading a bool with a sentinel zero value.
type TriState int

const (
	Unset TriState = iota
	True
	False
)

// StoreHandle is the opaque analytical-store connection Load establishes
// and Clean releases. It is declared here as a minimal interface rather
// than importing the loader package, so etlcontext has no dependency on
// any concrete store driver.
type StoreHandle interface {
	Close() error
}

// ETLContext is created fresh per day by RangeOrchestrator and owned by
// DailyPipeline for the day's duration; stage code receives it by pointer and mutates it
// directly under the single-writer discipline §5 requires — concurrent
// extract/transform tasks write into private per-task buffers and hand
// them back for a single-threaded append, guarded by mu only for that
// append (see AppendExtracted/AppendTempFile).
type ETLContext struct {
	mu sync.Mutex

	CurrentDate time.Time
	Config      *config.Config
	CurrentStage Stage

	ExtractedData   []model.SourceRecord
	TransformedData []model.TargetRecord

	ExtractedCount   int
	TransformedCount int
	LoadedCount      int

	ValidationPassed TriState
	ValidationErrors []string

	TempFiles []string

	StoreHandle      StoreHandle
	CleanupPerformed bool

	StartTime time.Time
	EndTime   time.Time
}

// New creates a fresh per-day context. RangeOrchestrator calls this once
// per date in the range.
func New(date time.Time, cfg *config.Config) *ETLContext {
	return &ETLContext{
		CurrentDate:  date,
		Config:       cfg,
		CurrentStage: NotStarted,
		StartTime:    time.Now(),
	}
}

// AppendExtracted is the single join point concurrent extract tasks funnel
// their private batches through; the append itself is serialized so it is
// safe to call from multiple goroutines, but the engine must still only
// call it after a task has fully finished producing its batch (§5).
func (c *ETLContext) AppendExtracted(records []model.SourceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ExtractedData = append(c.ExtractedData, records...)
	c.ExtractedCount += len(records)
}

// AppendTempFile records a scratch path for Clean to remove later.
// Concurrent extractors append distinct paths; the append is serialized.
func (c *ETLContext) AppendTempFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TempFiles = append(c.TempFiles, path)
}

// SetTransformed installs the Transform stage's output and count. Called
// once, single-threaded, by the transform engine's join point.
func (c *ETLContext) SetTransformed(records []model.TargetRecord) {
	c.TransformedData = records
	c.TransformedCount = len(records)
}

// Advance moves CurrentStage forward, refusing to regress. DailyPipeline
// is the only caller.
func (c *ETLContext) Advance(next Stage) error {
	if next < c.CurrentStage && next != Failed {
		return fmt.Errorf("etlcontext: illegal regression from %s to %s", c.CurrentStage, next)
	}
	c.CurrentStage = next
	if next == Failed || next == Completed {
		c.EndTime = time.Now()
	}
	return nil
}

// CheckInvariants asserts the §3 count invariants hold. DailyPipeline
// calls this after each stage that mutates counts so a violation surfaces
// immediately at its source rather than downstream in Validate.
func (c *ETLContext) CheckInvariants() error {
	if c.TransformedCount < 0 || c.TransformedCount > c.ExtractedCount {
		return fmt.Errorf("etlcontext: invariant violated: 0 <= transformedCount(%d) <= extractedCount(%d)", c.TransformedCount, c.ExtractedCount)
	}
	if c.LoadedCount < 0 || c.LoadedCount > c.TransformedCount {
		return fmt.Errorf("etlcontext: invariant violated: 0 <= loadedCount(%d) <= transformedCount(%d)", c.LoadedCount, c.TransformedCount)
	}
	return nil
}
