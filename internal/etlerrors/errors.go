// Package etlerrors declares the stage-tagged error kinds the pipeline and
// orchestrator use to classify failures and pick an exit code.
package etlerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which family of failure occurred, independent of which
// stage raised it. The CLI maps Kind to an exit code.
type Kind int

const (
	// KindInput covers invalid CLI arguments or date ranges.
	KindInput Kind = iota
	// KindConfig covers missing/unparseable config, unregistered
	// extractor/transformer types, or unknown target tables.
	KindConfig
	// KindConcurrency covers the process lock being held by another run.
	KindConcurrency
	// KindSource covers any extractor-side failure.
	KindSource
	// KindTransform covers any transformer-side failure.
	KindTransform
	// KindLoad covers store connect, script-execute, or batch-insert failure.
	KindLoad
	// KindValidation covers a row-count mismatch or a query failure during Validate.
	KindValidation
	// KindTimeout covers a stage that exceeded its deadline.
	KindTimeout
	// KindCancelled covers a stage aborted by context cancellation.
	KindCancelled
	// KindUnexpected is the catch-all for anything not otherwise classified.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindConfig:
		return "ConfigError"
	case KindConcurrency:
		return "ConcurrencyError"
	case KindSource:
		return "SourceError"
	case KindTransform:
		return "TransformError"
	case KindLoad:
		return "LoadError"
	case KindValidation:
		return "ValidationError"
	case KindTimeout:
		return "TimeoutError"
	case KindCancelled:
		return "CancelledError"
	default:
		return "UnexpectedError"
	}
}

// Stage names a pipeline stage for error attribution. Kept as a plain string
// alias (rather than importing etlcontext) so this package has no
// dependencies other than the standard library.
type Stage string

const (
	StageExtract  Stage = "EXTRACT"
	StageTransform Stage = "TRANSFORM"
	StageLoad     Stage = "LOAD"
	StageValidate Stage = "VALIDATE"
	StageClean    Stage = "CLEAN"
	StageNone     Stage = ""
)

// StageError is the error type every stage returns on failure. It carries
// enough context for DailyPipeline to attach {date, stage, cause} to the
// day result and for the CLI to pick an exit code from Kind.
type StageError struct {
	Kind  Kind
	Stage Stage
	Msg   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Stage, e.Msg)
}

func (e *StageError) Unwrap() error { return e.Err }

// New builds a StageError with no wrapped cause.
func New(kind Kind, stage Stage, msg string) *StageError {
	return &StageError{Kind: kind, Stage: stage, Msg: msg}
}

// Wrap builds a StageError around an existing error.
func Wrap(kind Kind, stage Stage, msg string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Msg: msg, Err: err}
}

// As is a thin re-export of errors.As so callers don't need both imports
// to classify an error returned from a stage.
func As(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) a *StageError, else
// KindUnexpected.
func KindOf(err error) Kind {
	if se, ok := As(err); ok {
		return se.Kind
	}
	return KindUnexpected
}
