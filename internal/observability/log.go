// Package observability emits the structured JSON event log §6 requires:
// {timestamp, level, category, event, sourceCount, successCount,
// failureCount, totalRecords, durationMs, errorDetails}.
package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog so stage code never builds the event JSON by hand;
// every call site names a category and an event, matching the shape of
// the teacher's plain fmt.Printf progress lines but structured.
type Logger struct {
	z zerolog.Logger
}

// New returns a Logger writing JSON records to os.Stdout.
func New() Logger {
	zerolog.TimestampFieldName = "timestamp"
	z := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return Logger{z: z}
}

// Event describes one structured log line. Zero-value optional fields are
// omitted from the JSON output.
type Event struct {
	Category     string
	Event        string
	SourceCount  int
	SuccessCount int
	FailureCount int
	TotalRecords int
	Duration     time.Duration
	ErrorDetails string
}

func (l Logger) emit(level zerolog.Level, e Event) {
	ev := l.z.WithLevel(level).Str("category", e.Category).Str("event", e.Event)
	if e.SourceCount != 0 {
		ev = ev.Int("sourceCount", e.SourceCount)
	}
	if e.SuccessCount != 0 {
		ev = ev.Int("successCount", e.SuccessCount)
	}
	if e.FailureCount != 0 {
		ev = ev.Int("failureCount", e.FailureCount)
	}
	if e.TotalRecords != 0 {
		ev = ev.Int("totalRecords", e.TotalRecords)
	}
	if e.Duration != 0 {
		ev = ev.Int64("durationMs", e.Duration.Milliseconds())
	}
	if e.ErrorDetails != "" {
		ev = ev.Str("errorDetails", e.ErrorDetails)
	}
	ev.Send()
}

// Info emits at INFO level.
func (l Logger) Info(e Event) { l.emit(zerolog.InfoLevel, e) }

// Warn emits at WARN level (used for partial-failure and cleanup
// warnings, which never fail the day).
func (l Logger) Warn(e Event) { l.emit(zerolog.WarnLevel, e) }

// Error emits at ERROR level.
func (l Logger) Error(e Event) { l.emit(zerolog.ErrorLevel, e) }
