// Package contracts declares the external adapter interfaces spec.md §6
// pins down: the per-source Extractor sub-protocol, the Transformer
// contract, and the analytical Store driver. Concrete source connectors,
// field-mapping logic, and the store driver are black boxes behind these
// three interfaces; internal/extract, internal/transform, and
// internal/loader hold the concrete implementations, and
// internal/registry resolves extractors and transformers by type.
package contracts

import (
	"context"

	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/model"
)

// Payload wraps one extracted record with its error, adapted from the
// teacher's generic ETL framework (pkg/etl.Payload[E]): extractors stream
// records to the concurrent engine over a channel of Payload rather than
// returning a slice, so a mid-stream parse failure surfaces on the same
// channel as the records. The engine fails the whole source on the first
// such error and drops the records that source had already produced.
type Payload struct {
	Data model.SourceRecord
	Err  error
}

// Extractor is the four-step lifecycle §4.3.1 describes: Setup, Validate,
// Extract, Cleanup. Cleanup must run exactly once per task on every exit
// path (success, failure, cancellation) and must be idempotent.
type Extractor interface {
	Setup(ctx context.Context, ec *etlcontext.ETLContext) error
	Validate(ctx context.Context, ec *etlcontext.ETLContext) error
	Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan Payload, error)
	Cleanup() error
	Category() string
	Name() string
}

// Transformer maps exactly one source-model type to exactly one
// target-model type, one record at a time (§4.4) — unless the source
// model itself represents a pre-grouped batch, in which case a single
// source record may expand to several target records.
type Transformer interface {
	SourceType() string
	TargetType() string
	Transform(ctx context.Context, records []model.SourceRecord) ([]model.TargetRecord, error)
}

// Handle is the opaque connection a Store.Connect returns. It satisfies
// etlcontext.StoreHandle so it can be stored directly on the ETLContext.
type Handle interface {
	Close() error
}

// Store is the analytical-store driver contract (§6): connect, run a
// DDL/DML script, insert a columnar batch, run a scalar query, and close.
type Store interface {
	Connect(ctx context.Context, connectionString string) (Handle, error)
	ExecuteScript(ctx context.Context, h Handle, script string) error
	InsertBatch(ctx context.Context, h Handle, table string, columnOrder []string, columns [][]any) error
	RunScalarQuery(ctx context.Context, h Handle, query string) (int64, error)
	Close(h Handle) error
}
