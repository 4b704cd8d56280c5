// Package loader implements §4.5's ColumnarLoader: sort the transformed
// batch, route each record to its table, convert to column vectors, and
// batch-insert through the analytical store driver.
package loader

import (
	"context"
	"fmt"

	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/pkg/bucket"
)

// ColumnarLoader drives the four-step algorithm §4.5 describes, against
// a pluggable Store so tests can substitute a fake without a live
// ClickHouse instance.
type ColumnarLoader struct {
	store   contracts.Store
	routing *RoutingTable
}

// New returns a ColumnarLoader backed by the given store and routing
// table.
func New(store contracts.Store, routing *RoutingTable) *ColumnarLoader {
	return &ColumnarLoader{store: store, routing: routing}
}

// Run executes the full load for one day: sort, route, convert, insert.
// On success it sets ec.LoadedCount and ec.StoreHandle for Validate.
func (l *ColumnarLoader) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	if len(ec.TransformedData) == 0 {
		return etlerrors.New(etlerrors.KindLoad, etlerrors.StageLoad, "no transformed records to load")
	}

	sorted, err := sortRecords(ec.TransformedData, ec.Config.Loader, ec.Config.ScratchRoot, ec.AppendTempFile)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindLoad, etlerrors.StageLoad, "sort transformed batch", err)
	}

	byTable, order, err := l.routeByTable(sorted)
	if err != nil {
		return err
	}

	handle, err := l.store.Connect(ctx, ec.Config.Target.ConnectionString)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindLoad, etlerrors.StageLoad, "connect to store", err)
	}

	batchSize := ec.Config.Target.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	var loaded int
	for _, table := range order {
		records := byTable[table]
		if err := l.insertTable(ctx, handle, table, records, batchSize); err != nil {
			return err
		}
		loaded += len(records)
	}

	ec.StoreHandle = handle
	ec.LoadedCount = loaded
	return nil
}

// routeByTable groups the already-sorted records by destination table,
// preserving the sort order within each table's bucket, and returns the
// table names in first-seen order so insertion order is deterministic.
func (l *ColumnarLoader) routeByTable(sorted []model.TargetRecord) (map[string][]model.TargetRecord, []string, error) {
	byTable := make(map[string][]model.TargetRecord)
	var order []string
	for _, rec := range sorted {
		table, ok := l.routing.Lookup(rec.DataType())
		if !ok {
			return nil, nil, etlerrors.New(etlerrors.KindConfig, etlerrors.StageLoad,
				fmt.Sprintf("no routing entry for dataType %q", rec.DataType()))
		}
		if _, seen := byTable[table]; !seen {
			order = append(order, table)
		}
		byTable[table] = append(byTable[table], rec)
	}
	return byTable, order, nil
}

// insertTable drives records for one table through a Bucket configured
// with WorkerNum: 1, so batches reach the store in the same order the
// sort produced — any higher WorkerNum would let batches race each
// other through Store.InsertBatch and violate the §5 ordering guarantee.
func (l *ColumnarLoader) insertTable(ctx context.Context, handle contracts.Handle, table string, records []model.TargetRecord, batchSize int) error {
	b, err := bucket.New[model.TargetRecord](&bucket.Config{
		BatchSize: batchSize,
		WorkerNum: 1,
	})
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindLoad, etlerrors.StageLoad, "construct load bucket", err)
	}

	var insertErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		insertErr = b.Run(ctx, func(runCtx context.Context, items []model.TargetRecord) error {
			batch, err := toColumnBatch(table, items)
			if err != nil {
				return err
			}
			return l.store.InsertBatch(runCtx, handle, table, batch.columns, batch.columnVectors)
		})
	}()

	for _, rec := range records {
		b.Consume(rec)
	}
	b.Close()
	<-done

	if insertErr != nil {
		return etlerrors.Wrap(etlerrors.KindLoad, etlerrors.StageLoad, fmt.Sprintf("insert batch into %s", table), insertErr)
	}
	return nil
}
