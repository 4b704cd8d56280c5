package loader_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/loader"
	"github.com/cuong/dayetl/internal/model"
)

type fakeHandle struct{ closed bool }

func (h *fakeHandle) Close() error { h.closed = true; return nil }

type fakeStore struct {
	inserted map[string]int
	failTable string
}

func (s *fakeStore) Connect(ctx context.Context, connectionString string) (contracts.Handle, error) {
	return &fakeHandle{}, nil
}

func (s *fakeStore) ExecuteScript(ctx context.Context, h contracts.Handle, script string) error {
	return nil
}

func (s *fakeStore) InsertBatch(ctx context.Context, h contracts.Handle, table string, columnOrder []string, columns [][]any) error {
	if table == s.failTable {
		return fmt.Errorf("boom")
	}
	if s.inserted == nil {
		s.inserted = map[string]int{}
	}
	if len(columns) > 0 {
		s.inserted[table] += len(columns[0])
	}
	return nil
}

func (s *fakeStore) RunScalarQuery(ctx context.Context, h contracts.Handle, query string) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Close(h contracts.Handle) error { return h.Close() }

func newCtx() *etlcontext.ETLContext {
	return etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{
		Loader: config.LoaderConfig{MemoryBudgetBytes: 1 << 30, RecordSizeEstimate: 500},
		Target: config.TargetConfig{BatchSize: 10},
	})
}

func TestColumnarLoader_InsertsAllRecords(t *testing.T) {
	store := &fakeStore{}
	rt := loader.DefaultRoutingTable()
	l := loader.New(store, rt)

	ec := newCtx()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ec.SetTransformed([]model.TargetRecord{
		model.FactClick{EventID: "c1", ReceiveTime: base},
		model.FactOrder{OrderID: "o1", ReceiveTime: base.Add(time.Second)},
		model.FactClick{EventID: "c2", ReceiveTime: base.Add(2 * time.Second)},
	})

	err := l.Run(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, 3, ec.LoadedCount)
	require.Equal(t, 2, store.inserted["fact_click"])
	require.Equal(t, 1, store.inserted["fact_order"])
	require.NotNil(t, ec.StoreHandle)
}

func TestColumnarLoader_UnknownDataTypeFailsConfig(t *testing.T) {
	store := &fakeStore{}
	rt := loader.NewRoutingTable() // no registrations
	l := loader.New(store, rt)

	ec := newCtx()
	ec.SetTransformed([]model.TargetRecord{model.FactUser{UserID: "u1", ReceiveTime: time.Now()}})

	err := l.Run(context.Background(), ec)
	require.Error(t, err)
	require.Equal(t, etlerrors.KindConfig, etlerrors.KindOf(err))
}

func TestColumnarLoader_InsertFailurePropagates(t *testing.T) {
	store := &fakeStore{failTable: "fact_click"}
	rt := loader.DefaultRoutingTable()
	l := loader.New(store, rt)

	ec := newCtx()
	ec.SetTransformed([]model.TargetRecord{model.FactClick{EventID: "c1", ReceiveTime: time.Now()}})

	err := l.Run(context.Background(), ec)
	require.Error(t, err)
}

func TestColumnarLoader_EmptyInputFails(t *testing.T) {
	store := &fakeStore{}
	rt := loader.DefaultRoutingTable()
	l := loader.New(store, rt)

	ec := newCtx()
	err := l.Run(context.Background(), ec)
	require.Error(t, err)
}
