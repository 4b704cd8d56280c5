package validator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/loader"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/internal/validator"
)

type fakeHandle struct{}

func (fakeHandle) Close() error { return nil }

type fakeStore struct{ count int64 }

func (s *fakeStore) Connect(ctx context.Context, cs string) (contracts.Handle, error) {
	return fakeHandle{}, nil
}
func (s *fakeStore) ExecuteScript(ctx context.Context, h contracts.Handle, script string) error {
	return nil
}
func (s *fakeStore) InsertBatch(ctx context.Context, h contracts.Handle, table string, columnOrder []string, columns [][]any) error {
	return nil
}
func (s *fakeStore) RunScalarQuery(ctx context.Context, h contracts.Handle, query string) (int64, error) {
	return s.count, nil
}
func (s *fakeStore) Close(h contracts.Handle) error { return h.Close() }

func newCtx(storeHandle etlcontext.StoreHandle, transformed, extracted int) *etlcontext.ETLContext {
	ec := etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
	ec.StoreHandle = storeHandle
	ec.TransformedCount = transformed
	ec.ExtractedCount = extracted
	ec.SetTransformed([]model.TargetRecord{model.FactClick{EventID: "c1", ReceiveTime: time.Now()}})
	return ec
}

func TestValidator_PassesOnMatch(t *testing.T) {
	store := &fakeStore{count: 1}
	rt := loader.DefaultRoutingTable()
	v := validator.New(store, rt, "receive_time")

	ec := newCtx(fakeHandle{}, 1, 1)
	err := v.Run(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, etlcontext.True, ec.ValidationPassed)
}

func TestValidator_FailsOnMismatch(t *testing.T) {
	store := &fakeStore{count: 5}
	rt := loader.DefaultRoutingTable()
	v := validator.New(store, rt, "receive_time")

	ec := newCtx(fakeHandle{}, 1, 1)
	err := v.Run(context.Background(), ec)
	require.Error(t, err)
	require.Equal(t, etlcontext.False, ec.ValidationPassed)
	require.NotEmpty(t, ec.ValidationErrors)
}

func TestValidator_MissingStoreHandleFails(t *testing.T) {
	store := &fakeStore{count: 1}
	rt := loader.DefaultRoutingTable()
	v := validator.New(store, rt, "receive_time")

	ec := newCtx(nil, 1, 1)
	err := v.Run(context.Background(), ec)
	require.Error(t, err)
}
