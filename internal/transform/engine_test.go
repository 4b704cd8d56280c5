package transform_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/internal/registry"
	"github.com/cuong/dayetl/internal/transform"
)

func newCtx() *etlcontext.ETLContext {
	return etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
}

func TestEngine_TransformsAllTags(t *testing.T) {
	reg := registry.NewTransformerRegistry()
	reg.Register(transform.ClickTransformer{})
	reg.Register(transform.OrderTransformer{})

	ec := newCtx()
	ec.AppendExtracted([]model.SourceRecord{
		model.ClickEvent{EventID: "e1", UserID: "u1"},
		model.OrderEvent{OrderID: "o1", UserID: "u1", AmountCents: 100},
		model.ClickEvent{EventID: "e2", UserID: "u2"},
	})

	eng := transform.New(reg)
	require.NoError(t, eng.Run(context.Background(), ec))
	require.Equal(t, 3, ec.TransformedCount)
}

func TestEngine_NoDataFails(t *testing.T) {
	reg := registry.NewTransformerRegistry()
	ec := newCtx()
	eng := transform.New(reg)

	err := eng.Run(context.Background(), ec)
	require.Error(t, err)
}

func TestEngine_UnregisteredTagFailsFast(t *testing.T) {
	reg := registry.NewTransformerRegistry()
	ec := newCtx()
	ec.AppendExtracted([]model.SourceRecord{model.ClickEvent{EventID: "e1"}})

	eng := transform.New(reg)
	err := eng.Run(context.Background(), ec)
	require.Error(t, err)
}
