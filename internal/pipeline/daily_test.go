package pipeline_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/cleaner"
	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/observability"
	"github.com/cuong/dayetl/internal/pipeline"
)

type stubStage struct {
	err error
	ran bool
}

func (s *stubStage) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	s.ran = true
	return s.err
}

func newCtx() *etlcontext.ETLContext {
	return etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
}

func TestDailyPipeline_RunsAllStagesInOrderOnSuccess(t *testing.T) {
	extractS, transformS, loadS, validateS := &stubStage{}, &stubStage{}, &stubStage{}, &stubStage{}
	p := pipeline.New(extractS, transformS, loadS, validateS, cleaner.New(observability.New()), observability.New())

	ec := newCtx()
	err := p.Run(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, extractS.ran)
	require.True(t, transformS.ran)
	require.True(t, loadS.ran)
	require.True(t, validateS.ran)
	require.Equal(t, etlcontext.Completed, ec.CurrentStage)
	require.True(t, ec.CleanupPerformed)
}

func TestDailyPipeline_StopsAtFirstFailure(t *testing.T) {
	extractS := &stubStage{}
	transformS := &stubStage{err: fmt.Errorf("transform blew up")}
	loadS, validateS := &stubStage{}, &stubStage{}
	p := pipeline.New(extractS, transformS, loadS, validateS, cleaner.New(observability.New()), observability.New())

	ec := newCtx()
	err := p.Run(context.Background(), ec)
	require.Error(t, err)
	require.True(t, extractS.ran)
	require.True(t, transformS.ran)
	require.False(t, loadS.ran)
	require.False(t, validateS.ran)
	require.Equal(t, etlcontext.Failed, ec.CurrentStage)
	require.True(t, ec.CleanupPerformed)
}
