package extract_test

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/extract"
	"github.com/cuong/dayetl/internal/model"
	"github.com/cuong/dayetl/internal/observability"
	"github.com/cuong/dayetl/internal/registry"
)

// fakeRecord satisfies model.SourceRecord for tests without pulling in a
// real connector.
type fakeRecord struct{ tag string }

func (f fakeRecord) SourceType() string { return f.tag }

// fakeExtractor is a minimal contracts.Extractor stub driven by its fields,
// used to exercise the engine's concurrency and classification logic in
// isolation from any real source connector.
type fakeExtractor struct {
	name      string
	recordsN  int
	failExtract error
	inFlight  *atomic.Int32
	maxInFlight *atomic.Int32
}

func (f *fakeExtractor) Category() string { return "test" }
func (f *fakeExtractor) Name() string      { return f.name }
func (f *fakeExtractor) Setup(ctx context.Context, ec *etlcontext.ETLContext) error { return nil }
func (f *fakeExtractor) Validate(ctx context.Context, ec *etlcontext.ETLContext) error { return nil }
func (f *fakeExtractor) Cleanup() error { return nil }

func (f *fakeExtractor) Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan contracts.Payload, error) {
	ch := make(chan contracts.Payload, f.recordsN+1)
	if f.inFlight != nil {
		cur := f.inFlight.Add(1)
		for {
			old := f.maxInFlight.Load()
			if cur <= old || f.maxInFlight.CompareAndSwap(old, cur) {
				break
			}
		}
		defer f.inFlight.Add(-1)
	}
	if f.failExtract != nil {
		ch <- contracts.Payload{Err: f.failExtract}
		close(ch)
		return ch, nil
	}
	for i := 0; i < f.recordsN; i++ {
		ch <- contracts.Payload{Data: fakeRecord{tag: "t"}}
	}
	close(ch)
	return ch, nil
}

// blockingExtractor never produces a record; it blocks until its context
// is done, so tests can exercise the engine's timeout and cancellation
// paths without a real slow source.
type blockingExtractor struct{ name string }

func (b *blockingExtractor) Category() string                                            { return "test" }
func (b *blockingExtractor) Name() string                                                 { return b.name }
func (b *blockingExtractor) Setup(ctx context.Context, ec *etlcontext.ETLContext) error    { return nil }
func (b *blockingExtractor) Validate(ctx context.Context, ec *etlcontext.ETLContext) error { return nil }
func (b *blockingExtractor) Cleanup() error                                                { return nil }

func (b *blockingExtractor) Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan contracts.Payload, error) {
	ch := make(chan contracts.Payload)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func newCtx(t *testing.T, sources []config.SourceConfig) *etlcontext.ETLContext {
	t.Helper()
	return etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{
		Sources: sources,
		Loader:  config.LoaderConfig{TimeoutSeconds: 5},
	})
}

func TestEngine_AllSourcesSucceed(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	reg.Register("fakeA", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &fakeExtractor{name: sc.Name, recordsN: 3}, nil
	})

	ec := newCtx(t, []config.SourceConfig{{Name: "s1", Type: "fakeA"}, {Name: "s2", Type: "fakeA"}})
	eng := extract.New(reg, observability.New())

	err := eng.Run(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, 6, ec.ExtractedCount)
	require.Len(t, ec.ExtractedData, 6)
}

func TestEngine_PartialFailureSucceeds(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	reg.Register("ok", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &fakeExtractor{name: sc.Name, recordsN: 2}, nil
	})
	reg.Register("bad", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &fakeExtractor{name: sc.Name, failExtract: fmt.Errorf("boom")}, nil
	})

	ec := newCtx(t, []config.SourceConfig{{Name: "s1", Type: "ok"}, {Name: "s2", Type: "bad"}})
	eng := extract.New(reg, observability.New())

	err := eng.Run(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, 2, ec.ExtractedCount)
}

func TestEngine_AllFail(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	reg.Register("bad", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &fakeExtractor{name: sc.Name, failExtract: fmt.Errorf("boom")}, nil
	})

	ec := newCtx(t, []config.SourceConfig{{Name: "s1", Type: "bad"}, {Name: "s2", Type: "bad"}})
	eng := extract.New(reg, observability.New())

	err := eng.Run(context.Background(), ec)
	require.Error(t, err)
	require.Equal(t, 0, ec.ExtractedCount)
}

func TestEngine_EmptySourcesIsInputError(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	ec := newCtx(t, nil)
	eng := extract.New(reg, observability.New())

	err := eng.Run(context.Background(), ec)
	require.Error(t, err)
	require.Equal(t, etlerrors.KindInput, etlerrors.KindOf(err))
}

func TestEngine_TimeoutFailsWithTimeoutKind(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	reg.Register("blocking", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &blockingExtractor{name: sc.Name}, nil
	})

	ec := etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{
		Sources: []config.SourceConfig{{Name: "s1", Type: "blocking"}},
		Loader:  config.LoaderConfig{TimeoutSeconds: 1},
	})
	eng := extract.New(reg, observability.New())

	start := time.Now()
	err := eng.Run(context.Background(), ec)
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, etlerrors.KindTimeout, etlerrors.KindOf(err))
}

func TestEngine_CancellationFailsWithCancelledKind(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	reg.Register("blocking", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &blockingExtractor{name: sc.Name}, nil
	})

	ec := newCtx(t, []config.SourceConfig{{Name: "s1", Type: "blocking"}})
	eng := extract.New(reg, observability.New())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := eng.Run(ctx, ec)
	require.Error(t, err)
	require.Equal(t, etlerrors.KindCancelled, etlerrors.KindOf(err))
}

func TestEngine_BoundsConcurrency(t *testing.T) {
	reg := registry.NewExtractorRegistry()
	inFlight := &atomic.Int32{}
	maxInFlight := &atomic.Int32{}
	reg.Register("fakeA", func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
		return &fakeExtractor{name: sc.Name, recordsN: 1, inFlight: inFlight, maxInFlight: maxInFlight}, nil
	})

	var sources []config.SourceConfig
	for i := 0; i < 50; i++ {
		sources = append(sources, config.SourceConfig{Name: fmt.Sprintf("s%d", i), Type: "fakeA"})
	}
	ec := newCtx(t, sources)
	eng := extract.New(reg, observability.New())

	require.NoError(t, eng.Run(context.Background(), ec))
	require.Equal(t, 50, ec.ExtractedCount)
	require.LessOrEqual(t, maxInFlight.Load(), int32(2*runtime.NumCPU()))
}
