package cleaner_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/cleaner"
	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/observability"
)

type fakeHandle struct{ closed bool }

func (h *fakeHandle) Close() error { h.closed = true; return nil }

func TestCleaner_RemovesTempFilesAndClosesStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ec := etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
	ec.AppendTempFile(path)
	handle := &fakeHandle{}
	ec.StoreHandle = handle

	c := cleaner.New(observability.New())
	c.Run(ec)

	require.NoFileExists(t, path)
	require.True(t, handle.closed)
	require.True(t, ec.CleanupPerformed)
}

func TestCleaner_MissingPathDoesNotPanic(t *testing.T) {
	ec := etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
	ec.AppendTempFile("/nonexistent/path/for/test")

	c := cleaner.New(observability.New())
	require.NotPanics(t, func() { c.Run(ec) })
	require.True(t, ec.CleanupPerformed)
}

func TestCleaner_IdempotentOnRepeatCall(t *testing.T) {
	ec := etlcontext.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), &config.Config{})
	c := cleaner.New(observability.New())
	c.Run(ec)
	require.NotPanics(t, func() { c.Run(ec) })
	require.True(t, ec.CleanupPerformed)
}
