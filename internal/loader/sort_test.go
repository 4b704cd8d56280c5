package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/model"
)

func clickAt(id string, t time.Time) model.FactClick {
	return model.FactClick{EventID: id, ReceiveTime: t}
}

func TestInMemorySort_StableByReceiveTime(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []model.TargetRecord{
		clickAt("c", base.Add(2*time.Second)),
		clickAt("a", base),
		clickAt("b", base),
	}

	out := inMemorySort(in)
	require.Len(t, out, 3)
	require.Equal(t, "a", out[0].(model.FactClick).EventID)
	require.Equal(t, "b", out[1].(model.FactClick).EventID)
	require.Equal(t, "c", out[2].(model.FactClick).EventID)
}

func TestSortRecords_ChoosesExternalMergeOverBudget(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var records []model.TargetRecord
	for i := 9; i >= 0; i-- {
		records = append(records, clickAt("e", base.Add(time.Duration(i)*time.Second)))
	}

	cfg := config.LoaderConfig{
		MemoryBudgetBytes:  3, // 10 records x 1 B exceeds the 3 B budget: external path, runs of 3
		RecordSizeEstimate: 1,
	}

	var tempFiles []string
	out, err := sortRecords(records, cfg, dir, func(p string) { tempFiles = append(tempFiles, p) })
	require.NoError(t, err)
	require.Len(t, out, 10)
	require.NotEmpty(t, tempFiles)

	for i := 0; i < len(out)-1; i++ {
		require.True(t, out[i].SortKey().Nanos <= out[i+1].SortKey().Nanos)
	}
}

func TestSortRecords_InMemoryUnderBudget(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []model.TargetRecord{clickAt("a", base)}

	cfg := config.LoaderConfig{MemoryBudgetBytes: 1 << 30, RecordSizeEstimate: 500}

	var tempFiles []string
	out, err := sortRecords(records, cfg, dir, func(p string) { tempFiles = append(tempFiles, p) })
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Empty(t, tempFiles)
}
