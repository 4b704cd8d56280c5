// sort.go implements §4.5 step 1: sort the transformed batch by each
// record's SortKey (its receive time), choosing a comparator-based
// in-memory stable sort when the estimated byte size fits the memory
// budget, or an external K-way merge (disk-spilling, min-heap keyed by
// SortKey) when it doesn't. LoaderConfig.SortField is not consulted.
package loader

import (
	"bufio"
	"container/heap"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/model"
)

// estimatedBytes is the size estimate sortRecords compares against the
// memory budget to decide which strategy applies.
func estimatedBytes(n int, recordSizeEstimate int64) int64 {
	return int64(n) * recordSizeEstimate
}

// sortRecords returns records ordered by SortKey ascending, stable for
// equal keys. tempFileSink receives the path of every scratch file
// created so the caller can register it on the ETLContext for Clean.
func sortRecords(records []model.TargetRecord, cfg config.LoaderConfig, scratchRoot string, tempFileSink func(string)) ([]model.TargetRecord, error) {
	if estimatedBytes(len(records), cfg.RecordSizeEstimate) <= cfg.MemoryBudgetBytes {
		return inMemorySort(records), nil
	}
	return externalMergeSort(records, cfg, scratchRoot, tempFileSink)
}

// inMemorySort is a stable, comparator-based sort preserving input order
// for equal keys (sort.SliceStable's documented guarantee).
func inMemorySort(records []model.TargetRecord) []model.TargetRecord {
	out := make([]model.TargetRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey().Less(out[j].SortKey())
	})
	return out
}

// runEntry is the on-disk encoding of one spilled record: the dataType
// tag (needed to decode the record back to its concrete type) plus the
// raw JSON body.
type runEntry struct {
	DataType string          `json:"dataType"`
	Record   json.RawMessage `json:"record"`
}

// externalMergeSort partitions records into memory-sized runs, sorts each
// run in memory, spills it to a scratch file, then K-way merges the runs
// via a min-heap keyed by SortKey. The merge reads each run one record at
// a time; its output is returned as a single slice holding every record.
func externalMergeSort(records []model.TargetRecord, cfg config.LoaderConfig, scratchRoot string, tempFileSink func(string)) ([]model.TargetRecord, error) {
	recordsPerRun := int(cfg.MemoryBudgetBytes / cfg.RecordSizeEstimate)
	if recordsPerRun < 1 {
		recordsPerRun = 1
	}

	runDir := filepath.Join(scratchRoot, "merge-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("loader: external sort scratch dir: %w", err)
	}

	var runPaths []string
	for start := 0; start < len(records); start += recordsPerRun {
		end := start + recordsPerRun
		if end > len(records) {
			end = len(records)
		}
		run := inMemorySort(records[start:end])

		path := filepath.Join(runDir, fmt.Sprintf("run-%d.jsonl", len(runPaths)))
		if err := writeRun(path, run); err != nil {
			return nil, err
		}
		runPaths = append(runPaths, path)
		tempFileSink(path)
	}
	tempFileSink(runDir)

	return kWayMerge(runPaths)
}

func writeRun(path string, run []model.TargetRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("loader: create run file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, rec := range run {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("loader: encode run record: %w", err)
		}
		entry := runEntry{DataType: rec.DataType(), Record: raw}
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("loader: encode run entry: %w", err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("loader: write run entry: %w", err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return fmt.Errorf("loader: write run newline: %w", err)
		}
	}
	return nil
}

// runReader streams one run file's decoded records in the order they
// were written (already sorted within the run).
type runReader struct {
	f       *os.File
	scanner *bufio.Scanner
}

func openRun(path string) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open run file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &runReader{f: f, scanner: scanner}, nil
}

func (r *runReader) next() (model.TargetRecord, bool, error) {
	if !r.scanner.Scan() {
		return nil, false, r.scanner.Err()
	}
	var entry runEntry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, false, fmt.Errorf("loader: decode run entry: %w", err)
	}
	rec, err := decodeTargetRecord(entry.DataType, entry.Record)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (r *runReader) close() error { return r.f.Close() }

// heapItem is one run's current head, ordered by SortKey for the merge
// min-heap.
type heapItem struct {
	record model.TargetRecord
	run    int
}

type mergeHeap []heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	ki, kj := h[i].record.SortKey(), h[j].record.SortKey()
	if ki.Nanos != kj.Nanos {
		return ki.Less(kj)
	}
	// Equal keys: break ties by which run was produced first, preserving
	// input order the way inMemorySort already did within each run.
	return h[i].run < h[j].run
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// kWayMerge merges the already-sorted run files into one ordered slice
// using a min-heap over each run's current head.
func kWayMerge(runPaths []string) ([]model.TargetRecord, error) {
	readers := make([]*runReader, len(runPaths))
	for i, p := range runPaths {
		r, err := openRun(p)
		if err != nil {
			return nil, err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			_ = r.close()
		}
	}()

	h := &mergeHeap{}
	heap.Init(h)
	for i, r := range readers {
		rec, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, heapItem{record: rec, run: i})
		}
	}

	var out []model.TargetRecord
	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		out = append(out, item.record)

		next, ok, err := readers[item.run].next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, heapItem{record: next, run: item.run})
		}
	}
	return out, nil
}
