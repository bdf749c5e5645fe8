package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory CommitStore tracking watermarks and asserting
// they never regress.
type memStore struct {
	mu         sync.Mutex
	watermarks map[string]Watermark
	commits    int
}

func newMemStore() *memStore {
	return &memStore{watermarks: make(map[string]Watermark)}
}

func (s *memStore) LoadWatermark(_ context.Context, pipeline string) (Watermark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wm, ok := s.watermarks[pipeline]
	if !ok {
		return Watermark{Pipeline: pipeline, CheckpointHiInclusive: -1}, false, nil
	}
	return wm, true, nil
}

func (s *memStore) CommitBatch(ctx context.Context, wm Watermark,
	commit func(context.Context, DBTX) (int64, error)) (int64, error) {
	n, err := commit(ctx, nil)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	old, ok := s.watermarks[wm.Pipeline]
	if !ok || wm.CheckpointHiInclusive > old.CheckpointHiInclusive {
		s.watermarks[wm.Pipeline] = wm
	}
	return n, nil
}

func (s *memStore) watermark(pipeline string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	wm, ok := s.watermarks[pipeline]
	if !ok {
		return -1
	}
	return wm.CheckpointHiInclusive
}

// recordingHandler emits one row per transaction and dedupes on commit by
// event digest, mimicking ON CONFLICT DO NOTHING.
type recordingHandler struct {
	name string

	mu        sync.Mutex
	keys      map[string]bool
	commitSeq []uint64
}

func newRecordingHandler(name string) *recordingHandler {
	return &recordingHandler{name: name, keys: make(map[string]bool)}
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Process(cp *Checkpoint) ([]Row, error) {
	var rows []Row
	for i := range cp.Transactions {
		meta := newTxMeta(cp, &cp.Transactions[i])
		rows = append(rows, &BalanceRow{RowMeta: meta.rowMeta(0)})
	}
	return rows, nil
}

func (h *recordingHandler) Commit(_ context.Context, _ DBTX, rows []Row) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var inserted int64
	for _, r := range rows {
		if !h.keys[r.Key()] {
			h.keys[r.Key()] = true
			inserted++
		}
	}
	if len(rows) > 0 {
		h.commitSeq = append(h.commitSeq, uint64(rows[0].(*BalanceRow).Checkpoint))
	}
	return inserted, nil
}

func (h *recordingHandler) rowCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keys)
}

func (h *recordingHandler) committedOrder() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint64, len(h.commitSeq))
	copy(out, h.commitSeq)
	return out
}

// fakeSource serves checkpoints up to max and reports later ones as not yet
// available.
type fakeSource struct {
	max uint64
}

func (s *fakeSource) checkpoint(seq uint64) *Checkpoint {
	return fixtureCheckpoint(seq, fixtureTx(fmt.Sprintf("%02x", seq%255+1), MustAddress("0x1")))
}

func (s *fakeSource) Get(_ context.Context, seq uint64) (*Checkpoint, error) {
	if seq > s.max {
		return nil, Errorf(NotYetAvailable, "checkpoint %d not sealed", seq)
	}
	return s.checkpoint(seq), nil
}

func (s *fakeSource) GetRange(ctx context.Context, lo, hi uint64) ([]*Checkpoint, error) {
	var out []*Checkpoint
	for seq := lo; seq < hi; seq++ {
		cp, err := s.Get(ctx, seq)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *fakeSource) Has(_ context.Context, seq uint64) (bool, error) { return seq <= s.max, nil }

func (s *fakeSource) Latest(_ context.Context) (uint64, bool, error) { return s.max, true, nil }

// runUntil drives the runtime until cond holds or the deadline passes.
func runUntil(t *testing.T, rt *Runtime, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	deadline := time.After(10 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatal("condition not reached before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		t.Fatalf("runtime error: %v", err)
	}
}

func TestPipelineIngestsInOrder(t *testing.T) {
	store := newMemStore()
	handler := newRecordingHandler("orders_test")
	rt := NewRuntime(&fakeSource{max: 20}, store, NewMetrics(), testLogger())
	rt.AddPipeline(handler, PipelineConfig{MaxConcurrency: 4, CheckpointLag: 8})

	runUntil(t, rt, func() bool { return store.watermark("orders_test") >= 20 })

	order := handler.committedOrder()
	if len(order) != 21 {
		t.Fatalf("committed %d checkpoints", len(order))
	}
	for i, seq := range order {
		if seq != uint64(i) {
			t.Fatalf("commit %d was checkpoint %d: commits must be in sequence order", i, seq)
		}
	}
	if handler.rowCount() != 21 {
		t.Fatalf("row count = %d", handler.rowCount())
	}
}

func TestPipelineResumesFromWatermark(t *testing.T) {
	store := newMemStore()
	store.watermarks["resume_test"] = Watermark{Pipeline: "resume_test", CheckpointHiInclusive: 15}
	handler := newRecordingHandler("resume_test")
	rt := NewRuntime(&fakeSource{max: 20}, store, NewMetrics(), testLogger())
	rt.AddPipeline(handler, PipelineConfig{})

	runUntil(t, rt, func() bool { return store.watermark("resume_test") >= 20 })

	order := handler.committedOrder()
	if len(order) == 0 || order[0] != 16 {
		t.Fatalf("first committed checkpoint = %v, want 16", order)
	}
}

// Re-running the same range commits zero additional rows and leaves the
// watermark unchanged.
func TestPipelineRerunIsIdempotent(t *testing.T) {
	store := newMemStore()
	handler := newRecordingHandler("rerun_test")

	rt := NewRuntime(&fakeSource{max: 10}, store, NewMetrics(), testLogger())
	rt.AddPipeline(handler, PipelineConfig{})
	runUntil(t, rt, func() bool { return store.watermark("rerun_test") >= 10 })
	firstCount := handler.rowCount()

	// Second run over the same data, same store, same handler state: the
	// watermark is reset, so every checkpoint is reprocessed and the
	// handler ignores rows whose keys it already holds.
	store.watermarks["rerun_test"] = Watermark{Pipeline: "rerun_test", CheckpointHiInclusive: -1}
	rt2 := NewRuntime(&fakeSource{max: 10}, store, NewMetrics(), testLogger())
	rt2.AddPipeline(handler, PipelineConfig{})
	runUntil(t, rt2, func() bool { return store.watermark("rerun_test") >= 10 })

	if handler.rowCount() != firstCount {
		t.Fatalf("second run added rows: %d -> %d", firstCount, handler.rowCount())
	}
	if store.watermark("rerun_test") != 10 {
		t.Fatalf("watermark = %d", store.watermark("rerun_test"))
	}
}

// Two pipelines advance independently; each sees every checkpoint.
func TestMultiplePipelinesIndependent(t *testing.T) {
	store := newMemStore()
	fast := newRecordingHandler("fast_test")
	slow := newRecordingHandler("slow_test")
	rt := NewRuntime(&fakeSource{max: 12}, store, NewMetrics(), testLogger())
	rt.AddPipeline(fast, PipelineConfig{MaxConcurrency: 8})
	rt.AddPipeline(slow, PipelineConfig{MaxConcurrency: 1})

	runUntil(t, rt, func() bool {
		return store.watermark("fast_test") >= 12 && store.watermark("slow_test") >= 12
	})

	if fast.rowCount() != 13 || slow.rowCount() != 13 {
		t.Fatalf("row counts: %d, %d", fast.rowCount(), slow.rowCount())
	}
}

// A processor failure is fatal: Run returns the error and the watermark
// stays where it was.
func TestPipelineFatalProcessorError(t *testing.T) {
	store := newMemStore()
	handler := &failingHandler{failAt: 5}
	rt := NewRuntime(&fakeSource{max: 10}, store, NewMetrics(), testLogger())
	rt.AddPipeline(handler, PipelineConfig{MaxConcurrency: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rt.Run(ctx)
	if err == nil || ctx.Err() != nil {
		t.Fatalf("expected fatal pipeline error, got %v", err)
	}
	if !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch, got %v", err)
	}
	if wm := store.watermark("failing_test"); wm >= 5 {
		t.Fatalf("watermark advanced past the failure: %d", wm)
	}
}

type failingHandler struct {
	failAt uint64
}

func (h *failingHandler) Name() string { return "failing_test" }

func (h *failingHandler) Process(cp *Checkpoint) ([]Row, error) {
	if cp.Summary.SequenceNumber >= h.failAt {
		return nil, Errorf(FormatMismatch, "synthetic decode failure at %d", cp.Summary.SequenceNumber)
	}
	return nil, nil
}

func (h *failingHandler) Commit(context.Context, DBTX, []Row) (int64, error) { return 0, nil }

// Empty checkpoints still advance the watermark.
func TestEmptyCheckpointAdvancesWatermark(t *testing.T) {
	store := newMemStore()
	handler := &emptyHandler{}
	rt := NewRuntime(&fakeSource{max: 5}, store, NewMetrics(), testLogger())
	rt.AddPipeline(handler, PipelineConfig{})

	runUntil(t, rt, func() bool { return store.watermark("empty_test") >= 5 })
}

type emptyHandler struct{}

func (h *emptyHandler) Name() string { return "empty_test" }

func (h *emptyHandler) Process(*Checkpoint) ([]Row, error) { return nil, nil }

func (h *emptyHandler) Commit(context.Context, DBTX, []Row) (int64, error) { return 0, nil }

func TestBackoffSchedule(t *testing.T) {
	if backoff(0) != time.Second {
		t.Fatalf("backoff(0) = %v", backoff(0))
	}
	if backoff(3) != 8*time.Second {
		t.Fatalf("backoff(3) = %v", backoff(3))
	}
	if backoff(10) != 30*time.Second {
		t.Fatalf("backoff(10) = %v", backoff(10))
	}
}
