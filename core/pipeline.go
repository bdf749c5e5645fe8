package core

// Concurrent indexing runtime. One fetch loop pulls checkpoints in
// increasing sequence order and broadcasts them over bounded channels to
// every registered pipeline. Each pipeline runs a CPU-bound processor pool
// and a single committer that drains completed batches strictly in sequence
// order, advancing the pipeline's watermark in the same transaction as the
// insert batch. Bounded channels give backpressure: a committer falling
// behind by more than checkpoint_lag stalls fetching for everyone.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

// PipelineConfig tunes one pipeline.
type PipelineConfig struct {
	// BatchSize caps rows per commit statement grouping.
	BatchSize int
	// MaxConcurrency sizes the processor worker pool.
	MaxConcurrency int
	// CheckpointLag bounds how far the fetch loop may run ahead of this
	// pipeline's committer.
	CheckpointLag int
	// CommitRetries bounds retries for commit failures other than store
	// outages and duplicate keys before the pipeline exits fatally.
	CommitRetries int
}

// DefaultPipelineConfig returns the standard tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:      100,
		MaxConcurrency: 4,
		CheckpointLag:  300,
		CommitRetries:  5,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.CheckpointLag <= 0 {
		c.CheckpointLag = d.CheckpointLag
	}
	if c.CommitRetries <= 0 {
		c.CommitRetries = d.CommitRetries
	}
	return c
}

const (
	backoffMin = time.Second
	backoffMax = 30 * time.Second
)

// backoff returns the exponential delay for the given zero-based attempt.
func backoff(attempt int) time.Duration {
	d := backoffMin
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	return d
}

// batch is one checkpoint's processed output awaiting commit.
type batch struct {
	seq     uint64
	summary CheckpointSummary
	rows    []Row
}

type pipeline struct {
	handler   Handler
	cfg       PipelineConfig
	watermark int64 // checkpoint_hi_inclusive at startup; -1 when none
	in        chan *Checkpoint
}

// Runtime composes named pipelines over one checkpoint source and a store.
type Runtime struct {
	source    CheckpointSource
	store     CommitStore
	metrics   *Metrics
	log       *logrus.Logger
	pipelines []*pipeline
}

// NewRuntime builds an empty runtime.
func NewRuntime(source CheckpointSource, store CommitStore, metrics *Metrics, log *logrus.Logger) *Runtime {
	return &Runtime{source: source, store: store, metrics: metrics, log: log}
}

// AddPipeline registers a handler with its configuration.
func (r *Runtime) AddPipeline(h Handler, cfg PipelineConfig) {
	cfg = cfg.withDefaults()
	r.pipelines = append(r.pipelines, &pipeline{
		handler: h,
		cfg:     cfg,
		in:      make(chan *Checkpoint, cfg.CheckpointLag),
	})
}

// Run ingests checkpoints until ctx is cancelled or a pipeline fails
// fatally. On return, every worker has unwound; in-flight batches have
// either fully committed or been discarded, and watermarks reflect the last
// fully applied checkpoint per pipeline.
func (r *Runtime) Run(ctx context.Context) error {
	if len(r.pipelines) == 0 {
		return Errorf(Configuration, "no pipelines registered")
	}

	// Resume point: one past the lowest watermark across pipelines. Each
	// pipeline additionally skips checkpoints at or below its own mark.
	start := int64(-1)
	for _, p := range r.pipelines {
		wm, ok, err := r.store.LoadWatermark(ctx, p.handler.Name())
		if err != nil {
			return err
		}
		if !ok {
			p.watermark = -1
		} else {
			p.watermark = wm.CheckpointHiInclusive
		}
		if start == -1 || p.watermark < start {
			start = p.watermark
		}
		r.log.WithFields(logrus.Fields{
			"pipeline":  p.handler.Name(),
			"watermark": p.watermark,
		}).Info("pipeline resuming")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(r.pipelines)+1)
	var wg sync.WaitGroup
	for _, p := range r.pipelines {
		wg.Add(1)
		go func(p *pipeline) {
			defer wg.Done()
			if err := r.runPipeline(ctx, p); err != nil {
				errCh <- err
				cancel()
			}
		}(p)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.fetchLoop(ctx, uint64(start+1)); err != nil {
			errCh <- err
			cancel()
		}
		for _, p := range r.pipelines {
			close(p.in)
		}
	}()

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

// fetchLoop pulls checkpoints in increasing order and broadcasts them. A
// non-nil return is a fatal source failure.
func (r *Runtime) fetchLoop(ctx context.Context, start uint64) error {
	for seq := start; ; seq++ {
		cp, err := r.fetchWithRetry(ctx, seq)
		if err != nil {
			return err
		}
		if cp == nil {
			return nil
		}
		for _, p := range r.pipelines {
			if int64(seq) <= p.watermark {
				continue
			}
			select {
			case p.in <- cp:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// fetchWithRetry fetches one checkpoint, retrying transient failures with
// exponential backoff and polling for not-yet-archived checkpoints. A nil
// checkpoint with a nil error means the context ended; a non-nil error is
// fatal.
func (r *Runtime) fetchWithRetry(ctx context.Context, seq uint64) (*Checkpoint, error) {
	attempt := 0
	for {
		start := time.Now()
		cp, err := r.source.Get(ctx, seq)
		if err == nil {
			r.metrics.CheckpointsFetched.Inc()
			r.metrics.CheckpointFetchLatency.Observe(time.Since(start).Seconds())
			return cp, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}

		kind := KindOf(err)
		switch kind {
		case NotYetAvailable:
			// The archive has not sealed this checkpoint yet; wait quietly.
			if !sleepCtx(ctx, backoffMin) {
				return nil, nil
			}
		case Transient, StoreUnavailable:
			r.metrics.CheckpointFetchErrors.Inc()
			delay := backoff(attempt)
			attempt++
			r.log.WithFields(logrus.Fields{
				"checkpoint": seq,
				"error_kind": kind.String(),
				"retry_in":   delay,
			}).WithError(err).Warn("checkpoint fetch failed")
			if !sleepCtx(ctx, delay) {
				return nil, nil
			}
		default:
			// FormatMismatch and friends: the archive is final, so this can
			// never succeed on retry.
			r.metrics.CheckpointFetchErrors.Inc()
			r.log.WithFields(logrus.Fields{
				"checkpoint": seq,
				"error_kind": kind.String(),
			}).WithError(err).Error("fatal checkpoint fetch failure")
			return nil, fmt.Errorf("fetch checkpoint %d: %w", seq, err)
		}
	}
}

// runPipeline drives one pipeline: a processor pool feeding an in-order
// committer.
func (r *Runtime) runPipeline(ctx context.Context, p *pipeline) error {
	name := p.handler.Name()
	results := make(chan *batch, p.cfg.CheckpointLag)
	wp := workerpool.New(p.cfg.MaxConcurrency)

	// inFlight holds one slot per checkpoint handed to the processor pool
	// and not yet committed. When it is full the feeder stops draining p.in,
	// which stalls the fetch loop.
	inFlight := make(chan struct{}, p.cfg.CheckpointLag)
	procErr := make(chan error, 1)
	go func() {
		for cp := range p.in {
			select {
			case inFlight <- struct{}{}:
			case <-ctx.Done():
			}
			cp := cp
			wp.Submit(func() {
				rows, err := p.handler.Process(cp)
				if err != nil {
					select {
					case procErr <- err:
					default:
					}
					return
				}
				select {
				case results <- &batch{seq: cp.Summary.SequenceNumber, summary: cp.Summary, rows: rows}:
				case <-ctx.Done():
				}
			})
		}
		wp.StopWait()
		close(results)
	}()

	// Commit strictly in sequence order: batches may complete out of order
	// across the processor pool, so hold them until their turn.
	pending := make(map[uint64]*batch)
	next := uint64(p.watermark + 1)
	for {
		select {
		case err := <-procErr:
			r.logFailure(name, err)
			return fmt.Errorf("pipeline %s: %w", name, err)
		case b, open := <-results:
			if !open {
				return nil
			}
			pending[b.seq] = b
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := r.commitWithRetry(ctx, p, ready); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					r.logFailure(name, err)
					return fmt.Errorf("pipeline %s: %w", name, err)
				}
				next++
				select {
				case <-inFlight:
				default:
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// commitWithRetry commits one batch plus the watermark advance. Store
// outages retry forever; any other failure retries up to the configured
// limit and then kills the pipeline.
func (r *Runtime) commitWithRetry(ctx context.Context, p *pipeline, b *batch) error {
	name := p.handler.Name()
	wm := Watermark{
		Pipeline:               name,
		EpochHiInclusive:       int64(b.summary.Epoch),
		CheckpointHiInclusive:  int64(b.seq),
		TxHi:                   int64(b.summary.NetworkTotalTx),
		TimestampMsHiInclusive: int64(b.summary.TimestampMs),
	}

	attempt := 0
	for {
		start := time.Now()
		inserted, err := r.store.CommitBatch(ctx, wm, func(ctx context.Context, db DBTX) (int64, error) {
			// Insert in BatchSize groups; the whole checkpoint still commits
			// atomically because every group shares this transaction.
			var total int64
			for lo := 0; lo < len(b.rows); lo += p.cfg.BatchSize {
				hi := lo + p.cfg.BatchSize
				if hi > len(b.rows) {
					hi = len(b.rows)
				}
				n, err := p.handler.Commit(ctx, db, b.rows[lo:hi])
				if err != nil {
					return total, err
				}
				total += n
			}
			return total, nil
		})
		r.metrics.CommitLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

		switch {
		case err == nil:
			r.metrics.RowsCommitted.WithLabelValues(name).Add(float64(inserted))
			r.metrics.WatermarkCheckpoint.WithLabelValues(name).Set(float64(b.seq))
			if len(b.rows) > 0 {
				r.log.WithFields(logrus.Fields{
					"pipeline":   name,
					"checkpoint": b.seq,
					"rows":       len(b.rows),
					"inserted":   inserted,
				}).Debug("committed batch")
			}
			return nil
		case IsKind(err, Conflict):
			// Duplicate primary keys are no-ops by design; the batch is done.
			r.metrics.WatermarkCheckpoint.WithLabelValues(name).Set(float64(b.seq))
			return nil
		case IsKind(err, StoreUnavailable):
			r.metrics.CommitErrors.WithLabelValues(name).Inc()
			delay := backoff(attempt)
			attempt++
			r.log.WithFields(logrus.Fields{
				"pipeline":   name,
				"checkpoint": b.seq,
				"retry_in":   delay,
			}).WithError(err).Warn("store unavailable, retrying commit")
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
		default:
			r.metrics.CommitErrors.WithLabelValues(name).Inc()
			if attempt >= p.cfg.CommitRetries {
				return fmt.Errorf("commit checkpoint %d failed after %d attempts: %w", b.seq, attempt+1, err)
			}
			delay := backoff(attempt)
			attempt++
			r.log.WithFields(logrus.Fields{
				"pipeline":   name,
				"checkpoint": b.seq,
				"attempt":    attempt,
				"retry_in":   delay,
			}).WithError(err).Warn("commit failed, retrying batch")
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
		}
	}
}

func (r *Runtime) logFailure(pipeline string, err error) {
	r.log.WithFields(logrus.Fields{
		"pipeline":   pipeline,
		"error_kind": KindOf(err).String(),
	}).WithError(err).Error("pipeline failed")
}

// sleepCtx sleeps unless the context ends first; reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
