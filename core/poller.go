package core

// Live-state poller: materializes each margin pool's current global state on
// an interval by simulating view-function calls, publishing per-pool gauges
// and appending a snapshot row per pool per tick. Failures are isolated per
// pool; one bad pool never halts the others.

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PollerStore is what the poller needs from the relational store.
type PollerStore interface {
	MarginPools(ctx context.Context) ([]MarginPoolInfo, error)
	InsertRows(ctx context.Context, rows []Row) (int64, error)
}

// StateReader reads one pool's live state; implemented by SimulationClient.
type StateReader interface {
	GetPoolState(ctx context.Context, poolID, assetType string) (PoolState, error)
}

// Poller drives the poll loop.
type Poller struct {
	store    PollerStore
	reader   StateReader
	metrics  *Metrics
	log      *logrus.Logger
	interval time.Duration
}

// NewPoller builds a poller with the given tick interval.
func NewPoller(store PollerStore, reader StateReader, metrics *Metrics, log *logrus.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{store: store, reader: reader, metrics: metrics, log: log, interval: interval}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.log.WithError(err).WithField("error_kind", KindOf(err).String()).
					Warn("margin pool poll failed")
				p.metrics.PollErrors.Inc()
			} else {
				p.metrics.PollSuccess.Inc()
			}
		}
	}
}

// PollOnce performs one full sweep over the known margin pools.
func (p *Poller) PollOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		p.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	pools, err := p.store.MarginPools(ctx)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return nil
	}

	for _, info := range pools {
		state, err := p.reader.GetPoolState(ctx, info.PoolID, info.AssetType)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"pool":       info.PoolID,
				"error_kind": KindOf(err).String(),
			}).WithError(err).Warn("failed to query margin pool")
			p.metrics.PollErrors.Inc()
			continue
		}

		p.metrics.UpdatePoolMetrics(state.PoolID, state.AssetType, state, info.Decimals)

		snapshot, err := buildSnapshot(state)
		if err != nil {
			p.log.WithField("pool", state.PoolID).WithError(err).Warn("failed to build snapshot")
			p.metrics.PollErrors.Inc()
			continue
		}
		if _, err := p.store.InsertRows(ctx, []Row{snapshot}); err != nil {
			p.log.WithField("pool", state.PoolID).WithError(err).Warn("failed to save snapshot")
			p.metrics.PollErrors.Inc()
		}
	}
	return nil
}

// buildSnapshot derives the stored ratios; solvency is NULL when nothing is
// borrowed and liquidity percentage NULL when nothing is supplied.
func buildSnapshot(state PoolState) (*MarginPoolSnapshotRow, error) {
	var n narrower
	row := &MarginPoolSnapshotRow{
		MarginPoolID:        state.PoolID,
		AssetType:           state.AssetType,
		TotalSupply:         n.i64(state.TotalSupply),
		TotalBorrow:         n.i64(state.TotalBorrow),
		VaultBalance:        n.i64(state.VaultBalance),
		SupplyCap:           n.i64(state.SupplyCap),
		InterestRate:        n.i64(state.InterestRate),
		AvailableWithdrawal: n.i64(state.AvailableWithdrawal),
		UtilizationRate:     state.Utilization(),
	}
	if solvency, ok := state.Solvency(); ok {
		row.SolvencyRatio = &solvency
	}
	if state.TotalSupply > 0 {
		pct := state.AvailableLiquidityPct()
		row.AvailableLiquidityPct = &pct
	}
	return row, n.err
}
