package core

// Process-wide metrics registry. Every external interaction — checkpoint
// fetches, database commits, blob cache traffic, pool polls — is wrapped by
// a histogram and success/failure counters. Labels stay low-cardinality:
// pipeline name, pool id, asset type.

import (
	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics bundles every instrument the indexer publishes.
type Metrics struct {
	Registry *prometheus.Registry

	// Ingestion.
	CheckpointsFetched     prometheus.Counter
	CheckpointFetchErrors  prometheus.Counter
	CheckpointFetchLatency prometheus.Histogram
	RowsCommitted          *prometheus.CounterVec
	CommitErrors           *prometheus.CounterVec
	CommitLatency          *prometheus.HistogramVec
	WatermarkCheckpoint    *prometheus.GaugeVec

	// Store.
	DBPoolInUse       prometheus.Gauge
	DBPoolIdle        prometheus.Gauge
	DBPoolWaitSeconds prometheus.Gauge

	// Blob cache.
	BlobCacheHits      prometheus.Counter
	BlobCacheMisses    prometheus.Counter
	BlobCacheEvictions prometheus.Counter
	BlobCacheSizeBytes prometheus.Gauge

	// Margin pool state (labeled pool_id, asset_type).
	PoolTotalSupply          *prometheus.GaugeVec
	PoolTotalBorrow          *prometheus.GaugeVec
	PoolVaultBalance         *prometheus.GaugeVec
	PoolSupplyCap            *prometheus.GaugeVec
	PoolInterestRate         *prometheus.GaugeVec
	PoolAvailableWithdrawal  *prometheus.GaugeVec
	PoolUtilizationRate      *prometheus.GaugeVec
	PoolSolvencyRatio        *prometheus.GaugeVec
	PoolAvailableLiquidity   *prometheus.GaugeVec

	// Poller operational.
	PollDuration prometheus.Histogram
	PollErrors   prometheus.Counter
	PollSuccess  prometheus.Counter
}

// NewMetrics builds and registers every instrument on a fresh registry
// namespaced "deepbook".
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	ns := "deepbook"

	m := &Metrics{
		Registry: reg,
		CheckpointsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "checkpoints_fetched_total",
			Help: "Checkpoints fetched from the archival store",
		}),
		CheckpointFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "checkpoint_fetch_errors_total",
			Help: "Checkpoint fetch attempts that failed",
		}),
		CheckpointFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "checkpoint_fetch_latency_seconds",
			Help: "Checkpoint fetch latency", Buckets: latencyBuckets,
		}),
		RowsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "rows_committed_total",
			Help: "Rows durably inserted, per pipeline",
		}, []string{"pipeline"}),
		CommitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "commit_errors_total",
			Help: "Commit attempts that failed, per pipeline",
		}, []string{"pipeline"}),
		CommitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "commit_latency_seconds",
			Help: "Batch commit latency, per pipeline", Buckets: latencyBuckets,
		}, []string{"pipeline"}),
		WatermarkCheckpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "watermark_checkpoint",
			Help: "Highest durably committed checkpoint, per pipeline",
		}, []string{"pipeline"}),

		DBPoolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "db_pool_in_use",
			Help: "Database connections currently acquired",
		}),
		DBPoolIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "db_pool_idle",
			Help: "Idle database connections",
		}),
		DBPoolWaitSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "db_pool_wait_seconds_total",
			Help: "Cumulative time spent waiting for a connection",
		}),

		BlobCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "blob_cache_hits_total",
			Help: "Blob reads served from the on-disk cache",
		}),
		BlobCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "blob_cache_misses_total",
			Help: "Blob reads that went to the aggregator",
		}),
		BlobCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "blob_cache_evictions_total",
			Help: "Blobs evicted from the on-disk cache",
		}),
		BlobCacheSizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "blob_cache_size_bytes",
			Help: "Bytes currently held by the blob cache",
		}),

		PoolTotalSupply: newPoolGauge(ns, "margin_pool_total_supply",
			"Total assets supplied to the margin pool (normalized by asset decimals)"),
		PoolTotalBorrow: newPoolGauge(ns, "margin_pool_total_borrow",
			"Total assets borrowed from the margin pool (normalized by asset decimals)"),
		PoolVaultBalance: newPoolGauge(ns, "margin_pool_vault_balance",
			"Available liquidity in the margin pool vault (normalized by asset decimals)"),
		PoolSupplyCap: newPoolGauge(ns, "margin_pool_supply_cap",
			"Maximum allowed supply for the margin pool (normalized by asset decimals)"),
		PoolInterestRate: newPoolGauge(ns, "margin_pool_interest_rate",
			"Current interest rate for the margin pool (normalized, 1.0 = 100%)"),
		PoolAvailableWithdrawal: newPoolGauge(ns, "margin_pool_available_withdrawal",
			"Maximum amount withdrawable without hitting rate limits"),
		PoolUtilizationRate: newPoolGauge(ns, "margin_pool_utilization_rate",
			"Pool utilization rate (total_borrow / total_supply)"),
		PoolSolvencyRatio: newPoolGauge(ns, "margin_pool_solvency_ratio",
			"Pool solvency ratio (vault_balance / total_borrow, >1 = healthy)"),
		PoolAvailableLiquidity: newPoolGauge(ns, "margin_pool_available_liquidity_pct",
			"Percentage of total supply available in vault"),

		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "rpc_poll_duration_seconds",
			Help: "Time taken to poll margin pool state", Buckets: latencyBuckets,
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "poll_errors_total",
			Help: "Failed margin pool state polls",
		}),
		PollSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "poll_success_total",
			Help: "Successful margin pool state polls",
		}),
	}

	reg.MustRegister(
		m.CheckpointsFetched, m.CheckpointFetchErrors, m.CheckpointFetchLatency,
		m.RowsCommitted, m.CommitErrors, m.CommitLatency, m.WatermarkCheckpoint,
		m.DBPoolInUse, m.DBPoolIdle, m.DBPoolWaitSeconds,
		m.BlobCacheHits, m.BlobCacheMisses, m.BlobCacheEvictions, m.BlobCacheSizeBytes,
		m.PoolTotalSupply, m.PoolTotalBorrow, m.PoolVaultBalance, m.PoolSupplyCap,
		m.PoolInterestRate, m.PoolAvailableWithdrawal, m.PoolUtilizationRate,
		m.PoolSolvencyRatio, m.PoolAvailableLiquidity,
		m.PollDuration, m.PollErrors, m.PollSuccess,
	)
	return m
}

func newPoolGauge(ns, name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: name, Help: help,
	}, []string{"pool_id", "asset_type"})
}

// interestRateDivisor: on-chain interest rates use nine decimals regardless
// of the pool's asset.
const interestRateDivisor = 1_000_000_000.0

// UpdatePoolMetrics publishes one pool's live state, normalizing raw u64
// readings by the asset's decimal exponent and deriving utilization,
// solvency and available liquidity. An infinite solvency (no borrow) is
// omitted from the gauge.
func (m *Metrics) UpdatePoolMetrics(poolID, assetType string, state PoolState, decimals int16) {
	divisor := pow10(decimals)
	labels := prometheus.Labels{"pool_id": poolID, "asset_type": assetType}

	m.PoolTotalSupply.With(labels).Set(float64(state.TotalSupply) / divisor)
	m.PoolTotalBorrow.With(labels).Set(float64(state.TotalBorrow) / divisor)
	m.PoolVaultBalance.With(labels).Set(float64(state.VaultBalance) / divisor)
	m.PoolSupplyCap.With(labels).Set(float64(state.SupplyCap) / divisor)
	m.PoolInterestRate.With(labels).Set(float64(state.InterestRate) / interestRateDivisor)
	m.PoolAvailableWithdrawal.With(labels).Set(float64(state.AvailableWithdrawal) / divisor)

	m.PoolUtilizationRate.With(labels).Set(state.Utilization())
	if solvency, ok := state.Solvency(); ok {
		m.PoolSolvencyRatio.With(labels).Set(solvency)
	}
	m.PoolAvailableLiquidity.With(labels).Set(state.AvailableLiquidityPct())
}

// UpdatePoolStats publishes connection pool gauges.
func (m *Metrics) UpdatePoolStats(stats PoolStats) {
	m.DBPoolInUse.Set(float64(stats.InUse))
	m.DBPoolIdle.Set(float64(stats.Idle))
	m.DBPoolWaitSeconds.Set(stats.WaitSeconds)
}

func pow10(decimals int16) float64 {
	out := 1.0
	for i := int16(0); i < decimals; i++ {
		out *= 10
	}
	return out
}
