package core

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakePollerStore struct {
	pools []MarginPoolInfo

	mu        sync.Mutex
	snapshots []*MarginPoolSnapshotRow
}

func (s *fakePollerStore) MarginPools(context.Context) ([]MarginPoolInfo, error) {
	return s.pools, nil
}

func (s *fakePollerStore) InsertRows(_ context.Context, rows []Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.snapshots = append(s.snapshots, r.(*MarginPoolSnapshotRow))
	}
	return int64(len(rows)), nil
}

type fakeStateReader struct {
	states map[string]PoolState
	errs   map[string]error
}

func (r *fakeStateReader) GetPoolState(_ context.Context, poolID, assetType string) (PoolState, error) {
	if err, ok := r.errs[poolID]; ok {
		return PoolState{}, err
	}
	state := r.states[poolID]
	state.PoolID = poolID
	state.AssetType = NormalizeAssetType(assetType)
	return state, nil
}

// Two pools with supply=1000, borrow=500, vault=600, decimals=9: gauges show
// total_supply=1e-6, utilization=0.5, liquidity_pct=60, and one snapshot row
// is appended per pool per sweep.
func TestPollOnce(t *testing.T) {
	store := &fakePollerStore{pools: []MarginPoolInfo{
		{PoolID: "0xaaa1", AssetType: "abc::coin::USDC", Decimals: 9},
		{PoolID: "0xbbb2", AssetType: "def::coin::SUI", Decimals: 9},
	}}
	state := PoolState{
		TotalSupply:  1000,
		TotalBorrow:  500,
		VaultBalance: 600,
		SupplyCap:    2000,
		InterestRate: 50_000_000, // 5% at nine decimals
	}
	reader := &fakeStateReader{states: map[string]PoolState{
		"0xaaa1": state,
		"0xbbb2": state,
	}}

	metrics := NewMetrics()
	poller := NewPoller(store, reader, metrics, testLogger(), time.Second)
	if err := poller.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	supply := testutil.ToFloat64(metrics.PoolTotalSupply.WithLabelValues("0xaaa1", "0xabc::coin::USDC"))
	if math.Abs(supply-1e-6) > 1e-12 {
		t.Fatalf("total_supply gauge = %v, want 1e-6", supply)
	}
	util := testutil.ToFloat64(metrics.PoolUtilizationRate.WithLabelValues("0xaaa1", "0xabc::coin::USDC"))
	if util != 0.5 {
		t.Fatalf("utilization gauge = %v, want 0.5", util)
	}
	liquidity := testutil.ToFloat64(metrics.PoolAvailableLiquidity.WithLabelValues("0xaaa1", "0xabc::coin::USDC"))
	if math.Abs(liquidity-60) > 1e-9 {
		t.Fatalf("liquidity gauge = %v, want 60", liquidity)
	}
	rate := testutil.ToFloat64(metrics.PoolInterestRate.WithLabelValues("0xaaa1", "0xabc::coin::USDC"))
	if math.Abs(rate-0.05) > 1e-12 {
		t.Fatalf("interest rate gauge = %v, want 0.05", rate)
	}

	if len(store.snapshots) != 2 {
		t.Fatalf("snapshots appended = %d, want 2", len(store.snapshots))
	}
	snap := store.snapshots[0]
	if snap.UtilizationRate != 0.5 {
		t.Fatalf("snapshot utilization = %v", snap.UtilizationRate)
	}
	if snap.SolvencyRatio == nil || math.Abs(*snap.SolvencyRatio-1.2) > 1e-9 {
		t.Fatalf("snapshot solvency = %v", snap.SolvencyRatio)
	}
	if snap.AvailableLiquidityPct == nil || math.Abs(*snap.AvailableLiquidityPct-60) > 1e-9 {
		t.Fatalf("snapshot liquidity pct = %v", snap.AvailableLiquidityPct)
	}
}

// One failing pool does not halt the sweep; the healthy pool still gets its
// snapshot and the error counter increments.
func TestPollIsolatesPoolFailures(t *testing.T) {
	store := &fakePollerStore{pools: []MarginPoolInfo{
		{PoolID: "0xbad", AssetType: "abc::coin::USDC", Decimals: 9},
		{PoolID: "0xok", AssetType: "abc::coin::USDC", Decimals: 9},
	}}
	reader := &fakeStateReader{
		states: map[string]PoolState{"0xok": {TotalSupply: 10, TotalBorrow: 1, VaultBalance: 5}},
		errs:   map[string]error{"0xbad": Errorf(PollFailure, "node unreachable")},
	}

	metrics := NewMetrics()
	poller := NewPoller(store, reader, metrics, testLogger(), time.Second)
	if err := poller.PollOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(store.snapshots) != 1 || store.snapshots[0].MarginPoolID != "0xok" {
		t.Fatalf("snapshots = %+v", store.snapshots)
	}
	if got := testutil.ToFloat64(metrics.PollErrors); got != 1 {
		t.Fatalf("poll_errors_total = %v", got)
	}
}

// Derivation edge cases: zero supply and zero borrow.
func TestPoolStateDerivations(t *testing.T) {
	empty := PoolState{}
	if empty.Utilization() != 0 {
		t.Fatal("utilization of empty pool must be 0")
	}
	if _, ok := empty.Solvency(); ok {
		t.Fatal("solvency must be undefined with zero borrow")
	}
	if empty.AvailableLiquidityPct() != 100 {
		t.Fatal("liquidity pct of empty pool must be 100")
	}

	state := PoolState{TotalSupply: 1000, TotalBorrow: 500, VaultBalance: 600}
	if state.Utilization() != 0.5 {
		t.Fatalf("utilization = %v", state.Utilization())
	}
	if solvency, ok := state.Solvency(); !ok || solvency != 1.2 {
		t.Fatalf("solvency = %v %v", solvency, ok)
	}
	if state.AvailableLiquidityPct() != 60 {
		t.Fatalf("liquidity pct = %v", state.AvailableLiquidityPct())
	}
}

// Zero-borrow snapshots store a NULL solvency; zero-supply snapshots store
// a NULL liquidity percentage.
func TestSnapshotNullRatios(t *testing.T) {
	row, err := buildSnapshot(PoolState{PoolID: "0xp", AssetType: "0xa", TotalSupply: 100})
	if err != nil {
		t.Fatal(err)
	}
	if row.SolvencyRatio != nil {
		t.Fatal("solvency must be NULL with zero borrow")
	}
	row, err = buildSnapshot(PoolState{PoolID: "0xp", AssetType: "0xa", TotalBorrow: 10, VaultBalance: 5})
	if err != nil {
		t.Fatal(err)
	}
	if row.AvailableLiquidityPct != nil {
		t.Fatal("liquidity pct must be NULL with zero supply")
	}
	if row.SolvencyRatio == nil || *row.SolvencyRatio != 0.5 {
		t.Fatalf("solvency = %v", row.SolvencyRatio)
	}
}
