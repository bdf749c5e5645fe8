package core

// Normalized relational rows, one struct per target table. Every event row
// shares the RowMeta prefix; event_digest is the primary key and makes bulk
// inserts idempotent under duplicate submission. Column order here must match
// the migration DDL.

import "encoding/json"

// Row is a record ready for bulk insertion.
type Row interface {
	Table() string
	Columns() []string
	Values() []any
	// Key is the row's primary key value, used for conflict-ignore
	// accounting and by in-memory stores in tests.
	Key() string
}

// RowMeta is the uniform prefix of every event row.
type RowMeta struct {
	EventDigest           string
	Digest                string
	Sender                string
	Checkpoint            int64
	CheckpointTimestampMs int64
	Package               string
}

var metaColumns = []string{
	"event_digest", "digest", "sender", "checkpoint", "checkpoint_timestamp_ms", "package",
}

func (m *RowMeta) metaValues() []any {
	return []any{
		m.EventDigest, m.Digest, m.Sender, m.Checkpoint, m.CheckpointTimestampMs, m.Package,
	}
}

// Key returns the event digest.
func (m *RowMeta) Key() string { return m.EventDigest }

func withMeta(extra ...string) []string {
	out := make([]string, 0, len(metaColumns)+len(extra))
	out = append(out, metaColumns...)
	out = append(out, extra...)
	return out
}

// ---------------------------------------------------------------------------
// CLOB core rows
// ---------------------------------------------------------------------------

// OrderFillRow is one row of the order_fills table.
type OrderFillRow struct {
	RowMeta
	PoolID                string
	MakerOrderID          string // u128 rendered decimal
	TakerOrderID          string // u128 rendered decimal
	MakerClientOrderID    int64
	TakerClientOrderID    int64
	Price                 int64
	TakerFee              int64
	TakerFeeIsDeep        bool
	MakerFee              int64
	MakerFeeIsDeep        bool
	TakerIsBid            bool
	BaseQuantity          int64
	QuoteQuantity         int64
	MakerBalanceManagerID string
	TakerBalanceManagerID string
	OnchainTimestamp      int64
}

var orderFillColumns = withMeta(
	"pool_id", "maker_order_id", "taker_order_id", "maker_client_order_id",
	"taker_client_order_id", "price", "taker_fee", "taker_fee_is_deep",
	"maker_fee", "maker_fee_is_deep", "taker_is_bid", "base_quantity",
	"quote_quantity", "maker_balance_manager_id", "taker_balance_manager_id",
	"onchain_timestamp",
)

func (r *OrderFillRow) Table() string     { return "order_fills" }
func (r *OrderFillRow) Columns() []string { return orderFillColumns }
func (r *OrderFillRow) Values() []any {
	return append(r.metaValues(),
		r.PoolID, r.MakerOrderID, r.TakerOrderID, r.MakerClientOrderID,
		r.TakerClientOrderID, r.Price, r.TakerFee, r.TakerFeeIsDeep,
		r.MakerFee, r.MakerFeeIsDeep, r.TakerIsBid, r.BaseQuantity,
		r.QuoteQuantity, r.MakerBalanceManagerID, r.TakerBalanceManagerID,
		r.OnchainTimestamp,
	)
}

// OrderUpdateStatus discriminates the order_updates multiplex row.
type OrderUpdateStatus string

const (
	OrderStatusPlaced   OrderUpdateStatus = "Placed"
	OrderStatusModified OrderUpdateStatus = "Modified"
	OrderStatusCanceled OrderUpdateStatus = "Canceled"
	OrderStatusExpired  OrderUpdateStatus = "Expired"
)

// OrderUpdateRow is one row of the order_updates table.
type OrderUpdateRow struct {
	RowMeta
	Status           OrderUpdateStatus
	PoolID           string
	OrderID          string // u128 rendered decimal
	ClientOrderID    int64
	Price            int64
	IsBid            bool
	OriginalQuantity int64
	Quantity         int64
	FilledQuantity   int64
	OnchainTimestamp int64
	Trader           string
	BalanceManagerID string
}

var orderUpdateColumns = withMeta(
	"status", "pool_id", "order_id", "client_order_id", "price", "is_bid",
	"original_quantity", "quantity", "filled_quantity", "onchain_timestamp",
	"trader", "balance_manager_id",
)

func (r *OrderUpdateRow) Table() string     { return "order_updates" }
func (r *OrderUpdateRow) Columns() []string { return orderUpdateColumns }
func (r *OrderUpdateRow) Values() []any {
	return append(r.metaValues(),
		string(r.Status), r.PoolID, r.OrderID, r.ClientOrderID, r.Price,
		r.IsBid, r.OriginalQuantity, r.Quantity, r.FilledQuantity,
		r.OnchainTimestamp, r.Trader, r.BalanceManagerID,
	)
}

// BalanceRow is one row of the balances table.
type BalanceRow struct {
	RowMeta
	BalanceManagerID string
	Asset            string
	Amount           int64
	Deposit          bool
}

var balanceColumns = withMeta("balance_manager_id", "asset", "amount", "deposit")

func (r *BalanceRow) Table() string     { return "balances" }
func (r *BalanceRow) Columns() []string { return balanceColumns }
func (r *BalanceRow) Values() []any {
	return append(r.metaValues(), r.BalanceManagerID, r.Asset, r.Amount, r.Deposit)
}

// FlashloanRow is one row of the flashloans table.
type FlashloanRow struct {
	RowMeta
	PoolID         string
	BorrowQuantity int64
	Borrow         bool
	TypeName       string
}

var flashloanColumns = withMeta("pool_id", "borrow_quantity", "borrow", "type_name")

func (r *FlashloanRow) Table() string     { return "flashloans" }
func (r *FlashloanRow) Columns() []string { return flashloanColumns }
func (r *FlashloanRow) Values() []any {
	return append(r.metaValues(), r.PoolID, r.BorrowQuantity, r.Borrow, r.TypeName)
}

// PoolPriceRow is one row of the pool_prices table.
type PoolPriceRow struct {
	RowMeta
	TargetPool     string
	ReferencePool  string
	ConversionRate int64
}

var poolPriceColumns = withMeta("target_pool", "reference_pool", "conversion_rate")

func (r *PoolPriceRow) Table() string     { return "pool_prices" }
func (r *PoolPriceRow) Columns() []string { return poolPriceColumns }
func (r *PoolPriceRow) Values() []any {
	return append(r.metaValues(), r.TargetPool, r.ReferencePool, r.ConversionRate)
}

// ProposalRow is one row of the proposals table.
type ProposalRow struct {
	RowMeta
	PoolID           string
	BalanceManagerID string
	Epoch            int64
	TakerFee         int64
	MakerFee         int64
	StakeRequired    int64
}

var proposalColumns = withMeta(
	"pool_id", "balance_manager_id", "epoch", "taker_fee", "maker_fee", "stake_required",
)

func (r *ProposalRow) Table() string     { return "proposals" }
func (r *ProposalRow) Columns() []string { return proposalColumns }
func (r *ProposalRow) Values() []any {
	return append(r.metaValues(),
		r.PoolID, r.BalanceManagerID, r.Epoch, r.TakerFee, r.MakerFee, r.StakeRequired)
}

// RebateRow is one row of the rebates table.
type RebateRow struct {
	RowMeta
	PoolID           string
	BalanceManagerID string
	Epoch            int64
	ClaimAmount      int64
}

var rebateColumns = withMeta("pool_id", "balance_manager_id", "epoch", "claim_amount")

func (r *RebateRow) Table() string     { return "rebates" }
func (r *RebateRow) Columns() []string { return rebateColumns }
func (r *RebateRow) Values() []any {
	return append(r.metaValues(), r.PoolID, r.BalanceManagerID, r.Epoch, r.ClaimAmount)
}

// StakeRow is one row of the stakes table.
type StakeRow struct {
	RowMeta
	PoolID           string
	BalanceManagerID string
	Epoch            int64
	Amount           int64
	Stake            bool
}

var stakeColumns = withMeta("pool_id", "balance_manager_id", "epoch", "amount", "stake")

func (r *StakeRow) Table() string     { return "stakes" }
func (r *StakeRow) Columns() []string { return stakeColumns }
func (r *StakeRow) Values() []any {
	return append(r.metaValues(), r.PoolID, r.BalanceManagerID, r.Epoch, r.Amount, r.Stake)
}

// TradeParamsUpdateRow is one row of the trade_params_update table.
type TradeParamsUpdateRow struct {
	RowMeta
	PoolID        string
	TakerFee      int64
	MakerFee      int64
	StakeRequired int64
}

var tradeParamsColumns = withMeta("pool_id", "taker_fee", "maker_fee", "stake_required")

func (r *TradeParamsUpdateRow) Table() string     { return "trade_params_update" }
func (r *TradeParamsUpdateRow) Columns() []string { return tradeParamsColumns }
func (r *TradeParamsUpdateRow) Values() []any {
	return append(r.metaValues(), r.PoolID, r.TakerFee, r.MakerFee, r.StakeRequired)
}

// VoteRow is one row of the votes table.
type VoteRow struct {
	RowMeta
	PoolID           string
	BalanceManagerID string
	Epoch            int64
	FromProposalID   *string
	ToProposalID     string
	Stake            int64
}

var voteColumns = withMeta(
	"pool_id", "balance_manager_id", "epoch", "from_proposal_id", "to_proposal_id", "stake",
)

func (r *VoteRow) Table() string     { return "votes" }
func (r *VoteRow) Columns() []string { return voteColumns }
func (r *VoteRow) Values() []any {
	return append(r.metaValues(),
		r.PoolID, r.BalanceManagerID, r.Epoch, r.FromProposalID, r.ToProposalID, r.Stake)
}

// DeepBurnedRow is one row of the deep_burned table.
type DeepBurnedRow struct {
	RowMeta
	PoolID       string
	BurnedAmount int64
}

var deepBurnedColumns = withMeta("pool_id", "burned_amount")

func (r *DeepBurnedRow) Table() string     { return "deep_burned" }
func (r *DeepBurnedRow) Columns() []string { return deepBurnedColumns }
func (r *DeepBurnedRow) Values() []any {
	return append(r.metaValues(), r.PoolID, r.BurnedAmount)
}

// PoolCreatedRow is one row of the pool_created table.
type PoolCreatedRow struct {
	RowMeta
	PoolID          string
	TakerFee        int64
	MakerFee        int64
	TickSize        int64
	LotSize         int64
	MinSize         int64
	WhitelistedPool bool
	TreasuryAddress string
}

var poolCreatedColumns = withMeta(
	"pool_id", "taker_fee", "maker_fee", "tick_size", "lot_size", "min_size",
	"whitelisted_pool", "treasury_address",
)

func (r *PoolCreatedRow) Table() string     { return "pool_created" }
func (r *PoolCreatedRow) Columns() []string { return poolCreatedColumns }
func (r *PoolCreatedRow) Values() []any {
	return append(r.metaValues(),
		r.PoolID, r.TakerFee, r.MakerFee, r.TickSize, r.LotSize, r.MinSize,
		r.WhitelistedPool, r.TreasuryAddress)
}

// ---------------------------------------------------------------------------
// Margin lending rows
// ---------------------------------------------------------------------------

// MarginPoolOperationRow is one row of the margin_pool_operations table
// (asset supplied / withdrawn, discriminated by operation_type).
type MarginPoolOperationRow struct {
	RowMeta
	MarginPoolID     string
	AssetType        string
	Supplier         string
	Amount           int64
	Shares           int64
	OperationType    string
	OnchainTimestamp int64
}

var marginPoolOperationColumns = withMeta(
	"margin_pool_id", "asset_type", "supplier", "amount", "shares",
	"operation_type", "onchain_timestamp",
)

func (r *MarginPoolOperationRow) Table() string     { return "margin_pool_operations" }
func (r *MarginPoolOperationRow) Columns() []string { return marginPoolOperationColumns }
func (r *MarginPoolOperationRow) Values() []any {
	return append(r.metaValues(),
		r.MarginPoolID, r.AssetType, r.Supplier, r.Amount, r.Shares,
		r.OperationType, r.OnchainTimestamp)
}

// MarginManagerOperationRow is one row of the margin_manager_operations
// table (created / borrow / repay / liquidate, discriminated by
// operation_type; unused columns stay NULL).
type MarginManagerOperationRow struct {
	RowMeta
	MarginManagerID   string
	BalanceManagerID  *string
	Owner             *string
	MarginPoolID      *string
	OperationType     string
	LoanAmount        *int64
	TotalBorrow       *int64
	TotalShares       *int64
	RepayAmount       *int64
	RepayShares       *int64
	LiquidationAmount *int64
	PoolReward        *int64
	PoolDefault       *int64
	RiskRatio         *int64
	OnchainTimestamp  int64
}

var marginManagerOperationColumns = withMeta(
	"margin_manager_id", "balance_manager_id", "owner", "margin_pool_id",
	"operation_type", "loan_amount", "total_borrow", "total_shares",
	"repay_amount", "repay_shares", "liquidation_amount", "pool_reward",
	"pool_default", "risk_ratio", "onchain_timestamp",
)

func (r *MarginManagerOperationRow) Table() string     { return "margin_manager_operations" }
func (r *MarginManagerOperationRow) Columns() []string { return marginManagerOperationColumns }
func (r *MarginManagerOperationRow) Values() []any {
	return append(r.metaValues(),
		r.MarginManagerID, r.BalanceManagerID, r.Owner, r.MarginPoolID,
		r.OperationType, r.LoanAmount, r.TotalBorrow, r.TotalShares,
		r.RepayAmount, r.RepayShares, r.LiquidationAmount, r.PoolReward,
		r.PoolDefault, r.RiskRatio, r.OnchainTimestamp)
}

// MarginPoolAdminRow is one row of the margin_pool_admin table
// (created / pool_updated / interest_updated / config_updated).
type MarginPoolAdminRow struct {
	RowMeta
	MarginPoolID     string
	EventType        string
	MaintainerCapID  *string
	AssetType        *string
	DeepbookPoolID   *string
	PoolCapID        *string
	Enabled          *bool
	ConfigJSON       json.RawMessage
	OnchainTimestamp int64
}

var marginPoolAdminColumns = withMeta(
	"margin_pool_id", "event_type", "maintainer_cap_id", "asset_type",
	"deepbook_pool_id", "pool_cap_id", "enabled", "config_json",
	"onchain_timestamp",
)

func (r *MarginPoolAdminRow) Table() string     { return "margin_pool_admin" }
func (r *MarginPoolAdminRow) Columns() []string { return marginPoolAdminColumns }
func (r *MarginPoolAdminRow) Values() []any {
	var cfg any
	if len(r.ConfigJSON) > 0 {
		cfg = []byte(r.ConfigJSON)
	}
	return append(r.metaValues(),
		r.MarginPoolID, r.EventType, r.MaintainerCapID, r.AssetType,
		r.DeepbookPoolID, r.PoolCapID, r.Enabled, cfg, r.OnchainTimestamp)
}

// MarginRegistryEventRow is one row of the margin_registry_events table.
type MarginRegistryEventRow struct {
	RowMeta
	EventType        string
	MaintainerCapID  *string
	Allowed          *bool
	PoolID           *string
	Enabled          *bool
	ConfigJSON       json.RawMessage
	OnchainTimestamp int64
}

var marginRegistryEventColumns = withMeta(
	"event_type", "maintainer_cap_id", "allowed", "pool_id", "enabled",
	"config_json", "onchain_timestamp",
)

func (r *MarginRegistryEventRow) Table() string     { return "margin_registry_events" }
func (r *MarginRegistryEventRow) Columns() []string { return marginRegistryEventColumns }
func (r *MarginRegistryEventRow) Values() []any {
	var cfg any
	if len(r.ConfigJSON) > 0 {
		cfg = []byte(r.ConfigJSON)
	}
	return append(r.metaValues(),
		r.EventType, r.MaintainerCapID, r.Allowed, r.PoolID, r.Enabled,
		cfg, r.OnchainTimestamp)
}

// MarginFeesRow is one row of the margin_fees table (maintainer_withdrawn /
// protocol_withdrawn / referral_claimed / protocol_increased).
type MarginFeesRow struct {
	RowMeta
	FeeType          string
	MarginPoolID     *string
	MaintainerCapID  *string
	ReferralID       *string
	Owner            *string
	Fees             *int64
	MaintainerFees   *int64
	ProtocolFees     *int64
	ReferralFees     *int64
	TotalShares      *int64
	OnchainTimestamp int64
}

var marginFeesColumns = withMeta(
	"fee_type", "margin_pool_id", "maintainer_cap_id", "referral_id", "owner",
	"fees", "maintainer_fees", "protocol_fees", "referral_fees",
	"total_shares", "onchain_timestamp",
)

func (r *MarginFeesRow) Table() string     { return "margin_fees" }
func (r *MarginFeesRow) Columns() []string { return marginFeesColumns }
func (r *MarginFeesRow) Values() []any {
	return append(r.metaValues(),
		r.FeeType, r.MarginPoolID, r.MaintainerCapID, r.ReferralID, r.Owner,
		r.Fees, r.MaintainerFees, r.ProtocolFees, r.ReferralFees,
		r.TotalShares, r.OnchainTimestamp)
}

// ---------------------------------------------------------------------------
// Auxiliary tables
// ---------------------------------------------------------------------------

// PoolRow is one row of the pools reference table (pk pool_id).
type PoolRow struct {
	PoolID             string
	PoolName           string
	BaseAssetID        string
	BaseAssetDecimals  int16
	BaseAssetSymbol    string
	BaseAssetName      string
	QuoteAssetID       string
	QuoteAssetDecimals int16
	QuoteAssetSymbol   string
	QuoteAssetName     string
	MinSize            int64
	LotSize            int64
	TickSize           int64
}

var poolColumns = []string{
	"pool_id", "pool_name", "base_asset_id", "base_asset_decimals",
	"base_asset_symbol", "base_asset_name", "quote_asset_id",
	"quote_asset_decimals", "quote_asset_symbol", "quote_asset_name",
	"min_size", "lot_size", "tick_size",
}

func (r *PoolRow) Table() string     { return "pools" }
func (r *PoolRow) Columns() []string { return poolColumns }
func (r *PoolRow) Key() string       { return r.PoolID }
func (r *PoolRow) Values() []any {
	return []any{
		r.PoolID, r.PoolName, r.BaseAssetID, r.BaseAssetDecimals,
		r.BaseAssetSymbol, r.BaseAssetName, r.QuoteAssetID,
		r.QuoteAssetDecimals, r.QuoteAssetSymbol, r.QuoteAssetName,
		r.MinSize, r.LotSize, r.TickSize,
	}
}

// AssetRow is one row of the assets reference table (pk asset_type).
type AssetRow struct {
	AssetType string
	Name      string
	Symbol    string
	Decimals  int16
}

var assetColumns = []string{"asset_type", "name", "symbol", "decimals"}

func (r *AssetRow) Table() string     { return "assets" }
func (r *AssetRow) Columns() []string { return assetColumns }
func (r *AssetRow) Key() string       { return r.AssetType }
func (r *AssetRow) Values() []any {
	return []any{r.AssetType, r.Name, r.Symbol, r.Decimals}
}

// MarginPoolSnapshotRow is one row of the append-only margin_pool_snapshots
// time series.
type MarginPoolSnapshotRow struct {
	MarginPoolID          string
	AssetType             string
	TotalSupply           int64
	TotalBorrow           int64
	VaultBalance          int64
	SupplyCap             int64
	InterestRate          int64
	AvailableWithdrawal   int64
	UtilizationRate       float64
	SolvencyRatio         *float64
	AvailableLiquidityPct *float64
}

var marginPoolSnapshotColumns = []string{
	"margin_pool_id", "asset_type", "total_supply", "total_borrow",
	"vault_balance", "supply_cap", "interest_rate", "available_withdrawal",
	"utilization_rate", "solvency_ratio", "available_liquidity_pct",
}

func (r *MarginPoolSnapshotRow) Table() string     { return "margin_pool_snapshots" }
func (r *MarginPoolSnapshotRow) Columns() []string { return marginPoolSnapshotColumns }
func (r *MarginPoolSnapshotRow) Key() string       { return r.MarginPoolID }
func (r *MarginPoolSnapshotRow) Values() []any {
	return []any{
		r.MarginPoolID, r.AssetType, r.TotalSupply, r.TotalBorrow,
		r.VaultBalance, r.SupplyCap, r.InterestRate, r.AvailableWithdrawal,
		r.UtilizationRate, r.SolvencyRatio, r.AvailableLiquidityPct,
	}
}

// Watermark is the per-pipeline high-water mark of durably committed
// checkpoints.
type Watermark struct {
	Pipeline               string
	EpochHiInclusive       int64
	CheckpointHiInclusive  int64
	TxHi                   int64
	TimestampMsHiInclusive int64
}
