package core

// Typed on-chain event payloads and their BCS codecs. Field order and widths
// follow the on-chain definitions exactly; the decoder rejects short input
// and trailing bytes. Encoding exists so fixtures and tests can produce the
// same bytes the chain would.

// bcsValue is implemented by every event payload.
type bcsValue interface {
	decodeBCS(*Decoder)
	encodeBCS(*Encoder)
}

// DecodeEvent strictly deserializes an event payload of type T.
func DecodeEvent[T any, PT interface {
	*T
	bcsValue
}](contents []byte) (T, error) {
	var v T
	d := NewDecoder(contents)
	PT(&v).decodeBCS(d)
	if err := d.Finish(); err != nil {
		return v, NewError(FormatMismatch, err)
	}
	return v, nil
}

// EncodeEvent serializes an event payload to BCS.
func EncodeEvent(v bcsValue) []byte {
	var e Encoder
	v.encodeBCS(&e)
	return e.Bytes()
}

// ---------------------------------------------------------------------------
// CLOB core events
// ---------------------------------------------------------------------------

// BalanceEvent records a deposit into or withdrawal from a balance manager.
type BalanceEvent struct {
	BalanceManagerID ObjectID
	Asset            string
	Amount           uint64
	Deposit          bool
}

var KindBalanceEvent = EventKind{Module: "balance_manager", Name: "BalanceEvent"}

func (e *BalanceEvent) decodeBCS(d *Decoder) {
	e.BalanceManagerID = d.ReadAddress()
	e.Asset = d.ReadString()
	e.Amount = d.ReadU64()
	e.Deposit = d.ReadBool()
}

func (e *BalanceEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteString(e.Asset)
	enc.WriteU64(e.Amount)
	enc.WriteBool(e.Deposit)
}

// OrderFilled is emitted when a taker order crosses a maker order.
type OrderFilled struct {
	PoolID                ObjectID
	MakerOrderID          U128
	TakerOrderID          U128
	MakerClientOrderID    uint64
	TakerClientOrderID    uint64
	Price                 uint64
	TakerIsBid            bool
	TakerFee              uint64
	TakerFeeIsDeep        bool
	MakerFee              uint64
	MakerFeeIsDeep        bool
	BaseQuantity          uint64
	QuoteQuantity         uint64
	MakerBalanceManagerID ObjectID
	TakerBalanceManagerID ObjectID
	Timestamp             uint64
}

var KindOrderFilled = EventKind{Module: "order_info", Name: "OrderFilled"}

func (e *OrderFilled) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.MakerOrderID = d.ReadU128()
	e.TakerOrderID = d.ReadU128()
	e.MakerClientOrderID = d.ReadU64()
	e.TakerClientOrderID = d.ReadU64()
	e.Price = d.ReadU64()
	e.TakerIsBid = d.ReadBool()
	e.TakerFee = d.ReadU64()
	e.TakerFeeIsDeep = d.ReadBool()
	e.MakerFee = d.ReadU64()
	e.MakerFeeIsDeep = d.ReadBool()
	e.BaseQuantity = d.ReadU64()
	e.QuoteQuantity = d.ReadU64()
	e.MakerBalanceManagerID = d.ReadAddress()
	e.TakerBalanceManagerID = d.ReadAddress()
	e.Timestamp = d.ReadU64()
}

func (e *OrderFilled) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteU128(e.MakerOrderID)
	enc.WriteU128(e.TakerOrderID)
	enc.WriteU64(e.MakerClientOrderID)
	enc.WriteU64(e.TakerClientOrderID)
	enc.WriteU64(e.Price)
	enc.WriteBool(e.TakerIsBid)
	enc.WriteU64(e.TakerFee)
	enc.WriteBool(e.TakerFeeIsDeep)
	enc.WriteU64(e.MakerFee)
	enc.WriteBool(e.MakerFeeIsDeep)
	enc.WriteU64(e.BaseQuantity)
	enc.WriteU64(e.QuoteQuantity)
	enc.WriteAddress(e.MakerBalanceManagerID)
	enc.WriteAddress(e.TakerBalanceManagerID)
	enc.WriteU64(e.Timestamp)
}

// OrderPlaced is emitted when an order enters the book.
type OrderPlaced struct {
	BalanceManagerID ObjectID
	PoolID           ObjectID
	OrderID          U128
	ClientOrderID    uint64
	Trader           Address
	Price            uint64
	IsBid            bool
	PlacedQuantity   uint64
	ExpireTimestamp  uint64
	Timestamp        uint64
}

var KindOrderPlaced = EventKind{Module: "order_info", Name: "OrderPlaced"}

func (e *OrderPlaced) decodeBCS(d *Decoder) {
	e.BalanceManagerID = d.ReadAddress()
	e.PoolID = d.ReadAddress()
	e.OrderID = d.ReadU128()
	e.ClientOrderID = d.ReadU64()
	e.Trader = d.ReadAddress()
	e.Price = d.ReadU64()
	e.IsBid = d.ReadBool()
	e.PlacedQuantity = d.ReadU64()
	e.ExpireTimestamp = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *OrderPlaced) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteAddress(e.PoolID)
	enc.WriteU128(e.OrderID)
	enc.WriteU64(e.ClientOrderID)
	enc.WriteAddress(e.Trader)
	enc.WriteU64(e.Price)
	enc.WriteBool(e.IsBid)
	enc.WriteU64(e.PlacedQuantity)
	enc.WriteU64(e.ExpireTimestamp)
	enc.WriteU64(e.Timestamp)
}

// OrderModified is emitted when the open quantity of a resting order changes.
type OrderModified struct {
	BalanceManagerID ObjectID
	PoolID           ObjectID
	OrderID          U128
	ClientOrderID    uint64
	Trader           Address
	Price            uint64
	IsBid            bool
	PreviousQuantity uint64
	FilledQuantity   uint64
	NewQuantity      uint64
	Timestamp        uint64
}

var KindOrderModified = EventKind{Module: "order", Name: "OrderModified"}

func (e *OrderModified) decodeBCS(d *Decoder) {
	e.BalanceManagerID = d.ReadAddress()
	e.PoolID = d.ReadAddress()
	e.OrderID = d.ReadU128()
	e.ClientOrderID = d.ReadU64()
	e.Trader = d.ReadAddress()
	e.Price = d.ReadU64()
	e.IsBid = d.ReadBool()
	e.PreviousQuantity = d.ReadU64()
	e.FilledQuantity = d.ReadU64()
	e.NewQuantity = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *OrderModified) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteAddress(e.PoolID)
	enc.WriteU128(e.OrderID)
	enc.WriteU64(e.ClientOrderID)
	enc.WriteAddress(e.Trader)
	enc.WriteU64(e.Price)
	enc.WriteBool(e.IsBid)
	enc.WriteU64(e.PreviousQuantity)
	enc.WriteU64(e.FilledQuantity)
	enc.WriteU64(e.NewQuantity)
	enc.WriteU64(e.Timestamp)
}

// OrderCanceled is emitted when an order leaves the book by cancellation.
type OrderCanceled struct {
	BalanceManagerID          ObjectID
	PoolID                    ObjectID
	OrderID                   U128
	ClientOrderID             uint64
	Trader                    Address
	Price                     uint64
	IsBid                     bool
	OriginalQuantity          uint64
	BaseAssetQuantityCanceled uint64
	Timestamp                 uint64
}

var KindOrderCanceled = EventKind{Module: "order", Name: "OrderCanceled"}

func (e *OrderCanceled) decodeBCS(d *Decoder) {
	e.BalanceManagerID = d.ReadAddress()
	e.PoolID = d.ReadAddress()
	e.OrderID = d.ReadU128()
	e.ClientOrderID = d.ReadU64()
	e.Trader = d.ReadAddress()
	e.Price = d.ReadU64()
	e.IsBid = d.ReadBool()
	e.OriginalQuantity = d.ReadU64()
	e.BaseAssetQuantityCanceled = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *OrderCanceled) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteAddress(e.PoolID)
	enc.WriteU128(e.OrderID)
	enc.WriteU64(e.ClientOrderID)
	enc.WriteAddress(e.Trader)
	enc.WriteU64(e.Price)
	enc.WriteBool(e.IsBid)
	enc.WriteU64(e.OriginalQuantity)
	enc.WriteU64(e.BaseAssetQuantityCanceled)
	enc.WriteU64(e.Timestamp)
}

// OrderExpired is emitted when an order leaves the book by expiry. Same
// payload shape as OrderCanceled.
type OrderExpired struct {
	BalanceManagerID          ObjectID
	PoolID                    ObjectID
	OrderID                   U128
	ClientOrderID             uint64
	Trader                    Address
	Price                     uint64
	IsBid                     bool
	OriginalQuantity          uint64
	BaseAssetQuantityCanceled uint64
	Timestamp                 uint64
}

var KindOrderExpired = EventKind{Module: "order_info", Name: "OrderExpired"}

func (e *OrderExpired) decodeBCS(d *Decoder) {
	e.BalanceManagerID = d.ReadAddress()
	e.PoolID = d.ReadAddress()
	e.OrderID = d.ReadU128()
	e.ClientOrderID = d.ReadU64()
	e.Trader = d.ReadAddress()
	e.Price = d.ReadU64()
	e.IsBid = d.ReadBool()
	e.OriginalQuantity = d.ReadU64()
	e.BaseAssetQuantityCanceled = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *OrderExpired) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteAddress(e.PoolID)
	enc.WriteU128(e.OrderID)
	enc.WriteU64(e.ClientOrderID)
	enc.WriteAddress(e.Trader)
	enc.WriteU64(e.Price)
	enc.WriteBool(e.IsBid)
	enc.WriteU64(e.OriginalQuantity)
	enc.WriteU64(e.BaseAssetQuantityCanceled)
	enc.WriteU64(e.Timestamp)
}

// FlashLoanBorrowed is emitted when liquidity is borrowed inside a single
// transaction.
type FlashLoanBorrowed struct {
	PoolID         ObjectID
	BorrowQuantity uint64
	TypeName       string
}

var KindFlashLoanBorrowed = EventKind{Module: "vault", Name: "FlashLoanBorrowed"}

func (e *FlashLoanBorrowed) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.BorrowQuantity = d.ReadU64()
	e.TypeName = d.ReadString()
}

func (e *FlashLoanBorrowed) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteU64(e.BorrowQuantity)
	enc.WriteString(e.TypeName)
}

// PriceAdded records a conversion-rate observation between pools.
type PriceAdded struct {
	ConversionRate   uint64
	Timestamp        uint64
	IsBaseConversion bool
	ReferencePool    ObjectID
	TargetPool       ObjectID
}

var KindPriceAdded = EventKind{Module: "deep_price", Name: "PriceAdded"}

func (e *PriceAdded) decodeBCS(d *Decoder) {
	e.ConversionRate = d.ReadU64()
	e.Timestamp = d.ReadU64()
	e.IsBaseConversion = d.ReadBool()
	e.ReferencePool = d.ReadAddress()
	e.TargetPool = d.ReadAddress()
}

func (e *PriceAdded) encodeBCS(enc *Encoder) {
	enc.WriteU64(e.ConversionRate)
	enc.WriteU64(e.Timestamp)
	enc.WriteBool(e.IsBaseConversion)
	enc.WriteAddress(e.ReferencePool)
	enc.WriteAddress(e.TargetPool)
}

// VoteEvent records a governance vote move.
type VoteEvent struct {
	PoolID           ObjectID
	BalanceManagerID ObjectID
	Epoch            uint64
	FromProposalID   *ObjectID
	ToProposalID     ObjectID
	Stake            uint64
}

var KindVoteEvent = EventKind{Module: "state", Name: "VoteEvent"}

func (e *VoteEvent) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.BalanceManagerID = d.ReadAddress()
	e.Epoch = d.ReadU64()
	if d.ReadOption() {
		id := d.ReadAddress()
		e.FromProposalID = &id
	}
	e.ToProposalID = d.ReadAddress()
	e.Stake = d.ReadU64()
}

func (e *VoteEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteU64(e.Epoch)
	enc.WriteOption(e.FromProposalID != nil)
	if e.FromProposalID != nil {
		enc.WriteAddress(*e.FromProposalID)
	}
	enc.WriteAddress(e.ToProposalID)
	enc.WriteU64(e.Stake)
}

// StakeEvent records staking or unstaking against a pool.
type StakeEvent struct {
	PoolID           ObjectID
	BalanceManagerID ObjectID
	Epoch            uint64
	Amount           uint64
	Stake            bool
}

var KindStakeEvent = EventKind{Module: "state", Name: "StakeEvent"}

func (e *StakeEvent) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.BalanceManagerID = d.ReadAddress()
	e.Epoch = d.ReadU64()
	e.Amount = d.ReadU64()
	e.Stake = d.ReadBool()
}

func (e *StakeEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteU64(e.Epoch)
	enc.WriteU64(e.Amount)
	enc.WriteBool(e.Stake)
}

// RebateEvent records a fee rebate claim.
type RebateEvent struct {
	PoolID           ObjectID
	BalanceManagerID ObjectID
	Epoch            uint64
	ClaimAmount      uint64
}

var KindRebateEvent = EventKind{Module: "state", Name: "RebateEvent"}

func (e *RebateEvent) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.BalanceManagerID = d.ReadAddress()
	e.Epoch = d.ReadU64()
	e.ClaimAmount = d.ReadU64()
}

func (e *RebateEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteU64(e.Epoch)
	enc.WriteU64(e.ClaimAmount)
}

// ProposalEvent records a new fee proposal.
type ProposalEvent struct {
	PoolID           ObjectID
	BalanceManagerID ObjectID
	Epoch            uint64
	TakerFee         uint64
	MakerFee         uint64
	StakeRequired    uint64
}

var KindProposalEvent = EventKind{Module: "state", Name: "ProposalEvent"}

func (e *ProposalEvent) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.BalanceManagerID = d.ReadAddress()
	e.Epoch = d.ReadU64()
	e.TakerFee = d.ReadU64()
	e.MakerFee = d.ReadU64()
	e.StakeRequired = d.ReadU64()
}

func (e *ProposalEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteU64(e.Epoch)
	enc.WriteU64(e.TakerFee)
	enc.WriteU64(e.MakerFee)
	enc.WriteU64(e.StakeRequired)
}

// TradeParamsUpdateEvent records governance applying new trade parameters.
type TradeParamsUpdateEvent struct {
	TakerFee      uint64
	MakerFee      uint64
	StakeRequired uint64
}

var KindTradeParamsUpdate = EventKind{Module: "governance", Name: "TradeParamsUpdateEvent"}

func (e *TradeParamsUpdateEvent) decodeBCS(d *Decoder) {
	e.TakerFee = d.ReadU64()
	e.MakerFee = d.ReadU64()
	e.StakeRequired = d.ReadU64()
}

func (e *TradeParamsUpdateEvent) encodeBCS(enc *Encoder) {
	enc.WriteU64(e.TakerFee)
	enc.WriteU64(e.MakerFee)
	enc.WriteU64(e.StakeRequired)
}

// DeepBurned is generic over the pool's base and quote assets on chain, but
// the payload carries no data that depends on them, so one concrete decoder
// serves every instantiation.
type DeepBurned struct {
	PoolID     ObjectID
	DeepBurned uint64
}

var KindDeepBurned = EventKind{Module: "pool", Name: "DeepBurned", Arity: 2}

func (e *DeepBurned) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.DeepBurned = d.ReadU64()
}

func (e *DeepBurned) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteU64(e.DeepBurned)
}

// PoolCreated announces a new trading pool. Generic over base/quote on chain
// with a payload independent of the substitutions, like DeepBurned.
type PoolCreated struct {
	PoolID          ObjectID
	TakerFee        uint64
	MakerFee        uint64
	TickSize        uint64
	LotSize         uint64
	MinSize         uint64
	WhitelistedPool bool
	TreasuryAddress Address
}

var KindPoolCreated = EventKind{Module: "pool", Name: "PoolCreated", Arity: 2}

func (e *PoolCreated) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.TakerFee = d.ReadU64()
	e.MakerFee = d.ReadU64()
	e.TickSize = d.ReadU64()
	e.LotSize = d.ReadU64()
	e.MinSize = d.ReadU64()
	e.WhitelistedPool = d.ReadBool()
	e.TreasuryAddress = d.ReadAddress()
}

func (e *PoolCreated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteU64(e.TakerFee)
	enc.WriteU64(e.MakerFee)
	enc.WriteU64(e.TickSize)
	enc.WriteU64(e.LotSize)
	enc.WriteU64(e.MinSize)
	enc.WriteBool(e.WhitelistedPool)
	enc.WriteAddress(e.TreasuryAddress)
}

// ---------------------------------------------------------------------------
// Margin lending events
// ---------------------------------------------------------------------------

// MarginManagerEvent announces a new margin manager.
type MarginManagerEvent struct {
	MarginManagerID  ObjectID
	BalanceManagerID ObjectID
	Owner            Address
	Timestamp        uint64
}

var KindMarginManagerEvent = EventKind{Module: "margin_manager", Name: "MarginManagerEvent"}

func (e *MarginManagerEvent) decodeBCS(d *Decoder) {
	e.MarginManagerID = d.ReadAddress()
	e.BalanceManagerID = d.ReadAddress()
	e.Owner = d.ReadAddress()
	e.Timestamp = d.ReadU64()
}

func (e *MarginManagerEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginManagerID)
	enc.WriteAddress(e.BalanceManagerID)
	enc.WriteAddress(e.Owner)
	enc.WriteU64(e.Timestamp)
}

// LoanBorrowedEvent records a margin loan draw.
type LoanBorrowedEvent struct {
	MarginManagerID ObjectID
	MarginPoolID    ObjectID
	LoanAmount      uint64
	TotalBorrow     uint64
	TotalShares     uint64
	Timestamp       uint64
}

var KindLoanBorrowed = EventKind{Module: "margin_manager", Name: "LoanBorrowedEvent"}

func (e *LoanBorrowedEvent) decodeBCS(d *Decoder) {
	e.MarginManagerID = d.ReadAddress()
	e.MarginPoolID = d.ReadAddress()
	e.LoanAmount = d.ReadU64()
	e.TotalBorrow = d.ReadU64()
	e.TotalShares = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *LoanBorrowedEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginManagerID)
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteU64(e.LoanAmount)
	enc.WriteU64(e.TotalBorrow)
	enc.WriteU64(e.TotalShares)
	enc.WriteU64(e.Timestamp)
}

// LoanRepaidEvent records a margin loan repayment.
type LoanRepaidEvent struct {
	MarginManagerID ObjectID
	MarginPoolID    ObjectID
	RepayAmount     uint64
	RepayShares     uint64
	Timestamp       uint64
}

var KindLoanRepaid = EventKind{Module: "margin_manager", Name: "LoanRepaidEvent"}

func (e *LoanRepaidEvent) decodeBCS(d *Decoder) {
	e.MarginManagerID = d.ReadAddress()
	e.MarginPoolID = d.ReadAddress()
	e.RepayAmount = d.ReadU64()
	e.RepayShares = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *LoanRepaidEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginManagerID)
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteU64(e.RepayAmount)
	enc.WriteU64(e.RepayShares)
	enc.WriteU64(e.Timestamp)
}

// LiquidationEvent records a forced position close.
type LiquidationEvent struct {
	MarginManagerID   ObjectID
	MarginPoolID      ObjectID
	LiquidationAmount uint64
	PoolReward        uint64
	PoolDefault       uint64
	RiskRatio         uint64
	Timestamp         uint64
}

var KindLiquidation = EventKind{Module: "margin_manager", Name: "LiquidationEvent"}

func (e *LiquidationEvent) decodeBCS(d *Decoder) {
	e.MarginManagerID = d.ReadAddress()
	e.MarginPoolID = d.ReadAddress()
	e.LiquidationAmount = d.ReadU64()
	e.PoolReward = d.ReadU64()
	e.PoolDefault = d.ReadU64()
	e.RiskRatio = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *LiquidationEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginManagerID)
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteU64(e.LiquidationAmount)
	enc.WriteU64(e.PoolReward)
	enc.WriteU64(e.PoolDefault)
	enc.WriteU64(e.RiskRatio)
	enc.WriteU64(e.Timestamp)
}

// MarginPoolConfig carries supply-side pool limits.
type MarginPoolConfig struct {
	SupplyCap          uint64
	MaxUtilizationRate uint64
	ReferralSpread     uint64
	MinBorrow          uint64
}

func (c *MarginPoolConfig) decodeBCS(d *Decoder) {
	c.SupplyCap = d.ReadU64()
	c.MaxUtilizationRate = d.ReadU64()
	c.ReferralSpread = d.ReadU64()
	c.MinBorrow = d.ReadU64()
}

func (c *MarginPoolConfig) encodeBCS(enc *Encoder) {
	enc.WriteU64(c.SupplyCap)
	enc.WriteU64(c.MaxUtilizationRate)
	enc.WriteU64(c.ReferralSpread)
	enc.WriteU64(c.MinBorrow)
}

// InterestConfig carries the kinked interest curve parameters.
type InterestConfig struct {
	BaseRate           uint64
	BaseSlope          uint64
	OptimalUtilization uint64
	ExcessSlope        uint64
}

func (c *InterestConfig) decodeBCS(d *Decoder) {
	c.BaseRate = d.ReadU64()
	c.BaseSlope = d.ReadU64()
	c.OptimalUtilization = d.ReadU64()
	c.ExcessSlope = d.ReadU64()
}

func (c *InterestConfig) encodeBCS(enc *Encoder) {
	enc.WriteU64(c.BaseRate)
	enc.WriteU64(c.BaseSlope)
	enc.WriteU64(c.OptimalUtilization)
	enc.WriteU64(c.ExcessSlope)
}

// ProtocolConfig bundles pool and interest configuration plus a forward
// compatible extra-field map.
type ProtocolConfig struct {
	MarginPoolConfig MarginPoolConfig
	InterestConfig   InterestConfig
	ExtraFields      []ExtraField
}

// ExtraField is one entry of the on-chain VecMap<String, u64>.
type ExtraField struct {
	Key   string
	Value uint64
}

func (c *ProtocolConfig) decodeBCS(d *Decoder) {
	c.MarginPoolConfig.decodeBCS(d)
	c.InterestConfig.decodeBCS(d)
	n := d.ReadLen()
	if d.Err() != nil {
		return
	}
	if n > 0 {
		c.ExtraFields = make([]ExtraField, n)
		for i := 0; i < n; i++ {
			c.ExtraFields[i].Key = d.ReadString()
			c.ExtraFields[i].Value = d.ReadU64()
		}
	}
}

func (c *ProtocolConfig) encodeBCS(enc *Encoder) {
	c.MarginPoolConfig.encodeBCS(enc)
	c.InterestConfig.encodeBCS(enc)
	enc.WriteUleb128(uint32(len(c.ExtraFields)))
	for _, f := range c.ExtraFields {
		enc.WriteString(f.Key)
		enc.WriteU64(f.Value)
	}
}

// MarginPoolCreated announces a new margin pool.
type MarginPoolCreated struct {
	MarginPoolID    ObjectID
	MaintainerCapID ObjectID
	AssetType       string
	Config          ProtocolConfig
	Timestamp       uint64
}

var KindMarginPoolCreated = EventKind{Module: "margin_pool", Name: "MarginPoolCreated"}

func (e *MarginPoolCreated) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.MaintainerCapID = d.ReadAddress()
	e.AssetType = d.ReadString()
	e.Config.decodeBCS(d)
	e.Timestamp = d.ReadU64()
}

func (e *MarginPoolCreated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteAddress(e.MaintainerCapID)
	enc.WriteString(e.AssetType)
	e.Config.encodeBCS(enc)
	enc.WriteU64(e.Timestamp)
}

// MarginPoolLinkUpdated enables or disables a CLOB pool for a margin pool.
// (Emitted by the margin_pool module as DeepbookPoolUpdated.)
type MarginPoolLinkUpdated struct {
	MarginPoolID   ObjectID
	DeepbookPoolID ObjectID
	PoolCapID      ObjectID
	Enabled        bool
	Timestamp      uint64
}

var KindMarginPoolLinkUpdated = EventKind{Module: "margin_pool", Name: "DeepbookPoolUpdated"}

func (e *MarginPoolLinkUpdated) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.DeepbookPoolID = d.ReadAddress()
	e.PoolCapID = d.ReadAddress()
	e.Enabled = d.ReadBool()
	e.Timestamp = d.ReadU64()
}

func (e *MarginPoolLinkUpdated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteAddress(e.DeepbookPoolID)
	enc.WriteAddress(e.PoolCapID)
	enc.WriteBool(e.Enabled)
	enc.WriteU64(e.Timestamp)
}

// InterestParamsUpdated replaces a pool's interest curve.
type InterestParamsUpdated struct {
	MarginPoolID   ObjectID
	PoolCapID      ObjectID
	InterestConfig InterestConfig
	Timestamp      uint64
}

var KindInterestParamsUpdated = EventKind{Module: "margin_pool", Name: "InterestParamsUpdated"}

func (e *InterestParamsUpdated) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.PoolCapID = d.ReadAddress()
	e.InterestConfig.decodeBCS(d)
	e.Timestamp = d.ReadU64()
}

func (e *InterestParamsUpdated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteAddress(e.PoolCapID)
	e.InterestConfig.encodeBCS(enc)
	enc.WriteU64(e.Timestamp)
}

// MarginPoolConfigUpdated replaces a pool's supply-side limits.
type MarginPoolConfigUpdated struct {
	MarginPoolID     ObjectID
	PoolCapID        ObjectID
	MarginPoolConfig MarginPoolConfig
	Timestamp        uint64
}

var KindMarginPoolConfigUpdated = EventKind{Module: "margin_pool", Name: "MarginPoolConfigUpdated"}

func (e *MarginPoolConfigUpdated) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.PoolCapID = d.ReadAddress()
	e.MarginPoolConfig.decodeBCS(d)
	e.Timestamp = d.ReadU64()
}

func (e *MarginPoolConfigUpdated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteAddress(e.PoolCapID)
	e.MarginPoolConfig.encodeBCS(enc)
	enc.WriteU64(e.Timestamp)
}

// AssetSupplied records liquidity supplied to a margin pool.
type AssetSupplied struct {
	MarginPoolID ObjectID
	AssetType    string
	Supplier     Address
	SupplyAmount uint64
	SupplyShares uint64
	Timestamp    uint64
}

var KindAssetSupplied = EventKind{Module: "margin_pool", Name: "AssetSupplied"}

func (e *AssetSupplied) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.AssetType = d.ReadString()
	e.Supplier = d.ReadAddress()
	e.SupplyAmount = d.ReadU64()
	e.SupplyShares = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *AssetSupplied) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteString(e.AssetType)
	enc.WriteAddress(e.Supplier)
	enc.WriteU64(e.SupplyAmount)
	enc.WriteU64(e.SupplyShares)
	enc.WriteU64(e.Timestamp)
}

// AssetWithdrawn records liquidity withdrawn from a margin pool.
type AssetWithdrawn struct {
	MarginPoolID   ObjectID
	AssetType      string
	Supplier       Address
	WithdrawAmount uint64
	WithdrawShares uint64
	Timestamp      uint64
}

var KindAssetWithdrawn = EventKind{Module: "margin_pool", Name: "AssetWithdrawn"}

func (e *AssetWithdrawn) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.AssetType = d.ReadString()
	e.Supplier = d.ReadAddress()
	e.WithdrawAmount = d.ReadU64()
	e.WithdrawShares = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *AssetWithdrawn) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteString(e.AssetType)
	enc.WriteAddress(e.Supplier)
	enc.WriteU64(e.WithdrawAmount)
	enc.WriteU64(e.WithdrawShares)
	enc.WriteU64(e.Timestamp)
}

// MaintainerCapUpdated allows or revokes a maintainer capability.
type MaintainerCapUpdated struct {
	MaintainerCapID ObjectID
	Allowed         bool
	Timestamp       uint64
}

var KindMaintainerCapUpdated = EventKind{Module: "margin_registry", Name: "MaintainerCapUpdated"}

func (e *MaintainerCapUpdated) decodeBCS(d *Decoder) {
	e.MaintainerCapID = d.ReadAddress()
	e.Allowed = d.ReadBool()
	e.Timestamp = d.ReadU64()
}

func (e *MaintainerCapUpdated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MaintainerCapID)
	enc.WriteBool(e.Allowed)
	enc.WriteU64(e.Timestamp)
}

// DeepbookPoolRegistered records a CLOB pool registering for margin trading.
type DeepbookPoolRegistered struct {
	PoolID    ObjectID
	Timestamp uint64
}

var KindDeepbookPoolRegistered = EventKind{Module: "margin_registry", Name: "DeepbookPoolRegistered"}

func (e *DeepbookPoolRegistered) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.Timestamp = d.ReadU64()
}

func (e *DeepbookPoolRegistered) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteU64(e.Timestamp)
}

// DeepbookPoolToggled enables or disables a registered pool.
// (Emitted by the margin_registry module as DeepbookPoolUpdated.)
type DeepbookPoolToggled struct {
	PoolID    ObjectID
	Enabled   bool
	Timestamp uint64
}

var KindDeepbookPoolToggled = EventKind{Module: "margin_registry", Name: "DeepbookPoolUpdated"}

func (e *DeepbookPoolToggled) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.Enabled = d.ReadBool()
	e.Timestamp = d.ReadU64()
}

func (e *DeepbookPoolToggled) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	enc.WriteBool(e.Enabled)
	enc.WriteU64(e.Timestamp)
}

// RiskConfig carries the registry's per-pool risk parameters.
type RiskConfig struct {
	MinWithdrawRiskRatio       uint64
	MinBorrowRiskRatio         uint64
	LiquidationRiskRatio       uint64
	TargetLiquidationRiskRatio uint64
	UserLiquidationReward      uint64
	PoolLiquidationReward      uint64
}

func (c *RiskConfig) decodeBCS(d *Decoder) {
	c.MinWithdrawRiskRatio = d.ReadU64()
	c.MinBorrowRiskRatio = d.ReadU64()
	c.LiquidationRiskRatio = d.ReadU64()
	c.TargetLiquidationRiskRatio = d.ReadU64()
	c.UserLiquidationReward = d.ReadU64()
	c.PoolLiquidationReward = d.ReadU64()
}

func (c *RiskConfig) encodeBCS(enc *Encoder) {
	enc.WriteU64(c.MinWithdrawRiskRatio)
	enc.WriteU64(c.MinBorrowRiskRatio)
	enc.WriteU64(c.LiquidationRiskRatio)
	enc.WriteU64(c.TargetLiquidationRiskRatio)
	enc.WriteU64(c.UserLiquidationReward)
	enc.WriteU64(c.PoolLiquidationReward)
}

// DeepbookPoolConfigUpdated replaces a registered pool's risk parameters.
type DeepbookPoolConfigUpdated struct {
	PoolID    ObjectID
	Config    RiskConfig
	Timestamp uint64
}

var KindDeepbookPoolConfigUpdated = EventKind{Module: "margin_registry", Name: "DeepbookPoolConfigUpdated"}

func (e *DeepbookPoolConfigUpdated) decodeBCS(d *Decoder) {
	e.PoolID = d.ReadAddress()
	e.Config.decodeBCS(d)
	e.Timestamp = d.ReadU64()
}

func (e *DeepbookPoolConfigUpdated) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.PoolID)
	e.Config.encodeBCS(enc)
	enc.WriteU64(e.Timestamp)
}

// MaintainerFeesWithdrawn records a maintainer pulling accrued fees.
type MaintainerFeesWithdrawn struct {
	MarginPoolID    ObjectID
	MaintainerCapID ObjectID
	MaintainerFees  uint64
	Timestamp       uint64
}

var KindMaintainerFeesWithdrawn = EventKind{Module: "margin_pool", Name: "MaintainerFeesWithdrawn"}

func (e *MaintainerFeesWithdrawn) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.MaintainerCapID = d.ReadAddress()
	e.MaintainerFees = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *MaintainerFeesWithdrawn) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteAddress(e.MaintainerCapID)
	enc.WriteU64(e.MaintainerFees)
	enc.WriteU64(e.Timestamp)
}

// ProtocolFeesWithdrawn records the protocol pulling accrued fees.
type ProtocolFeesWithdrawn struct {
	MarginPoolID ObjectID
	ProtocolFees uint64
	Timestamp    uint64
}

var KindProtocolFeesWithdrawn = EventKind{Module: "margin_pool", Name: "ProtocolFeesWithdrawn"}

func (e *ProtocolFeesWithdrawn) decodeBCS(d *Decoder) {
	e.MarginPoolID = d.ReadAddress()
	e.ProtocolFees = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *ProtocolFeesWithdrawn) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.MarginPoolID)
	enc.WriteU64(e.ProtocolFees)
	enc.WriteU64(e.Timestamp)
}

// ReferralFeesClaimedEvent records a referrer claiming accumulated fees.
type ReferralFeesClaimedEvent struct {
	ReferralID ObjectID
	Owner      Address
	Fees       uint64
	Timestamp  uint64
}

var KindReferralFeesClaimed = EventKind{Module: "protocol_fees", Name: "ReferralFeesClaimedEvent"}

func (e *ReferralFeesClaimedEvent) decodeBCS(d *Decoder) {
	e.ReferralID = d.ReadAddress()
	e.Owner = d.ReadAddress()
	e.Fees = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *ReferralFeesClaimedEvent) encodeBCS(enc *Encoder) {
	enc.WriteAddress(e.ReferralID)
	enc.WriteAddress(e.Owner)
	enc.WriteU64(e.Fees)
	enc.WriteU64(e.Timestamp)
}

// ProtocolFeesIncreasedEvent records fee accrual across all buckets.
type ProtocolFeesIncreasedEvent struct {
	MaintainerFees uint64
	ProtocolFees   uint64
	ReferralFees   uint64
	TotalShares    uint64
	Timestamp      uint64
}

var KindProtocolFeesIncreased = EventKind{Module: "protocol_fees", Name: "ProtocolFeesIncreasedEvent"}

func (e *ProtocolFeesIncreasedEvent) decodeBCS(d *Decoder) {
	e.MaintainerFees = d.ReadU64()
	e.ProtocolFees = d.ReadU64()
	e.ReferralFees = d.ReadU64()
	e.TotalShares = d.ReadU64()
	e.Timestamp = d.ReadU64()
}

func (e *ProtocolFeesIncreasedEvent) encodeBCS(enc *Encoder) {
	enc.WriteU64(e.MaintainerFees)
	enc.WriteU64(e.ProtocolFees)
	enc.WriteU64(e.ReferralFees)
	enc.WriteU64(e.TotalShares)
	enc.WriteU64(e.Timestamp)
}
