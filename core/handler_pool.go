package core

// Handlers for pool lifecycle events. Both kinds are generic over the pool's
// base and quote assets on chain; the payloads are independent of the
// substitutions, so the concrete decoders in events.go serve every
// instantiation and the matcher only checks arity.

// NewDeepBurnedHandler indexes pool::DeepBurned into deep_burned.
func NewDeepBurnedHandler(env Environment) Handler {
	return newEventHandler[DeepBurned]("deep_burned", KindDeepBurned, env,
		"deep_burned", deepBurnedColumns,
		func(ev DeepBurned, meta RowMeta) (Row, error) {
			var n narrower
			row := &DeepBurnedRow{
				RowMeta:      meta,
				PoolID:       ev.PoolID.String(),
				BurnedAmount: n.i64(ev.DeepBurned),
			}
			return row, n.err
		})
}

// NewPoolCreatedHandler indexes pool::PoolCreated into pool_created.
func NewPoolCreatedHandler(env Environment) Handler {
	return newEventHandler[PoolCreated]("pool_created", KindPoolCreated, env,
		"pool_created", poolCreatedColumns,
		func(ev PoolCreated, meta RowMeta) (Row, error) {
			var n narrower
			row := &PoolCreatedRow{
				RowMeta:         meta,
				PoolID:          ev.PoolID.String(),
				TakerFee:        n.i64(ev.TakerFee),
				MakerFee:        n.i64(ev.MakerFee),
				TickSize:        n.i64(ev.TickSize),
				LotSize:         n.i64(ev.LotSize),
				MinSize:         n.i64(ev.MinSize),
				WhitelistedPool: ev.WhitelistedPool,
				TreasuryAddress: ev.TreasuryAddress.String(),
			}
			return row, n.err
		})
}
