package core

// NewOrderFillHandler indexes order_info::OrderFilled into order_fills.
func NewOrderFillHandler(env Environment) Handler {
	return newEventHandler[OrderFilled]("order_fill", KindOrderFilled, env,
		"order_fills", orderFillColumns,
		func(ev OrderFilled, meta RowMeta) (Row, error) {
			var n narrower
			row := &OrderFillRow{
				RowMeta:               meta,
				PoolID:                ev.PoolID.String(),
				MakerOrderID:          ev.MakerOrderID.String(),
				TakerOrderID:          ev.TakerOrderID.String(),
				MakerClientOrderID:    n.i64(ev.MakerClientOrderID),
				TakerClientOrderID:    n.i64(ev.TakerClientOrderID),
				Price:                 n.i64(ev.Price),
				TakerFee:              n.i64(ev.TakerFee),
				TakerFeeIsDeep:        ev.TakerFeeIsDeep,
				MakerFee:              n.i64(ev.MakerFee),
				MakerFeeIsDeep:        ev.MakerFeeIsDeep,
				TakerIsBid:            ev.TakerIsBid,
				BaseQuantity:          n.i64(ev.BaseQuantity),
				QuoteQuantity:         n.i64(ev.QuoteQuantity),
				MakerBalanceManagerID: ev.MakerBalanceManagerID.String(),
				TakerBalanceManagerID: ev.TakerBalanceManagerID.String(),
				OnchainTimestamp:      n.i64(ev.Timestamp),
			}
			return row, n.err
		})
}
