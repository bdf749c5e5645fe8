package core

// Single-kind handlers for balance-manager, vault and price events.

// NewBalancesHandler indexes balance_manager::BalanceEvent into balances.
func NewBalancesHandler(env Environment) Handler {
	return newEventHandler[BalanceEvent]("balances", KindBalanceEvent, env,
		"balances", balanceColumns,
		func(ev BalanceEvent, meta RowMeta) (Row, error) {
			var n narrower
			row := &BalanceRow{
				RowMeta:          meta,
				BalanceManagerID: ev.BalanceManagerID.String(),
				Asset:            ev.Asset,
				Amount:           n.i64(ev.Amount),
				Deposit:          ev.Deposit,
			}
			return row, n.err
		})
}

// NewFlashLoanHandler indexes vault::FlashLoanBorrowed into flashloans.
func NewFlashLoanHandler(env Environment) Handler {
	return newEventHandler[FlashLoanBorrowed]("flash_loan", KindFlashLoanBorrowed, env,
		"flashloans", flashloanColumns,
		func(ev FlashLoanBorrowed, meta RowMeta) (Row, error) {
			var n narrower
			row := &FlashloanRow{
				RowMeta:        meta,
				PoolID:         ev.PoolID.String(),
				BorrowQuantity: n.i64(ev.BorrowQuantity),
				Borrow:         true,
				TypeName:       ev.TypeName,
			}
			return row, n.err
		})
}

// NewPoolPriceHandler indexes deep_price::PriceAdded into pool_prices.
func NewPoolPriceHandler(env Environment) Handler {
	return newEventHandler[PriceAdded]("pool_price", KindPriceAdded, env,
		"pool_prices", poolPriceColumns,
		func(ev PriceAdded, meta RowMeta) (Row, error) {
			var n narrower
			row := &PoolPriceRow{
				RowMeta:        meta,
				TargetPool:     ev.TargetPool.String(),
				ReferencePool:  ev.ReferencePool.String(),
				ConversionRate: n.i64(ev.ConversionRate),
			}
			return row, n.err
		})
}
