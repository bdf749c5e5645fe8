package core

// Single-kind handlers for the governance and staking event families.

// NewProposalsHandler indexes state::ProposalEvent into proposals.
func NewProposalsHandler(env Environment) Handler {
	return newEventHandler[ProposalEvent]("proposals", KindProposalEvent, env,
		"proposals", proposalColumns,
		func(ev ProposalEvent, meta RowMeta) (Row, error) {
			var n narrower
			row := &ProposalRow{
				RowMeta:          meta,
				PoolID:           ev.PoolID.String(),
				BalanceManagerID: ev.BalanceManagerID.String(),
				Epoch:            n.i64(ev.Epoch),
				TakerFee:         n.i64(ev.TakerFee),
				MakerFee:         n.i64(ev.MakerFee),
				StakeRequired:    n.i64(ev.StakeRequired),
			}
			return row, n.err
		})
}

// NewRebatesHandler indexes state::RebateEvent into rebates.
func NewRebatesHandler(env Environment) Handler {
	return newEventHandler[RebateEvent]("rebates", KindRebateEvent, env,
		"rebates", rebateColumns,
		func(ev RebateEvent, meta RowMeta) (Row, error) {
			var n narrower
			row := &RebateRow{
				RowMeta:          meta,
				PoolID:           ev.PoolID.String(),
				BalanceManagerID: ev.BalanceManagerID.String(),
				Epoch:            n.i64(ev.Epoch),
				ClaimAmount:      n.i64(ev.ClaimAmount),
			}
			return row, n.err
		})
}

// NewStakesHandler indexes state::StakeEvent into stakes.
func NewStakesHandler(env Environment) Handler {
	return newEventHandler[StakeEvent]("stakes", KindStakeEvent, env,
		"stakes", stakeColumns,
		func(ev StakeEvent, meta RowMeta) (Row, error) {
			var n narrower
			row := &StakeRow{
				RowMeta:          meta,
				PoolID:           ev.PoolID.String(),
				BalanceManagerID: ev.BalanceManagerID.String(),
				Epoch:            n.i64(ev.Epoch),
				Amount:           n.i64(ev.Amount),
				Stake:            ev.Stake,
			}
			return row, n.err
		})
}

// NewTradeParamsUpdateHandler indexes governance::TradeParamsUpdateEvent
// into trade_params_update. The pool id is recovered from the transaction's
// input objects: the update always touches exactly one Pool shared object.
func NewTradeParamsUpdateHandler(env Environment) Handler {
	h := newEventHandler[TradeParamsUpdateEvent]("trade_params_update",
		KindTradeParamsUpdate, env, "trade_params_update", tradeParamsColumns, nil)
	eh := h.(*eventHandler[TradeParamsUpdateEvent, *TradeParamsUpdateEvent])
	eh.mapRow = func(ev TradeParamsUpdateEvent, meta RowMeta) (Row, error) {
		var n narrower
		row := &TradeParamsUpdateRow{
			RowMeta:       meta,
			PoolID:        "0x0",
			TakerFee:      n.i64(ev.TakerFee),
			MakerFee:      n.i64(ev.MakerFee),
			StakeRequired: n.i64(ev.StakeRequired),
		}
		return row, n.err
	}
	return &tradeParamsHandler{eventHandler: eh, env: env}
}

// tradeParamsHandler wraps the generic handler to stamp the pool id found in
// the transaction inputs onto every row of that transaction.
type tradeParamsHandler struct {
	*eventHandler[TradeParamsUpdateEvent, *TradeParamsUpdateEvent]
	env Environment
}

func (h *tradeParamsHandler) Process(cp *Checkpoint) ([]Row, error) {
	rows, err := h.eventHandler.Process(cp)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	// Index pool objects by transaction digest once, then patch the rows.
	poolByDigest := make(map[string]string)
	for i := range cp.Transactions {
		tx := &cp.Transactions[i]
		if id, ok := findPoolInput(tx, h.env); ok {
			poolByDigest[tx.Digest.String()] = id
		}
	}
	for _, r := range rows {
		row := r.(*TradeParamsUpdateRow)
		if id, ok := poolByDigest[row.Digest]; ok {
			row.PoolID = id
		}
	}
	return rows, nil
}

// findPoolInput locates an input object whose type is a Pool struct under an
// active core package.
func findPoolInput(tx *CheckpointTransaction, env Environment) (string, bool) {
	pkgs := CorePackages(env)
	for i := range tx.InputObjects {
		t := tx.InputObjects[i].Type
		if t == nil || t.Name != "Pool" {
			continue
		}
		for _, p := range pkgs {
			if t.Address == p {
				return tx.InputObjects[i].ID.String(), true
			}
		}
	}
	return "", false
}

// NewVotesHandler indexes state::VoteEvent into votes.
func NewVotesHandler(env Environment) Handler {
	return newEventHandler[VoteEvent]("votes", KindVoteEvent, env,
		"votes", voteColumns,
		func(ev VoteEvent, meta RowMeta) (Row, error) {
			var n narrower
			row := &VoteRow{
				RowMeta:          meta,
				PoolID:           ev.PoolID.String(),
				BalanceManagerID: ev.BalanceManagerID.String(),
				Epoch:            n.i64(ev.Epoch),
				ToProposalID:     ev.ToProposalID.String(),
				Stake:            n.i64(ev.Stake),
			}
			if ev.FromProposalID != nil {
				s := ev.FromProposalID.String()
				row.FromProposalID = &s
			}
			return row, n.err
		})
}
