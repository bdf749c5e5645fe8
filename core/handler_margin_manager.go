package core

// marginManagerOperationsHandler projects the four margin_manager lifecycle
// events (created, borrow, repay, liquidate) into one wide table; columns
// the variant does not populate stay NULL.

import "fmt"

type marginManagerOperationsHandler struct {
	tableCommitter
	env         Environment
	createdKind EventKind
	borrowKind  EventKind
	repayKind   EventKind
	liqKind     EventKind
}

// NewMarginManagerOperationsHandler builds the margin_manager_operations
// pipeline.
func NewMarginManagerOperationsHandler(env Environment) Handler {
	return &marginManagerOperationsHandler{
		tableCommitter: tableCommitter{table: "margin_manager_operations", columns: marginManagerOperationColumns},
		env:            env,
		createdKind:    KindMarginManagerEvent,
		borrowKind:     KindLoanBorrowed,
		repayKind:      KindLoanRepaid,
		liqKind:        KindLiquidation,
	}
}

func (h *marginManagerOperationsHandler) Name() string { return "margin_manager_operations" }

func (h *marginManagerOperationsHandler) Process(cp *Checkpoint) ([]Row, error) {
	var rows []Row
	for i := range cp.Transactions {
		tx := &cp.Transactions[i]
		if !isProtocolTx(tx, h.env) {
			continue
		}
		if len(tx.Events) == 0 {
			continue
		}
		meta := newTxMeta(cp, tx)
		for idx := range tx.Events {
			ev := &tx.Events[idx]
			var (
				row *MarginManagerOperationRow
				err error
			)
			switch {
			case h.createdKind.Matches(&ev.Type, h.env):
				row, err = h.created(ev.Contents, meta.rowMeta(idx))
			case h.borrowKind.Matches(&ev.Type, h.env):
				row, err = h.borrow(ev.Contents, meta.rowMeta(idx))
			case h.repayKind.Matches(&ev.Type, h.env):
				row, err = h.repay(ev.Contents, meta.rowMeta(idx))
			case h.liqKind.Matches(&ev.Type, h.env):
				row, err = h.liquidate(ev.Contents, meta.rowMeta(idx))
			default:
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("pipeline %s checkpoint %d event %s/%d: %w",
					h.Name(), cp.Summary.SequenceNumber, meta.digest, idx, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (h *marginManagerOperationsHandler) created(contents []byte, meta RowMeta) (*MarginManagerOperationRow, error) {
	event, err := DecodeEvent[MarginManagerEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	balanceManager := event.BalanceManagerID.String()
	owner := event.Owner.String()
	row := &MarginManagerOperationRow{
		RowMeta:          meta,
		MarginManagerID:  event.MarginManagerID.String(),
		BalanceManagerID: &balanceManager,
		Owner:            &owner,
		OperationType:    "created",
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginManagerOperationsHandler) borrow(contents []byte, meta RowMeta) (*MarginManagerOperationRow, error) {
	event, err := DecodeEvent[LoanBorrowedEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.MarginPoolID.String()
	row := &MarginManagerOperationRow{
		RowMeta:          meta,
		MarginManagerID:  event.MarginManagerID.String(),
		MarginPoolID:     &pool,
		OperationType:    "borrow",
		LoanAmount:       n.i64p(event.LoanAmount),
		TotalBorrow:      n.i64p(event.TotalBorrow),
		TotalShares:      n.i64p(event.TotalShares),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginManagerOperationsHandler) repay(contents []byte, meta RowMeta) (*MarginManagerOperationRow, error) {
	event, err := DecodeEvent[LoanRepaidEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.MarginPoolID.String()
	row := &MarginManagerOperationRow{
		RowMeta:          meta,
		MarginManagerID:  event.MarginManagerID.String(),
		MarginPoolID:     &pool,
		OperationType:    "repay",
		RepayAmount:      n.i64p(event.RepayAmount),
		RepayShares:      n.i64p(event.RepayShares),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginManagerOperationsHandler) liquidate(contents []byte, meta RowMeta) (*MarginManagerOperationRow, error) {
	event, err := DecodeEvent[LiquidationEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.MarginPoolID.String()
	row := &MarginManagerOperationRow{
		RowMeta:           meta,
		MarginManagerID:   event.MarginManagerID.String(),
		MarginPoolID:      &pool,
		OperationType:     "liquidate",
		LiquidationAmount: n.i64p(event.LiquidationAmount),
		PoolReward:        n.i64p(event.PoolReward),
		PoolDefault:       n.i64p(event.PoolDefault),
		RiskRatio:         n.i64p(event.RiskRatio),
		OnchainTimestamp:  n.i64(event.Timestamp),
	}
	return row, n.err
}
