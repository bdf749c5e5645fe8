package core

// orderUpdateHandler projects the four order lifecycle events (placed,
// modified, canceled, expired) into one order_updates table; the status
// column discriminates.

import "fmt"

type orderUpdateHandler struct {
	tableCommitter
	env          Environment
	placedKind   EventKind
	modifiedKind EventKind
	canceledKind EventKind
	expiredKind  EventKind
}

// NewOrderUpdateHandler builds the order_update pipeline.
func NewOrderUpdateHandler(env Environment) Handler {
	return &orderUpdateHandler{
		tableCommitter: tableCommitter{table: "order_updates", columns: orderUpdateColumns},
		env:            env,
		placedKind:     KindOrderPlaced,
		modifiedKind:   KindOrderModified,
		canceledKind:   KindOrderCanceled,
		expiredKind:    KindOrderExpired,
	}
}

func (h *orderUpdateHandler) Name() string { return "order_update" }

func (h *orderUpdateHandler) Process(cp *Checkpoint) ([]Row, error) {
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
				row *OrderUpdateRow
				err error
			)
			switch {
			case h.placedKind.Matches(&ev.Type, h.env):
				row, err = h.placed(ev.Contents, meta.rowMeta(idx))
			case h.modifiedKind.Matches(&ev.Type, h.env):
				row, err = h.modified(ev.Contents, meta.rowMeta(idx))
			case h.canceledKind.Matches(&ev.Type, h.env):
				row, err = h.canceled(ev.Contents, meta.rowMeta(idx))
			case h.expiredKind.Matches(&ev.Type, h.env):
				row, err = h.expired(ev.Contents, meta.rowMeta(idx))
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

func (h *orderUpdateHandler) placed(contents []byte, meta RowMeta) (*OrderUpdateRow, error) {
	event, err := DecodeEvent[OrderPlaced](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	row := &OrderUpdateRow{
		RowMeta:          meta,
		Status:           OrderStatusPlaced,
		PoolID:           event.PoolID.String(),
		OrderID:          event.OrderID.String(),
		ClientOrderID:    n.i64(event.ClientOrderID),
		Price:            n.i64(event.Price),
		IsBid:            event.IsBid,
		OriginalQuantity: n.i64(event.PlacedQuantity),
		Quantity:         n.i64(event.PlacedQuantity),
		FilledQuantity:   0,
		OnchainTimestamp: n.i64(event.Timestamp),
		Trader:           event.Trader.String(),
		BalanceManagerID: event.BalanceManagerID.String(),
	}
	return row, n.err
}

func (h *orderUpdateHandler) modified(contents []byte, meta RowMeta) (*OrderUpdateRow, error) {
	event, err := DecodeEvent[OrderModified](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	row := &OrderUpdateRow{
		RowMeta:          meta,
		Status:           OrderStatusModified,
		PoolID:           event.PoolID.String(),
		OrderID:          event.OrderID.String(),
		ClientOrderID:    n.i64(event.ClientOrderID),
		Price:            n.i64(event.Price),
		IsBid:            event.IsBid,
		OriginalQuantity: n.i64(event.PreviousQuantity),
		Quantity:         n.i64(event.NewQuantity),
		FilledQuantity:   n.i64(event.FilledQuantity),
		OnchainTimestamp: n.i64(event.Timestamp),
		Trader:           event.Trader.String(),
		BalanceManagerID: event.BalanceManagerID.String(),
	}
	return row, n.err
}

func (h *orderUpdateHandler) canceled(contents []byte, meta RowMeta) (*OrderUpdateRow, error) {
	event, err := DecodeEvent[OrderCanceled](contents)
	if err != nil {
		return nil, err
	}
	if event.BaseAssetQuantityCanceled > event.OriginalQuantity {
		return nil, Errorf(Integrity,
			"canceled quantity %d exceeds original %d for order %s",
			event.BaseAssetQuantityCanceled, event.OriginalQuantity, event.OrderID)
	}
	var n narrower
	row := &OrderUpdateRow{
		RowMeta:          meta,
		Status:           OrderStatusCanceled,
		PoolID:           event.PoolID.String(),
		OrderID:          event.OrderID.String(),
		ClientOrderID:    n.i64(event.ClientOrderID),
		Price:            n.i64(event.Price),
		IsBid:            event.IsBid,
		OriginalQuantity: n.i64(event.OriginalQuantity),
		Quantity:         n.i64(event.BaseAssetQuantityCanceled),
		FilledQuantity:   n.i64(event.OriginalQuantity - event.BaseAssetQuantityCanceled),
		OnchainTimestamp: n.i64(event.Timestamp),
		Trader:           event.Trader.String(),
		BalanceManagerID: event.BalanceManagerID.String(),
	}
	return row, n.err
}

func (h *orderUpdateHandler) expired(contents []byte, meta RowMeta) (*OrderUpdateRow, error) {
	event, err := DecodeEvent[OrderExpired](contents)
	if err != nil {
		return nil, err
	}
	if event.BaseAssetQuantityCanceled > event.OriginalQuantity {
		return nil, Errorf(Integrity,
			"expired quantity %d exceeds original %d for order %s",
			event.BaseAssetQuantityCanceled, event.OriginalQuantity, event.OrderID)
	}
	var n narrower
	row := &OrderUpdateRow{
		RowMeta:          meta,
		Status:           OrderStatusExpired,
		PoolID:           event.PoolID.String(),
		OrderID:          event.OrderID.String(),
		ClientOrderID:    n.i64(event.ClientOrderID),
		Price:            n.i64(event.Price),
		IsBid:            event.IsBid,
		OriginalQuantity: n.i64(event.OriginalQuantity),
		Quantity:         n.i64(event.BaseAssetQuantityCanceled),
		FilledQuantity:   n.i64(event.OriginalQuantity - event.BaseAssetQuantityCanceled),
		OnchainTimestamp: n.i64(event.Timestamp),
		Trader:           event.Trader.String(),
		BalanceManagerID: event.BalanceManagerID.String(),
	}
	return row, n.err
}
