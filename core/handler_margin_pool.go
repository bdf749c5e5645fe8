package core

// Margin pool handlers: supply-side operations and the admin multiplex.

import (
	"encoding/json"
	"fmt"
)

// marginPoolOperationsHandler projects margin_pool::AssetSupplied and
// AssetWithdrawn into one table, discriminated by operation_type.
type marginPoolOperationsHandler struct {
	tableCommitter
	env           Environment
	suppliedKind  EventKind
	withdrawnKind EventKind
}

// NewMarginPoolOperationsHandler builds the margin_pool_operations pipeline.
func NewMarginPoolOperationsHandler(env Environment) Handler {
	return &marginPoolOperationsHandler{
		tableCommitter: tableCommitter{table: "margin_pool_operations", columns: marginPoolOperationColumns},
		env:            env,
		suppliedKind:   KindAssetSupplied,
		withdrawnKind:  KindAssetWithdrawn,
	}
}

func (h *marginPoolOperationsHandler) Name() string { return "margin_pool_operations" }

func (h *marginPoolOperationsHandler) Process(cp *Checkpoint) ([]Row, error) {
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
			switch {
			case h.suppliedKind.Matches(&ev.Type, h.env):
				event, err := DecodeEvent[AssetSupplied](ev.Contents)
				if err != nil {
					return nil, err
				}
				var n narrower
				row := &MarginPoolOperationRow{
					RowMeta:          meta.rowMeta(idx),
					MarginPoolID:     event.MarginPoolID.String(),
					AssetType:        event.AssetType,
					Supplier:         event.Supplier.String(),
					Amount:           n.i64(event.SupplyAmount),
					Shares:           n.i64(event.SupplyShares),
					OperationType:    "supply",
					OnchainTimestamp: n.i64(event.Timestamp),
				}
				if n.err != nil {
					return nil, n.err
				}
				rows = append(rows, row)
			case h.withdrawnKind.Matches(&ev.Type, h.env):
				event, err := DecodeEvent[AssetWithdrawn](ev.Contents)
				if err != nil {
					return nil, err
				}
				var n narrower
				row := &MarginPoolOperationRow{
					RowMeta:          meta.rowMeta(idx),
					MarginPoolID:     event.MarginPoolID.String(),
					AssetType:        event.AssetType,
					Supplier:         event.Supplier.String(),
					Amount:           n.i64(event.WithdrawAmount),
					Shares:           n.i64(event.WithdrawShares),
					OperationType:    "withdraw",
					OnchainTimestamp: n.i64(event.Timestamp),
				}
				if n.err != nil {
					return nil, n.err
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// marginPoolAdminHandler projects pool creation and configuration changes
// into margin_pool_admin, discriminated by event_type; config payloads land
// as JSON.
type marginPoolAdminHandler struct {
	tableCommitter
	env         Environment
	createdKind EventKind
	linkKind    EventKind
	rateKind    EventKind
	capsKind    EventKind
}

// NewMarginPoolAdminHandler builds the margin_pool_admin pipeline.
func NewMarginPoolAdminHandler(env Environment) Handler {
	return &marginPoolAdminHandler{
		tableCommitter: tableCommitter{table: "margin_pool_admin", columns: marginPoolAdminColumns},
		env:            env,
		createdKind:    KindMarginPoolCreated,
		linkKind:       KindMarginPoolLinkUpdated,
		rateKind:       KindInterestParamsUpdated,
		capsKind:       KindMarginPoolConfigUpdated,
	}
}

func (h *marginPoolAdminHandler) Name() string { return "margin_pool_admin" }

func (h *marginPoolAdminHandler) Process(cp *Checkpoint) ([]Row, error) {
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
				row *MarginPoolAdminRow
				err error
			)
			switch {
			case h.createdKind.Matches(&ev.Type, h.env):
				row, err = h.created(ev.Contents, meta.rowMeta(idx))
			case h.linkKind.Matches(&ev.Type, h.env):
				row, err = h.linkUpdated(ev.Contents, meta.rowMeta(idx))
			case h.rateKind.Matches(&ev.Type, h.env):
				row, err = h.interestUpdated(ev.Contents, meta.rowMeta(idx))
			case h.capsKind.Matches(&ev.Type, h.env):
				row, err = h.configUpdated(ev.Contents, meta.rowMeta(idx))
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

func (h *marginPoolAdminHandler) created(contents []byte, meta RowMeta) (*MarginPoolAdminRow, error) {
	event, err := DecodeEvent[MarginPoolCreated](contents)
	if err != nil {
		return nil, err
	}
	cfg, err := configJSON(event.Config)
	if err != nil {
		return nil, err
	}
	var n narrower
	capID := event.MaintainerCapID.String()
	asset := event.AssetType
	row := &MarginPoolAdminRow{
		RowMeta:          meta,
		MarginPoolID:     event.MarginPoolID.String(),
		EventType:        "created",
		MaintainerCapID:  &capID,
		AssetType:        &asset,
		ConfigJSON:       cfg,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginPoolAdminHandler) linkUpdated(contents []byte, meta RowMeta) (*MarginPoolAdminRow, error) {
	event, err := DecodeEvent[MarginPoolLinkUpdated](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	deepbookPool := event.DeepbookPoolID.String()
	poolCap := event.PoolCapID.String()
	enabled := event.Enabled
	row := &MarginPoolAdminRow{
		RowMeta:          meta,
		MarginPoolID:     event.MarginPoolID.String(),
		EventType:        "pool_updated",
		DeepbookPoolID:   &deepbookPool,
		PoolCapID:        &poolCap,
		Enabled:          &enabled,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginPoolAdminHandler) interestUpdated(contents []byte, meta RowMeta) (*MarginPoolAdminRow, error) {
	event, err := DecodeEvent[InterestParamsUpdated](contents)
	if err != nil {
		return nil, err
	}
	cfg, err := configJSON(event.InterestConfig)
	if err != nil {
		return nil, err
	}
	var n narrower
	poolCap := event.PoolCapID.String()
	row := &MarginPoolAdminRow{
		RowMeta:          meta,
		MarginPoolID:     event.MarginPoolID.String(),
		EventType:        "interest_updated",
		PoolCapID:        &poolCap,
		ConfigJSON:       cfg,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginPoolAdminHandler) configUpdated(contents []byte, meta RowMeta) (*MarginPoolAdminRow, error) {
	event, err := DecodeEvent[MarginPoolConfigUpdated](contents)
	if err != nil {
		return nil, err
	}
	cfg, err := configJSON(event.MarginPoolConfig)
	if err != nil {
		return nil, err
	}
	var n narrower
	poolCap := event.PoolCapID.String()
	row := &MarginPoolAdminRow{
		RowMeta:          meta,
		MarginPoolID:     event.MarginPoolID.String(),
		EventType:        "config_updated",
		PoolCapID:        &poolCap,
		ConfigJSON:       cfg,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

// configJSON renders a decoded config payload for a JSONB column.
func configJSON(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(Integrity, err)
	}
	return b, nil
}
