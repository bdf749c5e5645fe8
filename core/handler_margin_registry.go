package core

// marginRegistryHandler projects registry administration events into
// margin_registry_events, discriminated by event_type.

import "fmt"

type marginRegistryHandler struct {
	tableCommitter
	env            Environment
	capKind        EventKind
	registeredKind EventKind
	toggledKind    EventKind
	configKind     EventKind
}

// NewMarginRegistryHandler builds the margin_registry_events pipeline.
func NewMarginRegistryHandler(env Environment) Handler {
	return &marginRegistryHandler{
		tableCommitter: tableCommitter{table: "margin_registry_events", columns: marginRegistryEventColumns},
		env:            env,
		capKind:        KindMaintainerCapUpdated,
		registeredKind: KindDeepbookPoolRegistered,
		toggledKind:    KindDeepbookPoolToggled,
		configKind:     KindDeepbookPoolConfigUpdated,
	}
}

func (h *marginRegistryHandler) Name() string { return "margin_registry_events" }

func (h *marginRegistryHandler) Process(cp *Checkpoint) ([]Row, error) {
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
				row *MarginRegistryEventRow
				err error
			)
			switch {
			case h.capKind.Matches(&ev.Type, h.env):
				row, err = h.capUpdated(ev.Contents, meta.rowMeta(idx))
			case h.registeredKind.Matches(&ev.Type, h.env):
				row, err = h.registered(ev.Contents, meta.rowMeta(idx))
			case h.toggledKind.Matches(&ev.Type, h.env):
				row, err = h.toggled(ev.Contents, meta.rowMeta(idx))
			case h.configKind.Matches(&ev.Type, h.env):
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

func (h *marginRegistryHandler) capUpdated(contents []byte, meta RowMeta) (*MarginRegistryEventRow, error) {
	event, err := DecodeEvent[MaintainerCapUpdated](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	capID := event.MaintainerCapID.String()
	allowed := event.Allowed
	row := &MarginRegistryEventRow{
		RowMeta:          meta,
		EventType:        "maintainer_cap_updated",
		MaintainerCapID:  &capID,
		Allowed:          &allowed,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginRegistryHandler) registered(contents []byte, meta RowMeta) (*MarginRegistryEventRow, error) {
	event, err := DecodeEvent[DeepbookPoolRegistered](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.PoolID.String()
	row := &MarginRegistryEventRow{
		RowMeta:          meta,
		EventType:        "pool_registered",
		PoolID:           &pool,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginRegistryHandler) toggled(contents []byte, meta RowMeta) (*MarginRegistryEventRow, error) {
	event, err := DecodeEvent[DeepbookPoolToggled](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.PoolID.String()
	enabled := event.Enabled
	row := &MarginRegistryEventRow{
		RowMeta:          meta,
		EventType:        "pool_updated",
		PoolID:           &pool,
		Enabled:          &enabled,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginRegistryHandler) configUpdated(contents []byte, meta RowMeta) (*MarginRegistryEventRow, error) {
	event, err := DecodeEvent[DeepbookPoolConfigUpdated](contents)
	if err != nil {
		return nil, err
	}
	cfg, err := configJSON(event.Config)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.PoolID.String()
	row := &MarginRegistryEventRow{
		RowMeta:          meta,
		EventType:        "pool_config_updated",
		PoolID:           &pool,
		ConfigJSON:       cfg,
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}
