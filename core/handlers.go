package core

// Handler plumbing shared by every pipeline: the protocol-transaction
// filter, move-call package extraction, transaction metadata, and a generic
// handler for the single-kind pipelines. Multiplex handlers that project
// several kinds into one wide table live in their own files.

import (
	"context"
	"fmt"
	"math"
)

// Handler is one pipeline's processor + commit pair. Process is pure and
// synchronous: checkpoint in, ordered rows out, no I/O. Commit bulk-inserts
// one batch into the handler's table, ignoring rows whose primary key
// already exists.
type Handler interface {
	Name() string
	Process(cp *Checkpoint) ([]Row, error)
	Commit(ctx context.Context, db DBTX, rows []Row) (int64, error)
}

// isProtocolTx is the cheap pre-filter: a transaction is interesting only if
// at least one input object carries a type from the active package set.
func isProtocolTx(tx *CheckpointTransaction, env Environment) bool {
	pkgs := AllPackages(env)
	for i := range tx.InputObjects {
		t := tx.InputObjects[i].Type
		if t == nil {
			continue
		}
		for _, p := range pkgs {
			if t.Address == p {
				return true
			}
		}
	}
	return false
}

// extractMoveCallPackage returns the package of the transaction's first
// command when it is a move call, or "" otherwise.
func extractMoveCallPackage(tx *CheckpointTransaction) string {
	if len(tx.Commands) == 0 || tx.Commands[0].Kind != CommandMoveCall {
		return ""
	}
	return tx.Commands[0].Package.String()
}

// txMeta caches the per-transaction values every emitted row shares.
type txMeta struct {
	sender      string
	digest      string
	pkg         string
	checkpoint  int64
	timestampMs int64
}

func newTxMeta(cp *Checkpoint, tx *CheckpointTransaction) txMeta {
	return txMeta{
		sender:      tx.Sender.String(),
		digest:      tx.Digest.String(),
		pkg:         extractMoveCallPackage(tx),
		checkpoint:  int64(cp.Summary.SequenceNumber),
		timestampMs: int64(cp.Summary.TimestampMs),
	}
}

// rowMeta builds the uniform row prefix for the event at the given index.
// The event digest is the transaction digest concatenated with the event's
// index within the transaction, which is stable across retries.
func (m txMeta) rowMeta(eventIndex int) RowMeta {
	return RowMeta{
		EventDigest:           fmt.Sprintf("%s%d", m.digest, eventIndex),
		Digest:                m.digest,
		Sender:                m.sender,
		Checkpoint:            m.checkpoint,
		CheckpointTimestampMs: m.timestampMs,
		Package:               m.pkg,
	}
}

// toI64 narrows an on-chain u64 to the store's i64, rejecting values that do
// not fit.
func toI64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, Errorf(Integrity, "u64 value %d overflows signed 64-bit column", v)
	}
	return int64(v), nil
}

// narrower batches u64→i64 narrowing with a sticky error, so row mappers can
// convert a dozen fields without a check per field. Overflow is an Integrity
// error and fatal to the batch.
type narrower struct {
	err error
}

func (n *narrower) i64(v uint64) int64 {
	out, err := toI64(v)
	if err != nil && n.err == nil {
		n.err = err
	}
	return out
}

func (n *narrower) i64p(v uint64) *int64 {
	out := n.i64(v)
	return &out
}

// tableCommitter implements Commit for handlers that write one table.
type tableCommitter struct {
	table   string
	columns []string
}

func (c tableCommitter) Commit(ctx context.Context, db DBTX, rows []Row) (int64, error) {
	return bulkInsertIgnore(ctx, db, c.table, c.columns, rows)
}

// eventHandler is the generic single-kind pipeline: match, decode, map.
type eventHandler[T any, PT interface {
	*T
	bcsValue
}] struct {
	tableCommitter
	name   string
	kind   EventKind
	env    Environment
	mapRow func(T, RowMeta) (Row, error)
}

func (h *eventHandler[T, PT]) Name() string { return h.name }

func (h *eventHandler[T, PT]) Process(cp *Checkpoint) ([]Row, error) {
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
			if !h.kind.Matches(&ev.Type, h.env) {
				continue
			}
			event, err := DecodeEvent[T, PT](ev.Contents)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s checkpoint %d event %s/%d: %w",
					h.name, cp.Summary.SequenceNumber, meta.digest, idx, err)
			}
			row, err := h.mapRow(event, meta.rowMeta(idx))
			if err != nil {
				return nil, fmt.Errorf("pipeline %s checkpoint %d event %s/%d: %w",
					h.name, cp.Summary.SequenceNumber, meta.digest, idx, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func newEventHandler[T any, PT interface {
	*T
	bcsValue
}](name string, kind EventKind, env Environment, table string, columns []string,
	mapRow func(T, RowMeta) (Row, error)) Handler {
	return &eventHandler[T, PT]{
		tableCommitter: tableCommitter{table: table, columns: columns},
		name:           name,
		kind:           kind,
		env:            env,
		mapRow:         mapRow,
	}
}

// AllHandlers builds every pipeline handler for the environment, in the
// order they are registered with the runtime.
func AllHandlers(env Environment) []Handler {
	return []Handler{
		NewOrderFillHandler(env),
		NewOrderUpdateHandler(env),
		NewBalancesHandler(env),
		NewFlashLoanHandler(env),
		NewPoolPriceHandler(env),
		NewProposalsHandler(env),
		NewRebatesHandler(env),
		NewStakesHandler(env),
		NewTradeParamsUpdateHandler(env),
		NewVotesHandler(env),
		NewDeepBurnedHandler(env),
		NewPoolCreatedHandler(env),
		NewMarginPoolOperationsHandler(env),
		NewMarginManagerOperationsHandler(env),
		NewMarginPoolAdminHandler(env),
		NewMarginRegistryHandler(env),
		NewMarginFeesHandler(env),
	}
}
