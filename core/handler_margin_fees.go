package core

// marginFeesHandler projects the four fee accrual and withdrawal events into
// margin_fees, discriminated by fee_type.

import "fmt"

type marginFeesHandler struct {
	tableCommitter
	env            Environment
	maintainerKind EventKind
	protocolKind   EventKind
	referralKind   EventKind
	increasedKind  EventKind
}

// NewMarginFeesHandler builds the margin_fees pipeline.
func NewMarginFeesHandler(env Environment) Handler {
	return &marginFeesHandler{
		tableCommitter: tableCommitter{table: "margin_fees", columns: marginFeesColumns},
		env:            env,
		maintainerKind: KindMaintainerFeesWithdrawn,
		protocolKind:   KindProtocolFeesWithdrawn,
		referralKind:   KindReferralFeesClaimed,
		increasedKind:  KindProtocolFeesIncreased,
	}
}

func (h *marginFeesHandler) Name() string { return "margin_fees" }

func (h *marginFeesHandler) Process(cp *Checkpoint) ([]Row, error) {
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
				row *MarginFeesRow
				err error
			)
			switch {
			case h.maintainerKind.Matches(&ev.Type, h.env):
				row, err = h.maintainerWithdrawn(ev.Contents, meta.rowMeta(idx))
			case h.protocolKind.Matches(&ev.Type, h.env):
				row, err = h.protocolWithdrawn(ev.Contents, meta.rowMeta(idx))
			case h.referralKind.Matches(&ev.Type, h.env):
				row, err = h.referralClaimed(ev.Contents, meta.rowMeta(idx))
			case h.increasedKind.Matches(&ev.Type, h.env):
				row, err = h.increased(ev.Contents, meta.rowMeta(idx))
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

func (h *marginFeesHandler) maintainerWithdrawn(contents []byte, meta RowMeta) (*MarginFeesRow, error) {
	event, err := DecodeEvent[MaintainerFeesWithdrawn](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.MarginPoolID.String()
	capID := event.MaintainerCapID.String()
	row := &MarginFeesRow{
		RowMeta:          meta,
		FeeType:          "maintainer_withdrawn",
		MarginPoolID:     &pool,
		MaintainerCapID:  &capID,
		Fees:             n.i64p(event.MaintainerFees),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginFeesHandler) protocolWithdrawn(contents []byte, meta RowMeta) (*MarginFeesRow, error) {
	event, err := DecodeEvent[ProtocolFeesWithdrawn](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	pool := event.MarginPoolID.String()
	row := &MarginFeesRow{
		RowMeta:          meta,
		FeeType:          "protocol_withdrawn",
		MarginPoolID:     &pool,
		Fees:             n.i64p(event.ProtocolFees),
		ProtocolFees:     n.i64p(event.ProtocolFees),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginFeesHandler) referralClaimed(contents []byte, meta RowMeta) (*MarginFeesRow, error) {
	event, err := DecodeEvent[ReferralFeesClaimedEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	referral := event.ReferralID.String()
	owner := event.Owner.String()
	row := &MarginFeesRow{
		RowMeta:          meta,
		FeeType:          "referral_claimed",
		ReferralID:       &referral,
		Owner:            &owner,
		Fees:             n.i64p(event.Fees),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}

func (h *marginFeesHandler) increased(contents []byte, meta RowMeta) (*MarginFeesRow, error) {
	event, err := DecodeEvent[ProtocolFeesIncreasedEvent](contents)
	if err != nil {
		return nil, err
	}
	var n narrower
	row := &MarginFeesRow{
		RowMeta:          meta,
		FeeType:          "protocol_increased",
		MaintainerFees:   n.i64p(event.MaintainerFees),
		ProtocolFees:     n.i64p(event.ProtocolFees),
		ReferralFees:     n.i64p(event.ReferralFees),
		TotalShares:      n.i64p(event.TotalShares),
		OnchainTimestamp: n.i64(event.Timestamp),
	}
	return row, n.err
}
