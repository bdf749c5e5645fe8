package core

// Wire codec for sealed checkpoint bundles. A serialized checkpoint starts
// with a four-byte header (three magic bytes plus a format version) followed
// by the BCS-encoded bundle. Both archival backends hand these blobs to
// DecodeCheckpoint.

import (
	"bytes"
	"fmt"
)

var checkpointMagic = []byte{'C', 'H', 'K'}

// CheckpointFormatVersion is the only version this build understands.
const CheckpointFormatVersion = 1

// EncodeCheckpoint serializes a checkpoint with its framing header.
func EncodeCheckpoint(cp *Checkpoint) []byte {
	var e Encoder
	e.WriteBytes(checkpointMagic)
	e.WriteU8(CheckpointFormatVersion)
	e.WriteU64(cp.Summary.Epoch)
	e.WriteU64(cp.Summary.SequenceNumber)
	e.WriteU64(cp.Summary.NetworkTotalTx)
	e.WriteU64(cp.Summary.TimestampMs)
	e.WriteUleb128(uint32(len(cp.Transactions)))
	for i := range cp.Transactions {
		encodeTransaction(&e, &cp.Transactions[i])
	}
	return e.Bytes()
}

func encodeTransaction(e *Encoder, tx *CheckpointTransaction) {
	e.WriteDigest(tx.Digest)
	e.WriteAddress(tx.Sender)
	e.WriteUleb128(uint32(len(tx.InputObjects)))
	for _, obj := range tx.InputObjects {
		e.WriteAddress(obj.ID)
		e.WriteOption(obj.Type != nil)
		if obj.Type != nil {
			e.WriteStructTag(*obj.Type)
		}
	}
	e.WriteUleb128(uint32(len(tx.Commands)))
	for _, cmd := range tx.Commands {
		e.WriteUleb128(uint32(cmd.Kind))
		if cmd.Kind == CommandMoveCall {
			e.WriteAddress(cmd.Package)
			e.WriteString(cmd.Module)
			e.WriteString(cmd.Function)
		}
	}
	e.WriteUleb128(uint32(len(tx.Events)))
	for _, ev := range tx.Events {
		e.WriteStructTag(ev.Type)
		e.WriteVecBytes(ev.Contents)
	}
}

// DecodeCheckpoint parses a framed checkpoint blob. Any malformation is a
// FormatMismatch: the archive is final, so a bad blob is never retried.
func DecodeCheckpoint(raw []byte) (*Checkpoint, error) {
	if len(raw) < 4 || !bytes.Equal(raw[:3], checkpointMagic) {
		return nil, Errorf(FormatMismatch, "checkpoint blob missing CHK header")
	}
	if raw[3] != CheckpointFormatVersion {
		return nil, Errorf(FormatMismatch, "unsupported checkpoint format version %d", raw[3])
	}

	d := NewDecoder(raw[4:])
	cp := &Checkpoint{
		Summary: CheckpointSummary{
			Epoch:          d.ReadU64(),
			SequenceNumber: d.ReadU64(),
			NetworkTotalTx: d.ReadU64(),
			TimestampMs:    d.ReadU64(),
		},
	}
	n := d.ReadLen()
	if d.Err() == nil && n > 0 {
		cp.Transactions = make([]CheckpointTransaction, n)
		for i := 0; i < n; i++ {
			decodeTransaction(d, &cp.Transactions[i])
			if d.Err() != nil {
				break
			}
		}
	}
	if err := d.Finish(); err != nil {
		return nil, NewError(FormatMismatch, fmt.Errorf("decode checkpoint: %w", err))
	}
	return cp, nil
}

func decodeTransaction(d *Decoder, tx *CheckpointTransaction) {
	tx.Digest = d.ReadDigest()
	tx.Sender = d.ReadAddress()
	nObj := d.ReadLen()
	if d.Err() != nil {
		return
	}
	if nObj > 0 {
		tx.InputObjects = make([]InputObject, nObj)
		for i := 0; i < nObj; i++ {
			tx.InputObjects[i].ID = d.ReadAddress()
			if d.ReadOption() {
				st := d.ReadStructTag()
				tx.InputObjects[i].Type = &st
			}
		}
	}
	nCmd := d.ReadLen()
	if d.Err() != nil {
		return
	}
	if nCmd > 0 {
		tx.Commands = make([]Command, nCmd)
		for i := 0; i < nCmd; i++ {
			kind := CommandKind(d.ReadUleb128())
			tx.Commands[i].Kind = kind
			if kind == CommandMoveCall {
				tx.Commands[i].Package = d.ReadAddress()
				tx.Commands[i].Module = d.ReadString()
				tx.Commands[i].Function = d.ReadString()
			}
		}
	}
	nEv := d.ReadLen()
	if d.Err() != nil {
		return
	}
	if nEv > 0 {
		tx.Events = make([]Event, nEv)
		for i := 0; i < nEv; i++ {
			tx.Events[i].Type = d.ReadStructTag()
			tx.Events[i].Contents = d.ReadVecBytes()
		}
	}
}
