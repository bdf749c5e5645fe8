package core

// Shared fixture builders for checkpoint and transaction construction.

import (
	"strings"
)

func fixtureDigest(seed string) Digest {
	hexStr := strings.Repeat(seed, 64/len(seed)+1)[:64]
	d, err := ParseDigest(hexStr)
	if err != nil {
		panic(err)
	}
	return d
}

// protocolInput returns an input object typed under the first active
// mainnet core package, which makes the transaction pass the cheap filter.
func protocolInput() InputObject {
	pkg := mainnetPackages[0]
	return InputObject{
		ID: MustAddress("0xabc1"),
		Type: &StructTag{
			Address: pkg,
			Module:  "pool",
			Name:    "Pool",
		},
	}
}

// fixtureTx builds a transaction carrying the given events, typed as a
// protocol transaction with a move call against the first mainnet package.
func fixtureTx(digestSeed string, sender Address, events ...Event) CheckpointTransaction {
	return CheckpointTransaction{
		Digest:       fixtureDigest(digestSeed),
		Sender:       sender,
		InputObjects: []InputObject{protocolInput()},
		Commands: []Command{{
			Kind:     CommandMoveCall,
			Package:  mainnetPackages[0],
			Module:   "pool",
			Function: "place_limit_order",
		}},
		Events: events,
	}
}

// fixtureCheckpoint wraps transactions into a checkpoint at the given seq.
func fixtureCheckpoint(seq uint64, txs ...CheckpointTransaction) *Checkpoint {
	return &Checkpoint{
		Summary: CheckpointSummary{
			Epoch:          7,
			SequenceNumber: seq,
			NetworkTotalTx: seq * 10,
			TimestampMs:    1_700_000_000_000 + seq,
		},
		Transactions: txs,
	}
}

// eventOf builds an event tagged under the given package for a kind.
func eventOf(pkg Address, kind EventKind, payload bcsValue) Event {
	tag := StructTag{Address: pkg, Module: kind.Module, Name: kind.Name}
	for i := 0; i < kind.Arity; i++ {
		tag.TypeParams = append(tag.TypeParams, TypeTag{Kind: TagStruct, Struct: &StructTag{
			Address: suiFrameworkAddress,
			Module:  "sui",
			Name:    "SUI",
		}})
	}
	return Event{Type: tag, Contents: EncodeEvent(payload)}
}
