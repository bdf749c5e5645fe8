package core

// Core on-chain data model: addresses, digests, struct tags and the sealed
// checkpoint bundle the pipelines consume. Checkpoints are immutable once
// decoded and shared read-only between pipelines.

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 32-byte on-chain account or object address.
type Address [32]byte

// ParseAddress parses a hex address with or without a 0x prefix. Short input
// is left-padded with zeros, matching the chain's canonical display rules.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 64 {
		return a, fmt.Errorf("invalid address length %d", len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[32-len(b):], b)
	return a, nil
}

// MustAddress parses a compile-time constant address and panics on error.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the address as 0x-prefixed lowercase hex.
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool { return a == Address{} }

// ObjectID is an on-chain object identifier; same wire shape as Address.
type ObjectID = Address

// Digest is a 32-byte transaction digest, rendered as hex.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ParseDigest parses a hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return d, fmt.Errorf("invalid digest %q", s)
	}
	copy(d[:], b)
	return d, nil
}

// TypeTagKind discriminates the TypeTag sum.
type TypeTagKind uint8

const (
	TagBool TypeTagKind = iota
	TagU8
	TagU64
	TagU128
	TagAddress
	TagSigner
	TagVector
	TagStruct
	TagU16
	TagU32
	TagU256
)

// TypeTag is a fully-qualified on-chain type parameter.
type TypeTag struct {
	Kind   TypeTagKind
	Elem   *TypeTag   // vector element, when Kind == TagVector
	Struct *StructTag // when Kind == TagStruct
}

// Equal compares two type tags structurally.
func (t TypeTag) Equal(o TypeTag) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TagVector:
		return t.Elem != nil && o.Elem != nil && t.Elem.Equal(*o.Elem)
	case TagStruct:
		return t.Struct != nil && o.Struct != nil && t.Struct.Equal(*o.Struct)
	}
	return true
}

// StructTag is a fully-qualified on-chain struct type:
// address::module::name<type_params...>.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// Equal reports whether two struct tags are identical in all four components.
func (t StructTag) Equal(o StructTag) bool {
	if t.Address != o.Address || t.Module != o.Module || t.Name != o.Name ||
		len(t.TypeParams) != len(o.TypeParams) {
		return false
	}
	for i := range t.TypeParams {
		if !t.TypeParams[i].Equal(o.TypeParams[i]) {
			return false
		}
	}
	return true
}

func (t StructTag) String() string {
	s := fmt.Sprintf("%s::%s::%s", t.Address, t.Module, t.Name)
	if len(t.TypeParams) > 0 {
		parts := make([]string, len(t.TypeParams))
		for i, p := range t.TypeParams {
			parts[i] = p.String()
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	return s
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TagBool:
		return "bool"
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagU128:
		return "u128"
	case TagU256:
		return "u256"
	case TagAddress:
		return "address"
	case TagSigner:
		return "signer"
	case TagVector:
		if t.Elem == nil {
			return "vector<?>"
		}
		return "vector<" + t.Elem.String() + ">"
	case TagStruct:
		if t.Struct == nil {
			return "struct<?>"
		}
		return t.Struct.String()
	}
	return "unknown"
}

// Event is a typed record emitted by a transaction.
type Event struct {
	Type     StructTag
	Contents []byte
}

// CommandKind discriminates transaction commands. Only MoveCall carries data
// the indexer cares about; everything else collapses to Other.
type CommandKind uint8

const (
	CommandMoveCall CommandKind = iota
	CommandOther
)

// Command is one programmable-transaction command.
type Command struct {
	Kind     CommandKind
	Package  Address // MoveCall only
	Module   string  // MoveCall only
	Function string  // MoveCall only
}

// InputObject is an object read or mutated by a transaction, with its type
// tag when the object is a Move struct.
type InputObject struct {
	ID   ObjectID
	Type *StructTag
}

// CheckpointTransaction is one transaction inside a sealed checkpoint.
type CheckpointTransaction struct {
	Digest       Digest
	Sender       Address
	InputObjects []InputObject
	Commands     []Command
	Events       []Event
}

// CheckpointSummary carries the checkpoint's identity and timing.
type CheckpointSummary struct {
	Epoch          uint64
	SequenceNumber uint64
	NetworkTotalTx uint64
	TimestampMs    uint64
}

// Checkpoint is a sealed, ordered batch of transactions published by the
// upstream chain. Immutable after decoding.
type Checkpoint struct {
	Summary      CheckpointSummary
	Transactions []CheckpointTransaction
}
