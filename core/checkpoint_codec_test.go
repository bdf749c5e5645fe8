package core

import (
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	fill := &OrderFilled{
		PoolID:       MustAddress("0xa1"),
		MakerOrderID: U128{Lo: 11},
		TakerOrderID: U128{Lo: 22},
		Price:        1_000_000,
		TakerIsBid:   true,
		BaseQuantity: 10,
		Timestamp:    1700,
	}
	cp := fixtureCheckpoint(100,
		fixtureTx("deadbeef", MustAddress("0xa"),
			eventOf(mainnetPackages[0], KindOrderFilled, fill)),
		CheckpointTransaction{
			Digest: fixtureDigest("0badf00d"),
			Sender: MustAddress("0xb"),
		},
	)

	raw := EncodeCheckpoint(cp)
	got, err := DecodeCheckpoint(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Summary != cp.Summary {
		t.Fatalf("summary mismatch: %+v vs %+v", got.Summary, cp.Summary)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("want 2 transactions, got %d", len(got.Transactions))
	}
	tx := got.Transactions[0]
	if tx.Digest != cp.Transactions[0].Digest || tx.Sender != cp.Transactions[0].Sender {
		t.Fatal("transaction identity mismatch")
	}
	if len(tx.Events) != 1 || !tx.Events[0].Type.Equal(cp.Transactions[0].Events[0].Type) {
		t.Fatal("event tag did not survive the round trip")
	}
	decoded, err := DecodeEvent[OrderFilled](tx.Events[0].Contents)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if decoded != *fill {
		t.Fatalf("event mismatch: %+v vs %+v", decoded, *fill)
	}
	if len(tx.Commands) != 1 || tx.Commands[0].Function != "place_limit_order" {
		t.Fatal("command did not survive the round trip")
	}
	if len(tx.InputObjects) != 1 || tx.InputObjects[0].Type == nil {
		t.Fatal("input object did not survive the round trip")
	}
}

func TestDecodeCheckpointRejectsBadHeader(t *testing.T) {
	if _, err := DecodeCheckpoint([]byte{'X', 'Y', 'Z', 1, 0}); !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch, got %v", err)
	}
	if _, err := DecodeCheckpoint([]byte{'C', 'H', 'K', 9}); !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch for bad version, got %v", err)
	}
	if _, err := DecodeCheckpoint(nil); !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch for empty input, got %v", err)
	}
}

func TestDecodeCheckpointRejectsTrailingBytes(t *testing.T) {
	raw := EncodeCheckpoint(fixtureCheckpoint(1))
	raw = append(raw, 0x00)
	if _, err := DecodeCheckpoint(raw); !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch for trailing bytes, got %v", err)
	}
}

func TestDecodeCheckpointRejectsTruncation(t *testing.T) {
	raw := EncodeCheckpoint(fixtureCheckpoint(1,
		fixtureTx("aa", MustAddress("0x1"))))
	if _, err := DecodeCheckpoint(raw[:len(raw)-5]); !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch for truncated input, got %v", err)
	}
}
