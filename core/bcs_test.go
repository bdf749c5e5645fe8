package core

import (
	"bytes"
	"testing"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	var e Encoder
	e.WriteU8(0xAB)
	e.WriteBool(true)
	e.WriteU16(0xBEEF)
	e.WriteU32(0xDEADBEEF)
	e.WriteU64(0x1122334455667788)
	e.WriteU128(U128{Lo: 1, Hi: 2})
	e.WriteString("deepbook")
	e.WriteVecBytes([]byte{1, 2, 3})

	d := NewDecoder(e.Bytes())
	if got := d.ReadU8(); got != 0xAB {
		t.Fatalf("u8 = %#x", got)
	}
	if !d.ReadBool() {
		t.Fatal("bool = false")
	}
	if got := d.ReadU16(); got != 0xBEEF {
		t.Fatalf("u16 = %#x", got)
	}
	if got := d.ReadU32(); got != 0xDEADBEEF {
		t.Fatalf("u32 = %#x", got)
	}
	if got := d.ReadU64(); got != 0x1122334455667788 {
		t.Fatalf("u64 = %#x", got)
	}
	if got := d.ReadU128(); got != (U128{Lo: 1, Hi: 2}) {
		t.Fatalf("u128 = %+v", got)
	}
	if got := d.ReadString(); got != "deepbook" {
		t.Fatalf("string = %q", got)
	}
	if got := d.ReadVecBytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("bytes = %v", got)
	}
	if err := d.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestUleb128RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 16384, 0xFFFFFFFF} {
		var e Encoder
		e.WriteUleb128(v)
		d := NewDecoder(e.Bytes())
		if got := d.ReadUleb128(); got != v {
			t.Fatalf("uleb %d round-tripped to %d", v, got)
		}
		if err := d.Finish(); err != nil {
			t.Fatalf("uleb %d: %v", v, err)
		}
	}
}

func TestU128String(t *testing.T) {
	cases := []struct {
		in   U128
		want string
	}{
		{U128{Lo: 0, Hi: 0}, "0"},
		{U128{Lo: 42, Hi: 0}, "42"},
		{U128{Lo: 0, Hi: 1}, "18446744073709551616"},
		{U128{Lo: 0xFFFFFFFFFFFFFFFF, Hi: 0xFFFFFFFFFFFFFFFF}, "340282366920938463463374607431768211455"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Fatalf("U128 %+v = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDecoderRejectsTrailingBytes(t *testing.T) {
	var e Encoder
	e.WriteU64(1)
	e.WriteU8(0xFF) // trailing

	d := NewDecoder(e.Bytes())
	_ = d.ReadU64()
	if err := d.Finish(); err != ErrTrailingBytes {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestDecoderRejectsShortInput(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3})
	_ = d.ReadU64()
	if d.Err() == nil {
		t.Fatal("expected error for short input")
	}
}

func TestDecoderRejectsHostileLength(t *testing.T) {
	var e Encoder
	e.WriteUleb128(1 << 30) // declared length far beyond the buffer
	d := NewDecoder(e.Bytes())
	_ = d.ReadLen()
	if d.Err() == nil {
		t.Fatal("expected error for oversized declared length")
	}
}

func TestStructTagRoundTrip(t *testing.T) {
	inner := StructTag{
		Address: MustAddress("0x2"),
		Module:  "sui",
		Name:    "SUI",
	}
	tag := StructTag{
		Address: mainnetPackages[0],
		Module:  "pool",
		Name:    "DeepBurned",
		TypeParams: []TypeTag{
			{Kind: TagStruct, Struct: &inner},
			{Kind: TagU64},
		},
	}

	var e Encoder
	e.WriteStructTag(tag)
	d := NewDecoder(e.Bytes())
	got := d.ReadStructTag()
	if err := d.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !got.Equal(tag) {
		t.Fatalf("round trip mismatch: %s vs %s", got, tag)
	}
}

func TestStructTagEquality(t *testing.T) {
	a := StructTag{Address: mainnetPackages[0], Module: "order", Name: "OrderCanceled"}
	b := a
	if !a.Equal(b) {
		t.Fatal("identical tags must be equal")
	}
	b.Address = mainnetPackages[1]
	if a.Equal(b) {
		t.Fatal("different address must not be equal")
	}
	b = a
	b.TypeParams = []TypeTag{{Kind: TagU64}}
	if a.Equal(b) {
		t.Fatal("different arity must not be equal")
	}
}
