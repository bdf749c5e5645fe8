package core

// Minimal BCS (Binary Canonical Serialization) codec covering the shapes the
// protocol emits: fixed-width little-endian unsigned integers, bools,
// ULEB128 length prefixes, byte strings, options and enum variant tags.
// The decoder is strict: short input and trailing bytes are both errors.

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// U128 is an unsigned 128-bit integer, kept as two 64-bit limbs.
type U128 struct {
	Lo uint64
	Hi uint64
}

// String renders the value in decimal.
func (u U128) String() string {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(u.Lo))
	return v.String()
}

// ErrTrailingBytes is returned by Decoder.Finish when input remains after the
// declared schema has been read.
var ErrTrailingBytes = fmt.Errorf("bcs: trailing bytes after value")

// Decoder reads BCS values from a byte slice. Errors are sticky: after the
// first failure every subsequent read returns zero values and Err is set.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder wraps buf for reading.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Remaining reports how many bytes are left unread.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish fails unless the input was consumed exactly.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return ErrTrailingBytes
	}
	return nil
}

func (d *Decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("bcs: "+format, args...)
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.fail("unexpected end of input (want %d bytes at offset %d of %d)", n, d.off, len(d.buf))
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// ReadBytes consumes exactly n raw bytes.
func (d *Decoder) ReadBytes(n int) []byte {
	b := d.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadU8 reads one byte.
func (d *Decoder) ReadU8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads a bool encoded as 0 or 1.
func (d *Decoder) ReadBool() bool {
	v := d.ReadU8()
	if v > 1 {
		d.fail("invalid bool byte %#x", v)
		return false
	}
	return v == 1
}

// ReadU16 reads a little-endian u16.
func (d *Decoder) ReadU16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadU32 reads a little-endian u32.
func (d *Decoder) ReadU32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadU64 reads a little-endian u64.
func (d *Decoder) ReadU64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadU128 reads a little-endian u128.
func (d *Decoder) ReadU128() U128 {
	b := d.take(16)
	if b == nil {
		return U128{}
	}
	return U128{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:]),
	}
}

// ReadUleb128 reads a ULEB128-encoded u32 (BCS caps lengths and variant tags
// at 32 bits).
func (d *Decoder) ReadUleb128() uint32 {
	var out uint64
	var shift uint
	for {
		b := d.ReadU8()
		if d.err != nil {
			return 0
		}
		out |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 31 {
			d.fail("uleb128 value does not fit in 32 bits")
			return 0
		}
	}
	if out > 0xffffffff {
		d.fail("uleb128 value overflows u32")
		return 0
	}
	return uint32(out)
}

// ReadLen reads a sequence length and bounds-checks it against the remaining
// input so hostile lengths cannot trigger huge allocations.
func (d *Decoder) ReadLen() int {
	n := d.ReadUleb128()
	if d.err != nil {
		return 0
	}
	if int(n) > d.Remaining() {
		d.fail("declared length %d exceeds remaining input %d", n, d.Remaining())
		return 0
	}
	return int(n)
}

// ReadString reads a ULEB128 length-prefixed UTF-8 string.
func (d *Decoder) ReadString() string {
	n := d.ReadLen()
	if d.err != nil {
		return ""
	}
	return string(d.take(n))
}

// ReadVecBytes reads a ULEB128 length-prefixed byte vector.
func (d *Decoder) ReadVecBytes() []byte {
	n := d.ReadLen()
	if d.err != nil {
		return nil
	}
	return d.ReadBytes(n)
}

// ReadOption reads an Option tag, returning true when a value follows.
func (d *Decoder) ReadOption() bool {
	v := d.ReadU8()
	if v > 1 {
		d.fail("invalid option byte %#x", v)
		return false
	}
	return v == 1
}

// ReadAddress reads a fixed 32-byte address.
func (d *Decoder) ReadAddress() Address {
	var a Address
	b := d.take(32)
	if b == nil {
		return a
	}
	copy(a[:], b)
	return a
}

// ReadDigest reads a fixed 32-byte digest.
func (d *Decoder) ReadDigest() Digest {
	var dg Digest
	b := d.take(32)
	if b == nil {
		return dg
	}
	copy(dg[:], b)
	return dg
}

// ReadTypeTag reads one TypeTag variant.
func (d *Decoder) ReadTypeTag() TypeTag {
	tag := TypeTagKind(d.ReadUleb128())
	if d.err != nil {
		return TypeTag{}
	}
	switch tag {
	case TagBool, TagU8, TagU16, TagU32, TagU64, TagU128, TagU256, TagAddress, TagSigner:
		return TypeTag{Kind: tag}
	case TagVector:
		elem := d.ReadTypeTag()
		return TypeTag{Kind: TagVector, Elem: &elem}
	case TagStruct:
		st := d.ReadStructTag()
		return TypeTag{Kind: TagStruct, Struct: &st}
	default:
		d.fail("unknown type tag variant %d", tag)
		return TypeTag{}
	}
}

// ReadStructTag reads address, module, name and type parameters.
func (d *Decoder) ReadStructTag() StructTag {
	st := StructTag{
		Address: d.ReadAddress(),
		Module:  d.ReadString(),
		Name:    d.ReadString(),
	}
	n := d.ReadLen()
	if d.err != nil {
		return StructTag{}
	}
	if n > 0 {
		st.TypeParams = make([]TypeTag, n)
		for i := 0; i < n; i++ {
			st.TypeParams[i] = d.ReadTypeTag()
		}
	}
	return st
}

// Encoder builds BCS values. The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte { return e.buf }

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteU8 appends one byte.
func (e *Encoder) WriteU8(v uint8) { e.buf = append(e.buf, v) }

// WriteBool appends a bool.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteU8(1)
	} else {
		e.WriteU8(0)
	}
}

// WriteU16 appends a little-endian u16.
func (e *Encoder) WriteU16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

// WriteU32 appends a little-endian u32.
func (e *Encoder) WriteU32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

// WriteU64 appends a little-endian u64.
func (e *Encoder) WriteU64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// WriteU128 appends a little-endian u128.
func (e *Encoder) WriteU128(v U128) {
	e.WriteU64(v.Lo)
	e.WriteU64(v.Hi)
}

// WriteUleb128 appends a ULEB128-encoded u32.
func (e *Encoder) WriteUleb128(v uint32) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteString appends a length-prefixed string.
func (e *Encoder) WriteString(s string) {
	e.WriteUleb128(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteVecBytes appends a length-prefixed byte vector.
func (e *Encoder) WriteVecBytes(b []byte) {
	e.WriteUleb128(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteOption appends an option tag.
func (e *Encoder) WriteOption(present bool) { e.WriteBool(present) }

// WriteAddress appends a fixed 32-byte address.
func (e *Encoder) WriteAddress(a Address) { e.buf = append(e.buf, a[:]...) }

// WriteDigest appends a fixed 32-byte digest.
func (e *Encoder) WriteDigest(d Digest) { e.buf = append(e.buf, d[:]...) }

// WriteTypeTag appends one TypeTag variant.
func (e *Encoder) WriteTypeTag(t TypeTag) {
	e.WriteUleb128(uint32(t.Kind))
	switch t.Kind {
	case TagVector:
		if t.Elem != nil {
			e.WriteTypeTag(*t.Elem)
		}
	case TagStruct:
		if t.Struct != nil {
			e.WriteStructTag(*t.Struct)
		}
	}
}

// WriteStructTag appends address, module, name and type parameters.
func (e *Encoder) WriteStructTag(t StructTag) {
	e.WriteAddress(t.Address)
	e.WriteString(t.Module)
	e.WriteString(t.Name)
	e.WriteUleb128(uint32(len(t.TypeParams)))
	for _, p := range t.TypeParams {
		e.WriteTypeTag(p)
	}
}
