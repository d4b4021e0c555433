package idlprotocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Borsh-style primitives as the program serializes them: integers little
// endian, bools a single strict 0/1 byte, strings u32-length-prefixed UTF-8,
// options a 1-byte presence flag.

func appendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendI64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendPubkey(buf []byte, pk solana.PublicKey) []byte {
	return append(buf, pk.Bytes()...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendOptionBool(buf []byte, v *bool) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendBool(buf, *v)
}

func appendOptionU64(buf []byte, v *uint64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendU64(buf, *v)
}

// decoder walks a raw account buffer with an explicit cursor and a sticky
// error: the first failed read latches err and every later read becomes a
// no-op, so parse routines stay flat and check once at the end. Every read
// bounds-checks first and fails with ErrInvalidAccountData instead of
// touching bytes past the end. Accounts are allocated with fixed space on
// chain, so bytes past the last field are padding and stay unread.
type decoder struct {
	buf []byte
	off int
	err error
}

func newAccountDecoder(data []byte, tag [8]byte) *decoder {
	d := &decoder{buf: data}
	if len(data) < len(tag) {
		d.fail(fmt.Errorf("%w: %d bytes is shorter than the account tag", ErrInvalidAccountData, len(data)))
		return d
	}
	if !bytes.Equal(data[:len(tag)], tag[:]) {
		d.fail(fmt.Errorf("%w: tag %x, want %x", ErrTypeMismatch, data[:len(tag)], tag[:]))
		return d
	}
	d.off = len(tag)
	return d
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if len(d.buf)-d.off < n {
		d.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInvalidAccountData, n, d.off, len(d.buf)-d.off))
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64() int64 {
	return int64(d.u64())
}

func (d *decoder) boolByte() bool {
	b := d.u8()
	if d.err != nil {
		return false
	}
	switch b {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(fmt.Errorf("%w: bool byte %#x at offset %d", ErrInvalidAccountData, b, d.off-1))
		return false
	}
}

func (d *decoder) pubkey() solana.PublicKey {
	if !d.need(solana.PublicKeyLength) {
		return solana.PublicKey{}
	}
	pk := solana.PublicKeyFromBytes(d.buf[d.off : d.off+solana.PublicKeyLength])
	d.off += solana.PublicKeyLength
	return pk
}

func (d *decoder) str() string {
	n := d.u32()
	if !d.need(int(n)) {
		return ""
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s
}

func (d *decoder) optionBool() *bool {
	if !d.boolByte() {
		return nil
	}
	v := d.boolByte()
	if d.err != nil {
		return nil
	}
	return &v
}

func (d *decoder) optionU64() *uint64 {
	if !d.boolByte() {
		return nil
	}
	v := d.u64()
	if d.err != nil {
		return nil
	}
	return &v
}
