package idlprotocol

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("u64", func(t *testing.T) {
		for _, v := range []uint64{0, 1, 1_000_000, ^uint64(0)} {
			d := &decoder{buf: appendU64(nil, v)}
			assert.Equal(t, v, d.u64())
			require.NoError(t, d.err)
		}
	})

	t.Run("i64", func(t *testing.T) {
		for _, v := range []int64{0, 1, -1, 1_700_000_000, -126_144_000} {
			d := &decoder{buf: appendI64(nil, v)}
			assert.Equal(t, v, d.i64())
			require.NoError(t, d.err)
		}
	})

	t.Run("bool", func(t *testing.T) {
		for _, v := range []bool{true, false} {
			d := &decoder{buf: appendBool(nil, v)}
			assert.Equal(t, v, d.boolByte())
			require.NoError(t, d.err)
		}
	})

	t.Run("pubkey", func(t *testing.T) {
		pk := solana.MustPublicKeyFromBase58("BSn7neicVV2kEzgaZmd6tZEBm4tdgzBRyELov65Lq7dt")
		d := &decoder{buf: appendPubkey(nil, pk)}
		assert.Equal(t, pk, d.pubkey())
		require.NoError(t, d.err)
	})

	t.Run("string", func(t *testing.T) {
		for _, s := range []string{"", "jupiter", "héllo wörld", strings.Repeat("x", 200)} {
			d := &decoder{buf: appendString(nil, s)}
			assert.Equal(t, s, d.str())
			require.NoError(t, d.err)
		}
	})

	t.Run("option bool", func(t *testing.T) {
		yes, no := true, false
		for _, v := range []*bool{nil, &yes, &no} {
			d := &decoder{buf: appendOptionBool(nil, v)}
			got := d.optionBool()
			require.NoError(t, d.err)
			if v == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *v, *got)
			}
		}
	})

	t.Run("option u64", func(t *testing.T) {
		present := uint64(123_456_789)
		for _, v := range []*uint64{nil, &present} {
			d := &decoder{buf: appendOptionU64(nil, v)}
			got := d.optionU64()
			require.NoError(t, d.err)
			if v == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *v, *got)
			}
		}
	})
}

func TestStringLengthPrefixIsByteCount(t *testing.T) {
	// Multibyte runes: the prefix counts bytes, not characters.
	s := "héllo"
	buf := appendString(nil, s)
	d := &decoder{buf: buf}
	n := d.u32()
	require.NoError(t, d.err)
	assert.Equal(t, uint32(6), n)
	assert.Equal(t, uint32(len(buf))-4, n)
}

func TestDecodeRejectsBadBoolByte(t *testing.T) {
	for _, b := range []byte{2, 7, 0xff} {
		d := &decoder{buf: []byte{b}}
		d.boolByte()
		require.ErrorIs(t, d.err, ErrInvalidAccountData)
	}
}

func TestDecodeShortBuffers(t *testing.T) {
	cases := map[string]func(d *decoder){
		"u64 on 7 bytes":     func(d *decoder) { d.buf = make([]byte, 7); d.u64() },
		"pubkey on 31 bytes": func(d *decoder) { d.buf = make([]byte, 31); d.pubkey() },
		"string body short":  func(d *decoder) { d.buf = append(appendU32(nil, 10), 'a', 'b'); d.str() },
		"option value gone":  func(d *decoder) { d.buf = []byte{1}; d.optionU64() },
		"empty buffer u8":    func(d *decoder) { d.u8() },
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			d := &decoder{}
			run(d)
			require.ErrorIs(t, d.err, ErrInvalidAccountData)
		})
	}
}

func TestDecoderStickyError(t *testing.T) {
	// First failure latches; later reads stay no-ops and keep the original
	// error.
	d := &decoder{buf: []byte{5}}
	d.boolByte()
	first := d.err
	require.ErrorIs(t, first, ErrInvalidAccountData)

	assert.Zero(t, d.u64())
	assert.Equal(t, solana.PublicKey{}, d.pubkey())
	assert.Equal(t, first, d.err)
}
