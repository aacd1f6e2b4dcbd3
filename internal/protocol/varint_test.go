package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVarInt_RoundTrip covers L1: encode then decode is the identity for
// every representable int32.
func TestVarInt_RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 127, 128, 255, 25565, -2147483648, 2147483647}
	for _, v := range cases {
		buf := PutVarInt(nil, v)
		assert.Equal(t, VarIntSize(v), len(buf))

		got, n, err := ReadVarInt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestReadVarInt_TooBigErrors(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := ReadVarInt(buf, 0)
	assert.ErrorIs(t, err, ErrVarIntTooBig)
}

func TestReadVarInt_TruncatedErrors(t *testing.T) {
	_, _, err := ReadVarInt([]byte{0x80}, 0)
	assert.Error(t, err)
}

// TestString_RoundTrip covers L2: a string round-trips through
// PutString/ReadString unchanged.
func TestString_RoundTrip(t *testing.T) {
	for _, s := range []string{"", "Notch", "a string with spaces", "unicode: héllo"} {
		buf := PutString(nil, s)
		got, n, err := ReadString(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, s, got)
	}
}

func TestReadString_RejectsOverlongLength(t *testing.T) {
	buf := PutVarInt(nil, MaxStringLength+1)
	_, _, err := ReadString(buf, 0)
	assert.Error(t, err)
}

func TestFramePacket_SplitFrame_RoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	framed := FramePacket(payload)

	got, total, ok, err := SplitFrame(framed)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(framed), total)
	assert.Equal(t, payload, got)
}

func TestSplitFrame_IncompleteBufferWaits(t *testing.T) {
	framed := FramePacket([]byte{0x01, 0x02, 0x03})
	_, _, ok, err := SplitFrame(framed[:len(framed)-1])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUUID_RoundTrip(t *testing.T) {
	var id [16]byte
	for i := range id {
		id[i] = byte(i)
	}
	buf := PutUUID(nil, id)
	got, n, err := ReadUUID(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, id, got)
}
