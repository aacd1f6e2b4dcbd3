package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftengine/ingress/internal/protocol"
)

func newTestArena() *Arena {
	return NewArena(NewBytePool(256))
}

func TestDecoder_TryNext_Uncompressed(t *testing.T) {
	d := NewDecoder(1 << 20)
	arena := newTestArena()

	d.Queue(protocol.FramePacket([]byte{0x00, 'h', 'i'}))

	f, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 'h', 'i'}, f.Data)

	_, ok, err = d.TryNext(arena)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecoder_TryNext_WaitsForMoreBytes(t *testing.T) {
	d := NewDecoder(1 << 20)
	arena := newTestArena()

	full := protocol.FramePacket([]byte{0x01, 0x02, 0x03})
	d.Queue(full[:len(full)-1])

	_, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	assert.False(t, ok)

	d.Queue(full[len(full)-1:])
	f, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Data)
}

func TestDecoder_ShiftExcess_DiscardsConsumedPrefix(t *testing.T) {
	d := NewDecoder(1 << 20)
	arena := newTestArena()

	d.Queue(protocol.FramePacket([]byte{0xAA}))
	_, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)

	d.ShiftExcess()
	assert.Equal(t, 0, d.cursor)
	assert.Empty(t, d.buf)

	d.Queue(protocol.FramePacket([]byte{0xBB}))
	f, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0xBB}, f.Data)
}

// TestDecoder_SetCompression_ArmsOnce verifies the compression threshold
// transitions 0→set exactly once per session and never back.
func TestDecoder_SetCompression_ArmsOnce(t *testing.T) {
	d := NewDecoder(1 << 20)
	assert.False(t, d.CompressionArmed())

	d.SetCompression(256)
	assert.True(t, d.CompressionArmed())
	assert.Equal(t, int32(256), d.threshold)

	d.SetCompression(0)
	assert.True(t, d.CompressionArmed())
	assert.Equal(t, int32(256), d.threshold, "second SetCompression call must be a no-op")
}

func TestDecoder_TryNext_CompressedStoredVerbatim(t *testing.T) {
	d := NewDecoder(1 << 20)
	d.SetCompression(256)
	arena := newTestArena()

	inner := protocol.PutVarInt([]byte{}, 0) // uncompressed_len == 0 => verbatim
	inner = append(inner, 0x10, 0x20, 0x30)
	d.Queue(protocol.FramePacket(inner))

	f, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x10, 0x20, 0x30}, f.Data)
}

func TestDecoder_TryNext_CompressedDeflated(t *testing.T) {
	d := NewDecoder(1 << 20)
	d.SetCompression(2)
	arena := newTestArena()

	payload := []byte{0x00, 'h', 'e', 'l', 'l', 'o', ' ', 'w', 'o', 'r', 'l', 'd'}
	compressed, err := CompressPayload(nil, payload, 2)
	require.NoError(t, err)
	d.Queue(protocol.FramePacket(compressed))

	f, ok, err := d.TryNext(arena)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, f.Data)
}

func TestDecoder_TryNext_OversizeFrameIsFatal(t *testing.T) {
	d := NewDecoder(4)
	arena := newTestArena()

	d.Queue(protocol.FramePacket([]byte{0, 0, 0, 0, 0, 0}))

	_, ok, err := d.TryNext(arena)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrOversizeFrame)
}

// TestDecoder_TryNext_PreservesOrder verifies frames decoded from a
// single connection are emitted in the order they were queued.
func TestDecoder_TryNext_PreservesOrder(t *testing.T) {
	d := NewDecoder(1 << 20)
	arena := newTestArena()

	for i := byte(0); i < 5; i++ {
		d.Queue(protocol.FramePacket([]byte{i}))
	}

	var got []byte
	for {
		f, ok, err := d.TryNext(arena)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, f.Data[0])
	}
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, got)
}

func TestCompressPayload_BelowThresholdStoredVerbatim(t *testing.T) {
	payload := []byte{1, 2, 3}
	out, err := CompressPayload(nil, payload, 10)
	require.NoError(t, err)

	length, n, err := protocol.ReadVarInt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), length)
	assert.Equal(t, payload, out[n:])
}
