package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/riftengine/ingress/internal/protocol"
)

// ErrOversizeFrame is returned by TryNext when a declared frame length
// exceeds MaxPacketSize. Exceeding it is always fatal for the session.
var ErrOversizeFrame = errors.New("frame: packet exceeds maximum size")

// Frame is one decoded, uncompressed protocol packet, borrowed from the
// caller-supplied Arena. It must not be retained past the arena's Reset.
type Frame struct {
	Data []byte
}

// Decoder owns one connection's raw byte buffer and compression state.
// Not safe for concurrent use — every connection's decoder is touched
// only by the simulation tick goroutine that owns that session.
type Decoder struct {
	buf    []byte
	cursor int // bytes before cursor have already been consumed this tick

	compressionArmed bool
	threshold        int32

	maxPacketSize int
}

// NewDecoder creates a decoder bounding extracted frames to
// maxPacketSize bytes.
func NewDecoder(maxPacketSize int) *Decoder {
	return &Decoder{maxPacketSize: maxPacketSize}
}

// Queue appends raw bytes received from the proxy this tick.
func (d *Decoder) Queue(b []byte) {
	d.buf = append(d.buf, b...)
}

// ShiftExcess compacts the buffer, discarding bytes already consumed by
// TryNext in the previous drain. Called once per tick before draining.
func (d *Decoder) ShiftExcess() {
	if d.cursor == 0 {
		return
	}
	d.buf = append(d.buf[:0], d.buf[d.cursor:]...)
	d.cursor = 0
}

// SetCompression arms compression for this connection. Idempotent calls
// after the first are no-ops: the threshold transitions 0→set exactly
// once per connection and never back.
func (d *Decoder) SetCompression(threshold int32) {
	if d.compressionArmed {
		return
	}
	d.compressionArmed = true
	d.threshold = threshold
}

// CompressionArmed reports whether SetCompression has been called.
func (d *Decoder) CompressionArmed() bool {
	return d.compressionArmed
}

// TryNext attempts to extract one complete frame from the buffered bytes,
// borrowing its storage from arena. Returns (nil, false, nil) when no
// complete frame is currently buffered. Returns an error when the frame
// is malformed or exceeds the maximum packet size — both are fatal for
// the session.
func (d *Decoder) TryNext(arena *Arena) (*Frame, bool, error) {
	remaining := d.buf[d.cursor:]

	// Check the declared length against the maximum as soon as the
	// VarInt header itself is available, rather than waiting for the
	// full (potentially huge) body to buffer up first.
	if length, _, err := protocol.ReadVarInt(remaining, 0); err == nil && int(length) > d.maxPacketSize {
		return nil, false, ErrOversizeFrame
	}

	payload, total, ok, err := protocol.SplitFrame(remaining)
	if err != nil {
		return nil, false, fmt.Errorf("frame: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	if total > d.maxPacketSize {
		return nil, false, ErrOversizeFrame
	}

	d.cursor += total

	if !d.compressionArmed {
		out := arena.Alloc(len(payload))
		copy(out, payload)
		return &Frame{Data: out}, true, nil
	}

	decoded, err := d.decompress(payload, arena)
	if err != nil {
		return nil, false, fmt.Errorf("frame: decompressing payload: %w", err)
	}
	return &Frame{Data: decoded}, true, nil
}

// decompress implements the compressed-frame layout:
// VarInt(uncompressed_len) followed by either the raw body
// (uncompressed_len == 0) or a zlib (DEFLATE) stream of that length.
func (d *Decoder) decompress(payload []byte, arena *Arena) ([]byte, error) {
	uncompressedLen, n, err := protocol.ReadVarInt(payload, 0)
	if err != nil {
		return nil, fmt.Errorf("reading uncompressed_len: %w", err)
	}
	body := payload[n:]

	if uncompressedLen == 0 {
		if len(body) > d.maxPacketSize {
			return nil, ErrOversizeFrame
		}
		out := arena.Alloc(len(body))
		copy(out, body)
		return out, nil
	}

	if int(uncompressedLen) > d.maxPacketSize {
		return nil, ErrOversizeFrame
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer zr.Close()

	out := arena.Alloc(int(uncompressedLen))
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("inflating payload: %w", err)
	}

	return out, nil
}

// CompressPayload compresses an outbound payload into the same inner
// layout TryNext decompresses, for use by the egress facade once
// compression is armed for a connection; it does not add the outer
// length prefix (the caller frames the result with
// protocol.FramePacket). Payloads below threshold are
// stored verbatim with uncompressed_len == 0, matching the Minecraft
// protocol's "store verbatim below threshold" rule.
func CompressPayload(dst []byte, payload []byte, threshold int32) ([]byte, error) {
	if int32(len(payload)) < threshold {
		dst = protocol.PutVarInt(dst, 0)
		return append(dst, payload...), nil
	}

	dst = protocol.PutVarInt(dst, int32(len(payload)))

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("deflating payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zlib stream: %w", err)
	}

	return append(dst, buf.Bytes()...), nil
}
