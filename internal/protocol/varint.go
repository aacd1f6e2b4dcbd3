// Package protocol implements the Minecraft Java Edition wire primitives
// (protocol 763 / "1.20.1") needed by the ingress pipeline: VarInt framing,
// length-prefixed strings, and the handful of packet types this module
// exchanges during handshake, status and login.
package protocol

import (
	"errors"
	"fmt"
)

// ErrVarIntTooBig is returned when a VarInt exceeds 5 bytes.
var ErrVarIntTooBig = errors.New("protocol: varint is too big")

// MaxStringLength bounds decoded strings to guard against OOM from a
// corrupt or hostile length prefix.
const MaxStringLength = 32767

// ReadVarInt reads a variable-length integer from buf starting at off.
// Returns the decoded value and the number of bytes consumed.
func ReadVarInt(buf []byte, off int) (int32, int, error) {
	var result int32
	var numRead int

	for {
		if off+numRead >= len(buf) {
			return 0, 0, errors.New("protocol: truncated varint")
		}
		b := buf[off+numRead]
		value := int32(b & 0x7F)
		result |= value << (7 * numRead)
		numRead++
		if numRead > 5 {
			return 0, 0, ErrVarIntTooBig
		}
		if b&0x80 == 0 {
			break
		}
	}

	return result, numRead, nil
}

// PutVarInt appends the VarInt encoding of v to buf and returns the result.
func PutVarInt(buf []byte, v int32) []byte {
	uv := uint32(v)
	for {
		b := byte(uv & 0x7F)
		uv >>= 7
		if uv != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if uv == 0 {
			break
		}
	}
	return buf
}

// VarIntSize returns the number of bytes PutVarInt would emit for v.
func VarIntSize(v int32) int {
	uv := uint32(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

// ReadString reads a VarInt-length-prefixed UTF-8 string from buf at off.
func ReadString(buf []byte, off int) (string, int, error) {
	length, n, err := ReadVarInt(buf, off)
	if err != nil {
		return "", 0, fmt.Errorf("reading string length: %w", err)
	}
	if length < 0 || int(length) > MaxStringLength {
		return "", 0, fmt.Errorf("string length %d exceeds maximum %d", length, MaxStringLength)
	}
	start := off + n
	end := start + int(length)
	if end > len(buf) {
		return "", 0, errors.New("protocol: truncated string")
	}
	return string(buf[start:end]), n + int(length), nil
}

// PutString appends a VarInt-length-prefixed UTF-8 string to buf.
func PutString(buf []byte, s string) []byte {
	buf = PutVarInt(buf, int32(len(s)))
	return append(buf, s...)
}

// ReadUUID reads a 128-bit big-endian UUID (16 raw bytes, no dashes) as
// used by the Login packets on the wire.
func ReadUUID(buf []byte, off int) ([16]byte, int, error) {
	var out [16]byte
	if off+16 > len(buf) {
		return out, 0, errors.New("protocol: truncated uuid")
	}
	copy(out[:], buf[off:off+16])
	return out, 16, nil
}

// PutUUID appends the 16 raw big-endian bytes of a UUID to buf.
func PutUUID(buf []byte, id [16]byte) []byte {
	return append(buf, id[:]...)
}

// FramePacket wraps payload with a VarInt length prefix: VarInt(length)
// followed by length bytes, adapted from a fixed 2-byte header
// discipline to Minecraft's VarInt header.
func FramePacket(payload []byte) []byte {
	out := PutVarInt(make([]byte, 0, len(payload)+5), int32(len(payload)))
	return append(out, payload...)
}

// SplitFrame extracts the declared length and payload bounds of one frame
// from buf, without copying. Returns ok=false if buf does not yet contain
// a complete frame.
func SplitFrame(buf []byte) (payload []byte, total int, ok bool, err error) {
	length, n, err := ReadVarInt(buf, 0)
	if err != nil {
		if errors.Is(err, ErrVarIntTooBig) {
			return nil, 0, false, err
		}
		// Not enough bytes yet for a complete VarInt — wait for more data.
		return nil, 0, false, nil
	}
	if length < 0 {
		return nil, 0, false, fmt.Errorf("protocol: negative frame length %d", length)
	}
	total = n + int(length)
	if total > len(buf) {
		return nil, 0, false, nil
	}
	return buf[n:total], total, true, nil
}
