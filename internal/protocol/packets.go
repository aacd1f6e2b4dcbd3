package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Packet ids for the subset of the Java Edition protocol (763 / 1.20.1)
// this module speaks. Client→Server packets are read during Handshake,
// Status and Login; Server→Client packets are written by IdentityBinder,
// RemovalPipeline and Compose.
const (
	// Handshake state.
	PacketHandshake = 0x00

	// Status state.
	PacketStatusRequest  = 0x00 // C2S QueryRequest
	PacketStatusResponse = 0x00 // S2C QueryResponse
	PacketStatusPing     = 0x01 // C2S QueryPing
	PacketStatusPong     = 0x01 // S2C QueryPong

	// Login state.
	PacketLoginHello       = 0x00 // C2S LoginHello
	PacketLoginDisconnect  = 0x00 // S2C LoginDisconnect
	PacketLoginCompression = 0x03 // S2C LoginCompression
	PacketLoginSuccess     = 0x02 // S2C LoginSuccess

	// Play state (only the removal-pipeline packets are modeled here;
	// all other Play packets are opaque to this module).
	PacketPlayDisconnect      = 0x1A
	PacketPlayEntitiesDestroy = 0x3C
	PacketPlayerRemove        = 0x3D
)

// NextState mirrors the Handshake packet's next_state field.
type NextState int32

const (
	NextStateStatus NextState = 1
	NextStateLogin  NextState = 2
)

// Handshake is the single Handshake-state C2S packet.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

// DecodeHandshake parses a Handshake packet body (payload *after* the
// packet id VarInt has already been consumed by the caller).
func DecodeHandshake(body []byte) (Handshake, error) {
	var h Handshake
	off := 0

	protoVer, n, err := ReadVarInt(body, off)
	if err != nil {
		return h, fmt.Errorf("decoding protocol_version: %w", err)
	}
	off += n

	addr, n, err := ReadString(body, off)
	if err != nil {
		return h, fmt.Errorf("decoding server_address: %w", err)
	}
	if len(addr) > 255 {
		return h, fmt.Errorf("server_address exceeds 255 bytes")
	}
	off += n

	if off+2 > len(body) {
		return h, fmt.Errorf("truncated server_port")
	}
	port := binary.BigEndian.Uint16(body[off : off+2])
	off += 2

	next, n, err := ReadVarInt(body, off)
	if err != nil {
		return h, fmt.Errorf("decoding next_state: %w", err)
	}
	if next != int32(NextStateStatus) && next != int32(NextStateLogin) {
		return h, fmt.Errorf("invalid next_state %d", next)
	}

	h.ProtocolVersion = protoVer
	h.ServerAddress = addr
	h.ServerPort = port
	h.NextState = NextState(next)
	return h, nil
}

// QueryPing is the Status-state C2S ping.
type QueryPing struct {
	Payload int64
}

// DecodeQueryPing parses a QueryPing packet body.
func DecodeQueryPing(body []byte) (QueryPing, error) {
	if len(body) < 8 {
		return QueryPing{}, fmt.Errorf("truncated ping payload")
	}
	return QueryPing{Payload: int64(binary.BigEndian.Uint64(body[:8]))}, nil
}

// EncodeQueryPong encodes a Status-state S2C pong echoing payload.
func EncodeQueryPong(payload int64) []byte {
	buf := make([]byte, 1, 9)
	buf[0] = PacketStatusPong
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(payload))
	return append(buf, tmp[:]...)
}

// EncodeQueryResponse encodes a Status-state S2C response from a
// pre-marshaled JSON status string (see status.go for the JSON shape).
func EncodeQueryResponse(json string) []byte {
	buf := make([]byte, 1, 1+len(json)+5)
	buf[0] = PacketStatusResponse
	return PutString(buf, json)
}

// LoginHello is the Login-state C2S request carrying the player's name
// and, optionally, an authenticated profile UUID.
type LoginHello struct {
	Username  string
	ProfileID uuid.UUID
	HasUUID   bool
}

// DecodeLoginHello parses a LoginHello packet body.
func DecodeLoginHello(body []byte) (LoginHello, error) {
	var h LoginHello

	name, n, err := ReadString(body, 0)
	if err != nil {
		return h, fmt.Errorf("decoding username: %w", err)
	}
	if len(name) == 0 || len(name) > 16 {
		return h, fmt.Errorf("username length %d out of bounds [1,16]", len(name))
	}
	h.Username = name
	off := n

	if off < len(body) {
		raw, n2, err := ReadUUID(body, off)
		if err != nil {
			return h, fmt.Errorf("decoding profile_id: %w", err)
		}
		h.ProfileID = uuid.UUID(raw)
		h.HasUUID = true
		off += n2
	}

	return h, nil
}

// EncodeLoginCompression encodes the S2C LoginCompression packet. Always
// sent uncompressed by the caller, since compression isn't armed yet.
func EncodeLoginCompression(threshold int32) []byte {
	buf := make([]byte, 1, 6)
	buf[0] = PacketLoginCompression
	return PutVarInt(buf, threshold)
}

// EncodeLoginSuccess encodes the S2C LoginSuccess packet. properties is
// always empty: this server has no skin/cape property data to attach.
func EncodeLoginSuccess(id uuid.UUID, username string) []byte {
	buf := make([]byte, 1, 1+16+1+len(username)+1)
	buf[0] = PacketLoginSuccess
	buf = PutUUID(buf, id)
	buf = PutString(buf, username)
	buf = PutVarInt(buf, 0) // properties count
	return buf
}

// EncodeLoginDisconnect encodes the S2C LoginDisconnect packet carrying a
// plain-text chat reason. Always sent uncompressed.
func EncodeLoginDisconnect(reason string) []byte {
	jsonReason := fmt.Sprintf(`{"text":%q}`, reason)
	buf := make([]byte, 1, 1+len(jsonReason)+5)
	buf[0] = PacketLoginDisconnect
	return PutString(buf, jsonReason)
}

// EncodePlayDisconnect encodes the S2C Play Disconnect packet used by
// RemovalPipeline step 3.
func EncodePlayDisconnect(reason string) []byte {
	jsonReason := fmt.Sprintf(`{"text":%q}`, reason)
	buf := make([]byte, 1, 1+len(jsonReason)+5)
	buf[0] = PacketPlayDisconnect
	return PutString(buf, jsonReason)
}

// EncodeEntitiesDestroy encodes the S2C EntitiesDestroy packet for the
// given Minecraft entity ids.
func EncodeEntitiesDestroy(ids []int32) []byte {
	buf := make([]byte, 1, 1+5+len(ids)*5)
	buf[0] = PacketPlayEntitiesDestroy
	buf = PutVarInt(buf, int32(len(ids)))
	for _, id := range ids {
		buf = PutVarInt(buf, id)
	}
	return buf
}

// EncodePlayerRemove encodes the S2C PlayerRemove packet for the given
// player UUIDs.
func EncodePlayerRemove(ids []uuid.UUID) []byte {
	buf := make([]byte, 1, 1+5+len(ids)*16)
	buf[0] = PacketPlayerRemove
	buf = PutVarInt(buf, int32(len(ids)))
	for _, id := range ids {
		buf = PutUUID(buf, [16]byte(id))
	}
	return buf
}
