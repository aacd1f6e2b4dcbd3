package protocol

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHandshake_Valid(t *testing.T) {
	body := PutVarInt(nil, 763)
	body = PutString(body, "play.example.com")
	body = append(body, 0x63, 0xDD)
	body = PutVarInt(body, int32(NextStateLogin))

	h, err := DecodeHandshake(body)
	require.NoError(t, err)
	assert.Equal(t, int32(763), h.ProtocolVersion)
	assert.Equal(t, "play.example.com", h.ServerAddress)
	assert.Equal(t, uint16(0x63DD), h.ServerPort)
	assert.Equal(t, NextStateLogin, h.NextState)
}

func TestDecodeHandshake_RejectsInvalidNextState(t *testing.T) {
	body := PutVarInt(nil, 763)
	body = PutString(body, "x")
	body = append(body, 0, 0)
	body = PutVarInt(body, 99)

	_, err := DecodeHandshake(body)
	assert.Error(t, err)
}

func TestDecodeLoginHello_WithoutUUID(t *testing.T) {
	body := PutString(nil, "Steve")
	h, err := DecodeLoginHello(body)
	require.NoError(t, err)
	assert.Equal(t, "Steve", h.Username)
	assert.False(t, h.HasUUID)
}

func TestDecodeLoginHello_WithUUID(t *testing.T) {
	id := uuid.New()
	body := PutString(nil, "Steve")
	body = PutUUID(body, [16]byte(id))

	h, err := DecodeLoginHello(body)
	require.NoError(t, err)
	assert.True(t, h.HasUUID)
	assert.Equal(t, id, h.ProfileID)
}

func TestDecodeLoginHello_RejectsEmptyUsername(t *testing.T) {
	body := PutString(nil, "")
	_, err := DecodeLoginHello(body)
	assert.Error(t, err)
}

func TestDecodeLoginHello_RejectsOverlongUsername(t *testing.T) {
	body := PutString(nil, "ThisUsernameIsFarTooLong")
	_, err := DecodeLoginHello(body)
	assert.Error(t, err)
}

func TestEncodeLoginSuccess_ContainsIdAndUsername(t *testing.T) {
	id := uuid.New()
	buf := EncodeLoginSuccess(id, "Steve")
	assert.Equal(t, byte(PacketLoginSuccess), buf[0])

	got, n, err := ReadUUID(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, [16]byte(id), got)

	name, _, err := ReadString(buf, 1+n)
	require.NoError(t, err)
	assert.Equal(t, "Steve", name)
}

func TestDecodeQueryPing_RoundTrip(t *testing.T) {
	body := make([]byte, 8)
	body[7] = 7
	ping, err := DecodeQueryPing(body)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ping.Payload)

	pong := EncodeQueryPong(ping.Payload)
	assert.Equal(t, byte(PacketStatusPong), pong[0])
}
