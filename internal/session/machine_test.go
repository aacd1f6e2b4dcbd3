package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftengine/ingress/internal/compose"
	"github.com/riftengine/ingress/internal/identity"
	"github.com/riftengine/ingress/internal/ignmap"
	"github.com/riftengine/ingress/internal/protocol"
	"github.com/riftengine/ingress/internal/skin"
)

type fakeTransport struct {
	mu      sync.Mutex
	written map[int64][][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{written: map[int64][][]byte{}}
}

func (f *fakeTransport) Write(connID int64, framed []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written[connID] = append(f.written[connID], framed)
	return nil
}

func newTestMachine(t *testing.T) (*Machine, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	egress := compose.New(tr)
	names := ignmap.New()
	skins := skin.NewResolver(skin.Config{UpstreamURL: "http://127.0.0.1:0", Workers: 1, ResultBuffer: 1})
	t.Cleanup(skins.Stop)

	binder := identity.NewBinder(egress, names, skins, 256)
	status := func() StatusInfo {
		return StatusInfo{VersionName: "1.20.1", ProtocolVersion: 763, MaxPlayers: 20, OnlinePlayers: 1, MOTD: "test"}
	}
	return NewMachine(egress, binder, status, nil), tr
}

func TestMachine_HandshakeToStatusToPing(t *testing.T) {
	m, tr := newTestMachine(t)
	egress := m.egress
	egress.Register(1)

	s := New(1, 1<<20)

	body := protocol.PutVarInt(nil, 763)
	body = protocol.PutString(body, "localhost")
	body = append(body, 0x63, 0xDD)
	body = protocol.PutVarInt(body, int32(protocol.NextStateStatus))

	keepOpen, err := m.Drive(s, protocol.PacketHandshake, body)
	require.NoError(t, err)
	assert.True(t, keepOpen)
	assert.Equal(t, PacketStateStatus, s.State)

	keepOpen, err = m.Drive(s, protocol.PacketStatusRequest, nil)
	require.NoError(t, err)
	assert.True(t, keepOpen)
	assert.Len(t, tr.written[1], 1)

	pingBody := make([]byte, 8)
	pingBody[7] = 42
	keepOpen, err = m.Drive(s, protocol.PacketStatusPing, pingBody)
	require.NoError(t, err)
	assert.False(t, keepOpen)
	assert.Equal(t, PacketStateTerminate, s.State)
	assert.Len(t, tr.written[1], 2)
}

func TestMachine_HandshakeToLoginBindsIdentity(t *testing.T) {
	m, tr := newTestMachine(t)
	egress := m.egress
	egress.Register(1)

	s := New(1, 1<<20)

	body := protocol.PutVarInt(nil, 763)
	body = protocol.PutString(body, "localhost")
	body = append(body, 0x63, 0xDD)
	body = protocol.PutVarInt(body, int32(protocol.NextStateLogin))

	_, err := m.Drive(s, protocol.PacketHandshake, body)
	require.NoError(t, err)
	assert.Equal(t, PacketStateLogin, s.State)

	loginBody := protocol.PutString(nil, "Notch")
	keepOpen, err := m.Drive(s, protocol.PacketLoginHello, loginBody)
	require.NoError(t, err)
	assert.True(t, keepOpen)
	assert.Equal(t, PacketStatePlay, s.State)
	require.NotNil(t, s.Player)
	assert.Equal(t, "Notch", s.Player.Username)
	assert.True(t, s.Decoder.CompressionArmed())
	assert.Len(t, tr.written[1], 2, "login compression then login success")
}

func TestMachine_LoginDecodeFailureSendsLoginDisconnect(t *testing.T) {
	m, tr := newTestMachine(t)
	m.egress.Register(1)
	s := New(1, 1<<20)
	require.NoError(t, s.Transition(PacketStateLogin))

	// A LoginHello body truncated mid-VarInt length prefix fails to decode.
	keepOpen, err := m.Drive(s, protocol.PacketLoginHello, []byte{0xFF})
	assert.Error(t, err)
	assert.False(t, keepOpen)
	require.Len(t, tr.written[1], 1, "a failed login sends exactly one LoginDisconnect packet")
	assert.Nil(t, s.Player)
}

func TestMachine_PacketInTerminateStateIsFatal(t *testing.T) {
	m, _ := newTestMachine(t)
	m.egress.Register(1)
	s := New(1, 1<<20)
	require.NoError(t, s.Transition(PacketStateLogin))
	require.NoError(t, s.Transition(PacketStatePlay))
	require.NoError(t, s.Transition(PacketStateTerminate))

	_, err := m.Drive(s, 0x00, nil)
	assert.Error(t, err)
}

func TestSession_Transition_RejectsIllegalMoves(t *testing.T) {
	s := New(1, 1024)
	err := s.Transition(PacketStatePlay)
	assert.Error(t, err)
	assert.Equal(t, PacketStateHandshake, s.State)
}
