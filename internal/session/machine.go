package session

import (
	"fmt"
	"log/slog"

	"github.com/riftengine/ingress/internal/compose"
	"github.com/riftengine/ingress/internal/identity"
	"github.com/riftengine/ingress/internal/protocol"
)

// PlayHandler is the injection boundary for Play-state packets. This
// module treats everything past login as opaque gameplay: the state
// machine only validates that a packet arrived in a legal state and
// hands its bytes to whatever PlayHandler the caller wired in.
type PlayHandler func(s *Session, packetID int32, body []byte) (keepOpen bool, err error)

// StatusInfo supplies the fields MarshalStatus needs, refreshed by the
// caller once per status request rather than cached on the Machine.
type StatusInfo struct {
	VersionName     string
	ProtocolVersion int
	MaxPlayers      int
	OnlinePlayers   int
	MOTD            string
}

// StatusProvider returns the current server status snapshot.
type StatusProvider func() StatusInfo

// Machine drives a single Session's packet-state transitions: given a
// decoded packet id and body, it produces a response (written directly
// through compose, since responses are framed and dispatched
// immediately rather than buffered for the caller) and reports whether
// the connection should remain open. Dispatch is per-state, mirroring
// the Handshake/Login/Status split of the wire protocol itself.
type Machine struct {
	egress  *compose.Compose
	binder  *identity.Binder
	status  StatusProvider
	play    PlayHandler
}

// NewMachine wires a Machine from its collaborators. play may be nil,
// in which case Play-state packets are acknowledged and discarded.
func NewMachine(egress *compose.Compose, binder *identity.Binder, status StatusProvider, play PlayHandler) *Machine {
	if play == nil {
		play = func(*Session, int32, []byte) (bool, error) { return true, nil }
	}
	return &Machine{egress: egress, binder: binder, status: status, play: play}
}

// Drive processes one decoded packet against s, advancing its state as
// appropriate and returning whether the connection should remain open.
// A non-nil error is always fatal for the session.
func (m *Machine) Drive(s *Session, packetID int32, body []byte) (keepOpen bool, err error) {
	switch s.State {
	case PacketStateHandshake:
		return m.driveHandshake(s, body)
	case PacketStateStatus:
		return m.driveStatus(s, packetID, body)
	case PacketStateLogin:
		return m.driveLogin(s, packetID, body)
	case PacketStatePlay:
		return m.play(s, packetID, body)
	default:
		return false, fmt.Errorf("session: packet received in state %s", s.State)
	}
}

func (m *Machine) driveHandshake(s *Session, body []byte) (bool, error) {
	h, err := protocol.DecodeHandshake(body)
	if err != nil {
		return false, fmt.Errorf("session: decoding handshake: %w", err)
	}

	var next PacketState
	switch h.NextState {
	case protocol.NextStateStatus:
		next = PacketStateStatus
	case protocol.NextStateLogin:
		next = PacketStateLogin
	default:
		return false, fmt.Errorf("session: unsupported next_state %d", h.NextState)
	}

	if err := s.Transition(next); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Machine) driveStatus(s *Session, packetID int32, body []byte) (bool, error) {
	switch packetID {
	case protocol.PacketStatusRequest:
		info := m.status()
		json, err := protocol.MarshalStatus(info.VersionName, info.ProtocolVersion, info.OnlinePlayers, info.MaxPlayers, info.MOTD)
		if err != nil {
			return false, fmt.Errorf("session: marshaling status: %w", err)
		}
		if err := m.egress.UnicastNoCompression(s.ConnectionID, protocol.EncodeQueryResponse(json)); err != nil {
			return false, fmt.Errorf("session: sending status response: %w", err)
		}
		return true, nil

	case protocol.PacketStatusPing:
		ping, err := protocol.DecodeQueryPing(body)
		if err != nil {
			return false, fmt.Errorf("session: decoding ping: %w", err)
		}
		if err := m.egress.UnicastNoCompression(s.ConnectionID, protocol.EncodeQueryPong(ping.Payload)); err != nil {
			return false, fmt.Errorf("session: sending pong: %w", err)
		}
		_ = s.Transition(PacketStateTerminate)
		return false, nil

	default:
		return true, nil
	}
}

func (m *Machine) driveLogin(s *Session, packetID int32, body []byte) (bool, error) {
	if packetID != protocol.PacketLoginHello {
		return true, nil
	}

	hello, err := protocol.DecodeLoginHello(body)
	if err != nil {
		return m.failLogin(s, "invalid login request", fmt.Errorf("session: decoding login hello: %w", err))
	}

	result, threshold, err := m.binder.Bind(s.ConnectionID, hello)
	if err != nil {
		return m.failLogin(s, "login failed", fmt.Errorf("session: binding identity: %w", err))
	}

	// The egress side is already armed by Bind; only the decoder (the
	// incoming-frame side of the same connection) is this caller's
	// responsibility.
	s.Decoder.SetCompression(threshold)

	s.Player = &PlayerComponents{
		Username:          result.Username,
		UUID:              result.UUID,
		ReceiveBroadcasts: true,
	}

	if err := s.Transition(PacketStatePlay); err != nil {
		return m.failLogin(s, "login failed", err)
	}
	return true, nil
}

// failLogin is the one path that surfaces a message to the client
// before tearing a session down: a login processing failure sends an
// uncompressed LoginDisconnect, since a client mid-login has no other
// way to learn why it was dropped. Every other fatal error in this
// module tears the session down silently.
func (m *Machine) failLogin(s *Session, reason string, cause error) (bool, error) {
	pkt := protocol.EncodeLoginDisconnect(reason)
	if err := m.egress.UnicastNoCompression(s.ConnectionID, pkt); err != nil {
		slog.Debug("session: sending login disconnect", "connection_id", s.ConnectionID, "error", err)
	}
	return false, cause
}
