// Package session models one connection's lifecycle as a single tagged
// record: a PacketState driving which packets are legal, a FrameDecoder
// for that connection's byte stream, and an optional set of
// player-only components populated once login succeeds, generalized to
// a single Handshake→Play lifecycle rather than separate per-role
// connection types.
package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/riftengine/ingress/internal/frame"
	"github.com/riftengine/ingress/internal/skin"
)

// PacketState is the state machine driving which packet kinds are legal
// on a connection: only forward transitions along
// Handshake→{Status,Login}→Play→Terminate are legal.
type PacketState int32

const (
	PacketStateHandshake PacketState = iota
	PacketStateStatus
	PacketStateLogin
	PacketStatePlay
	PacketStateTerminate
)

func (s PacketState) String() string {
	switch s {
	case PacketStateHandshake:
		return "HANDSHAKE"
	case PacketStateStatus:
		return "STATUS"
	case PacketStateLogin:
		return "LOGIN"
	case PacketStatePlay:
		return "PLAY"
	case PacketStateTerminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

// legalNext enumerates, per current state, the set of states a
// transition may land on. Self-transitions are never listed: a state
// machine that "transitions" to its own state isn't progressing, and
// every real caller in this module already guards that case before
// calling Transition.
var legalNext = map[PacketState]map[PacketState]bool{
	PacketStateHandshake: {PacketStateStatus: true, PacketStateLogin: true},
	PacketStateStatus:    {PacketStateTerminate: true},
	PacketStateLogin:     {PacketStatePlay: true, PacketStateTerminate: true},
	PacketStatePlay:      {PacketStateTerminate: true},
	PacketStateTerminate: {},
}

// ErrIllegalTransition is returned when a caller attempts to move a
// session to a state not reachable from its current state.
type ErrIllegalTransition struct {
	From, To PacketState
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("session: illegal transition %s -> %s", e.From, e.To)
}

// PlayerInventory is a placeholder for the inventory component attached
// once a session enters Play. This module does not model inventory
// contents; it exists only so PlayerComponents has a slot later
// gameplay code can populate.
type PlayerInventory struct{}

// ConfirmBlockSequences is a placeholder for the block-action ack
// component attached on login. Its contents are opaque gameplay state.
type ConfirmBlockSequences struct{}

// ActiveAnimation is a placeholder for the current animation component
// attached on login. Opaque gameplay state.
type ActiveAnimation struct{}

// PendingRemove marks a session for teardown by RemovalPipeline at the
// next PostLoad stage. Reason is forwarded to the client as a Play
// Disconnect packet when non-empty.
type PendingRemove struct {
	Reason string
}

// PlayerComponents holds the state only present once IdentityBinder has
// completed login.
type PlayerComponents struct {
	Username string
	UUID     uuid.UUID

	Inventory             PlayerInventory
	ConfirmBlockSequences ConfirmBlockSequences
	ActiveAnimation       ActiveAnimation

	ReceiveBroadcasts bool

	// Skin is nil until the async SkinResolver lookup started at login
	// completes and is drained by the simulation tick. A session torn
	// down before that happens simply never sees it set (late-arrival
	// drop).
	Skin *skin.Skin
}

// Session is one connection's full state: its position in the packet
// state machine, its frame decoder, and — once logged in — its player
// components. ConnectionId is this module's stable handle for a
// connection, independent of any OS socket fd.
type Session struct {
	ConnectionID int64
	State        PacketState
	Decoder      *frame.Decoder

	Player *PlayerComponents

	PendingRemove *PendingRemove
}

// New creates a freshly accepted session in PacketStateHandshake, with
// default (pre-login) components set.
func New(connectionID int64, maxPacketSize int) *Session {
	return &Session{
		ConnectionID: connectionID,
		State:        PacketStateHandshake,
		Decoder:      frame.NewDecoder(maxPacketSize),
	}
}

// Transition moves the session to a new PacketState, enforcing the
// legal-transition table above. Returns ErrIllegalTransition without
// mutating state if the move isn't legal.
func (s *Session) Transition(to PacketState) error {
	if !legalNext[s.State][to] {
		return &ErrIllegalTransition{From: s.State, To: to}
	}
	s.State = to
	return nil
}

// MarkPendingRemove tags the session for teardown at the next
// RemovalPipeline pass. Idempotent: the first reason wins.
func (s *Session) MarkPendingRemove(reason string) {
	if s.PendingRemove != nil {
		return
	}
	s.PendingRemove = &PendingRemove{Reason: reason}
}
