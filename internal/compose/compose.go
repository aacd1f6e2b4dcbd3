// Package compose implements Compose, the egress facade every other
// component writes through: unicast, unicast-without-compression (for
// the handful of Login packets that must precede compression being
// armed) and broadcast. Broadcast fans out to every session with
// ReceiveBroadcasts set; this module has no spatial visibility or
// LOD-filtering concept to narrow that further.
package compose

import (
	"fmt"
	"sync"

	"github.com/riftengine/ingress/internal/frame"
	"github.com/riftengine/ingress/internal/protocol"
)

// Transport is the raw byte sink a framed, (optionally) compressed
// packet is handed to. proxyfront implements this over real sockets;
// tests substitute a recording fake.
type Transport interface {
	Write(connectionID int64, framedPacket []byte) error
}

type connState struct {
	compressionArmed  bool
	threshold         int32
	receiveBroadcasts bool
}

// Compose is the single egress entry point: every outbound write routes
// through it so connection bookkeeping (state checks, compression)
// stays in one place.
type Compose struct {
	transport Transport

	mu    sync.RWMutex
	conns map[int64]*connState
}

// New creates a Compose writing through transport.
func New(transport Transport) *Compose {
	return &Compose{
		transport: transport,
		conns:     make(map[int64]*connState),
	}
}

// Register adds connectionID to the egress registry, uncompressed and
// not receiving broadcasts, matching a freshly accepted connection's
// default state.
func (c *Compose) Register(connectionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[connectionID] = &connState{}
}

// Deregister removes connectionID, e.g. once RemovalPipeline has torn
// its session down.
func (c *Compose) Deregister(connectionID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, connectionID)
}

// ArmCompression arms compression for connectionID, mirroring the
// FrameDecoder side of the same rule: set exactly once, never back. A
// connection not yet registered is a no-op — RemovalPipeline may race a
// disconnect against a still-in-flight login.
func (c *Compose) ArmCompression(connectionID int64, threshold int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.conns[connectionID]
	if !ok || st.compressionArmed {
		return
	}
	st.compressionArmed = true
	st.threshold = threshold
}

// SetReceiveBroadcasts toggles whether connectionID receives Broadcast
// traffic. IdentityBinder enables this once login completes.
func (c *Compose) SetReceiveBroadcasts(connectionID int64, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.conns[connectionID]; ok {
		st.receiveBroadcasts = enabled
	}
}

// UnicastNoCompression frames payload and writes it to connectionID
// without ever compressing it, regardless of that connection's armed
// state. Used for the Login packets that must reach the client before
// or exactly as compression is armed.
func (c *Compose) UnicastNoCompression(connectionID int64, payload []byte) error {
	return c.transport.Write(connectionID, protocol.FramePacket(payload))
}

// Unicast frames payload to connectionID, compressing it first if that
// connection's compression is armed.
func (c *Compose) Unicast(connectionID int64, payload []byte) error {
	c.mu.RLock()
	st, ok := c.conns[connectionID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("compose: unknown connection %d", connectionID)
	}

	body, err := c.frameFor(st, payload)
	if err != nil {
		return err
	}
	return c.transport.Write(connectionID, body)
}

// Broadcast frames payload at most twice, once for receivers without
// compression armed and once for receivers with it armed (using the
// threshold of the first armed receiver), and writes it to every
// connection with ReceiveBroadcasts set. Returns the number of
// connections it was delivered to.
func (c *Compose) Broadcast(payload []byte) (int, error) {
	c.mu.RLock()
	targets := make([]int64, 0, len(c.conns))
	states := make(map[int64]*connState, len(c.conns))
	for id, st := range c.conns {
		if st.receiveBroadcasts {
			targets = append(targets, id)
			states[id] = st
		}
	}
	c.mu.RUnlock()

	framed := make(map[bool][]byte, 2)
	sent := 0
	for _, id := range targets {
		st := states[id]
		body, ok := framed[st.compressionArmed]
		if !ok {
			var err error
			body, err = c.frameFor(st, payload)
			if err != nil {
				return sent, err
			}
			framed[st.compressionArmed] = body
		}
		if err := c.transport.Write(id, body); err != nil {
			return sent, fmt.Errorf("compose: broadcasting to %d: %w", id, err)
		}
		sent++
	}
	return sent, nil
}

func (c *Compose) frameFor(st *connState, payload []byte) ([]byte, error) {
	if !st.compressionArmed {
		return protocol.FramePacket(payload), nil
	}
	body, err := frame.CompressPayload(nil, payload, st.threshold)
	if err != nil {
		return nil, fmt.Errorf("compose: compressing payload: %w", err)
	}
	return protocol.FramePacket(body), nil
}
