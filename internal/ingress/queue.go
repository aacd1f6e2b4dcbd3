// Package ingress buffers connection lifecycle and packet-data events
// delivered by proxyfront from arbitrary goroutines, and exposes them to
// the simulation tick as three independently ordered, drain-once-per-tick
// streams. No per-event locking happens on the tick's consume path: each
// stream's mutex is held only for the append or the swap, never for
// processing.
package ingress

// ConnectEvent records a newly accepted connection.
type ConnectEvent struct {
	ConnectionID int64
}

// DisconnectEvent records a connection that the transport has already
// torn down. Reason becomes the session's PendingRemove reason; when it
// is non-empty, RemovalPipeline sends it to the client in a Play
// Disconnect packet.
type DisconnectEvent struct {
	ConnectionID int64
	Reason       string
}

// PacketEvent carries raw bytes read from one connection's socket,
// queued for that connection's FrameDecoder in the next tick.
type PacketEvent struct {
	ConnectionID int64
	Data         []byte
}

// ReceiveQueue is the ingress mailbox: a set of per-kind FIFOs fed by
// proxyfront's accept/read goroutines and drained once per tick by the
// simulation driver. Three independent mutex-guarded append logs, one
// per event kind, rather than a single map of live clients, so
// connect/disconnect/packet-data events never block each other.
type ReceiveQueue struct {
	connects    fifo[ConnectEvent]
	disconnects fifo[DisconnectEvent]
	packets     fifo[PacketEvent]
}

// NewReceiveQueue creates an empty queue.
func NewReceiveQueue() *ReceiveQueue {
	return &ReceiveQueue{}
}

// PushConnect enqueues a newly accepted connection. Safe to call from
// any goroutine.
func (q *ReceiveQueue) PushConnect(ev ConnectEvent) {
	q.connects.push(ev)
}

// PushDisconnect enqueues a connection teardown. Safe to call from any
// goroutine.
func (q *ReceiveQueue) PushDisconnect(ev DisconnectEvent) {
	q.disconnects.push(ev)
}

// PushPacket enqueues raw bytes read from a connection. Safe to call
// from any goroutine.
func (q *ReceiveQueue) PushPacket(ev PacketEvent) {
	q.packets.push(ev)
}

// DrainConnects returns and clears all connect events queued since the
// last drain, in arrival order. Must only be called from the tick
// goroutine.
func (q *ReceiveQueue) DrainConnects() []ConnectEvent {
	return q.connects.drain()
}

// DrainDisconnects returns and clears all disconnect events queued
// since the last drain, in arrival order. Must only be called from the
// tick goroutine.
func (q *ReceiveQueue) DrainDisconnects() []DisconnectEvent {
	return q.disconnects.drain()
}

// DrainPackets returns and clears all packet events queued since the
// last drain, in arrival order. Must only be called from the tick
// goroutine.
func (q *ReceiveQueue) DrainPackets() []PacketEvent {
	return q.packets.drain()
}
