// Package proxyfront is the minimal TCP front door standing in for a
// reverse proxy that has already terminated TCP upstream of this
// module: it accepts raw connections, assigns each a ConnectionId, and
// forwards bytes into the ingress.ReceiveQueue and back out again with
// no protocol awareness of its own (no encryption, no per-packet opcode
// dispatch — that lives in the simulation tick, not here).
package proxyfront

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftengine/ingress/internal/ingress"
)

// Front accepts connections and bridges them to a ReceiveQueue. Writes
// issued through Write are routed to the matching live connection;
// writes to a connection that has since closed are silently dropped,
// matching the "late delivery is a no-op" handling every other egress
// path in this module uses.
type Front struct {
	queue *ingress.ReceiveQueue

	nextID atomic.Int64

	mu    sync.RWMutex
	conns map[int64]net.Conn
}

// New creates a Front delivering events into queue.
func New(queue *ingress.ReceiveQueue) *Front {
	return &Front{
		queue: queue,
		conns: make(map[int64]net.Conn),
	}
}

// Write implements compose.Transport: it writes framedPacket to
// connectionID's socket if that connection is still live.
func (f *Front) Write(connectionID int64, framedPacket []byte) error {
	f.mu.RLock()
	conn, ok := f.conns[connectionID]
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	_, err := conn.Write(framedPacket)
	return err
}

// Serve accepts connections on ln until ctx is cancelled, one goroutine
// per connection.
func (f *Front) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
acceptLoop:
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break acceptLoop
			}
			select {
			case <-ctx.Done():
				break acceptLoop
			default:
			}
			slog.Error("proxyfront: accept failed", "error", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			f.handleConnection(ctx, conn)
		}()
	}
	wg.Wait()
	return nil
}

func (f *Front) handleConnection(ctx context.Context, conn net.Conn) {
	connID := f.nextID.Add(1)

	f.mu.Lock()
	f.conns[connID] = conn
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, connID)
		f.mu.Unlock()
		conn.Close()
		f.queue.PushDisconnect(ingress.DisconnectEvent{ConnectionID: connID, Reason: "connection closed"})
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	f.queue.PushConnect(ingress.ConnectEvent{ConnectionID: connID})

	reader := bufio.NewReader(conn)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			f.queue.PushPacket(ingress.PacketEvent{ConnectionID: connID, Data: chunk})
		}
		if err != nil {
			return
		}
	}
}

// Listen is a convenience wrapper around net.Listen.
func Listen(bindAddress string, port int) (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", bindAddress, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("proxyfront: listening on %s: %w", addr, err)
	}
	return ln, nil
}
