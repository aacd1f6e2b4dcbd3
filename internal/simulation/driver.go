// Package simulation drives the fixed-rate tick every connected
// session is processed on: a single goroutine, staged in three ordered
// phases (OnLoad reconciliation, PostLoad ingestion and removal,
// OnUpdate packet dispatch), so no two stages ever observe each other's
// in-progress mutations within the same tick.
package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/riftengine/ingress/internal/compose"
	"github.com/riftengine/ingress/internal/frame"
	"github.com/riftengine/ingress/internal/ignmap"
	"github.com/riftengine/ingress/internal/ingress"
	"github.com/riftengine/ingress/internal/protocol"
	"github.com/riftengine/ingress/internal/removal"
	"github.com/riftengine/ingress/internal/session"
	"github.com/riftengine/ingress/internal/skin"
)

// Driver owns every live Session and advances them one tick at a time.
// Not safe for concurrent use; Run's goroutine is the only writer of
// its session map.
type Driver struct {
	queue   *ingress.ReceiveQueue
	names   *ignmap.IgnMap
	egress  *compose.Compose
	machine *session.Machine
	removal *removal.Pipeline
	skins   *skin.Resolver

	arenaPool     *frame.BytePool
	maxPacketSize int
	tickInterval  time.Duration

	sessions map[int64]*session.Session

	lastTickDuration time.Duration
}

// Config gathers Driver's collaborators and tuning knobs, mirrored from
// internal/config.Config.
type Config struct {
	Queue         *ingress.ReceiveQueue
	Names         *ignmap.IgnMap
	Egress        *compose.Compose
	Machine       *session.Machine
	Removal       *removal.Pipeline
	Skins         *skin.Resolver
	MaxPacketSize int
	TickInterval  time.Duration
}

// NewDriver creates a Driver from cfg.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		queue:         cfg.Queue,
		names:         cfg.Names,
		egress:        cfg.Egress,
		machine:       cfg.Machine,
		removal:       cfg.Removal,
		skins:         cfg.Skins,
		arenaPool:     frame.NewBytePool(2048),
		maxPacketSize: cfg.MaxPacketSize,
		tickInterval:  cfg.TickInterval,
		sessions:      make(map[int64]*session.Session),
	}
}

// Run blocks, ticking at Driver's configured interval until ctx is
// cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case start := <-ticker.C:
			d.tick()
			d.lastTickDuration = time.Since(start)
		}
	}
}

// LastTickDuration reports how long the most recently completed tick
// took to run, surfaced here as a plain accessor rather than through a
// metrics SDK.
func (d *Driver) LastTickDuration() time.Duration {
	return d.lastTickDuration
}

// SessionCount reports how many sessions are currently live. Safe to
// call from within the tick goroutine only (e.g. from a StatusProvider
// invoked by Machine.Drive during onUpdate); Driver's session map has
// no lock of its own.
func (d *Driver) SessionCount() int {
	return len(d.sessions)
}

func (d *Driver) tick() {
	arena := frame.NewArena(d.arenaPool)
	defer arena.Reset()

	d.onLoad()
	d.postLoad()
	d.onUpdate(arena)
}

// onLoad reconciles the name directory and turns queued connect/
// disconnect events into session lifecycle changes.
func (d *Driver) onLoad() {
	d.names.Update()

	for _, ev := range d.queue.DrainConnects() {
		d.sessions[ev.ConnectionID] = session.New(ev.ConnectionID, d.maxPacketSize)
		d.egress.Register(ev.ConnectionID)
	}

	for _, ev := range d.queue.DrainDisconnects() {
		if s, ok := d.sessions[ev.ConnectionID]; ok {
			s.MarkPendingRemove(ev.Reason)
		}
	}

	for _, res := range d.drainSkinResults() {
		if s, ok := d.sessions[res.ConnectionID]; ok && s.Player != nil {
			skinCopy := res.Skin
			s.Player.Skin = &skinCopy
		}
	}
}

func (d *Driver) drainSkinResults() []skin.Result {
	var out []skin.Result
	for {
		select {
		case res := <-d.skins.Results():
			out = append(out, res)
		default:
			return out
		}
	}
}

// postLoad queues raw bytes into each touched session's decoder exactly
// once per tick (matching ingress_to_ecs's shift_excess-then-queue
// pair) and runs RemovalPipeline for every session tagged
// PendingRemove, matching remove_player_from_visibility/remove_player.
func (d *Driver) postLoad() {
	shifted := make(map[int64]bool)
	for _, ev := range d.queue.DrainPackets() {
		s, ok := d.sessions[ev.ConnectionID]
		if !ok {
			continue
		}
		if !shifted[ev.ConnectionID] {
			s.Decoder.ShiftExcess()
			shifted[ev.ConnectionID] = true
		}
		s.Decoder.Queue(ev.Data)
	}

	for id, s := range d.sessions {
		if s.PendingRemove == nil {
			continue
		}
		if err := d.removal.Process(s); err != nil {
			slog.Error("simulation: removal pipeline", "connection_id", id, "error", err)
		}
		delete(d.sessions, id)
	}
}

// onUpdate drains every available frame from each remaining session's
// decoder and drives its state machine. A frame too short to carry a
// packet id, a decode error, or a returned error from Drive all mark
// the session PendingRemove rather than tearing it down immediately —
// removal always happens in the next tick's PostLoad stage so
// within-tick ordering stays fixed. These are all silent teardowns
// (empty reason, no Disconnect packet sent): the transport itself is
// assumed already suspect once a protocol error has occurred. The one
// exception — a login processing failure — sends its own
// LoginDisconnect inside Machine.Drive before returning the error, so
// by the time it reaches here there is nothing left to announce.
func (d *Driver) onUpdate(arena *frame.Arena) {
	for _, s := range d.sessions {
		for {
			f, ok, err := s.Decoder.TryNext(arena)
			if err != nil {
				slog.Debug("simulation: decoder error", "connection_id", s.ConnectionID, "error", err)
				s.MarkPendingRemove("")
				break
			}
			if !ok {
				break
			}

			packetID, n, err := protocol.ReadVarInt(f.Data, 0)
			if err != nil {
				slog.Debug("simulation: malformed packet id", "connection_id", s.ConnectionID, "error", err)
				s.MarkPendingRemove("")
				break
			}

			keepOpen, err := d.machine.Drive(s, packetID, f.Data[n:])
			if err != nil {
				slog.Debug("simulation: drive error", "connection_id", s.ConnectionID, "error", err)
				s.MarkPendingRemove("")
				break
			}
			if !keepOpen {
				s.MarkPendingRemove("")
				break
			}
		}
	}
}
