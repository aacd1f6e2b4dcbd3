// Package removal implements RemovalPipeline: the fixed four-step
// teardown sequence a PendingRemove-tagged session goes through before
// its state is deleted, run once per tick for every session still
// marked for removal.
package removal

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/riftengine/ingress/internal/compose"
	"github.com/riftengine/ingress/internal/ignmap"
	"github.com/riftengine/ingress/internal/protocol"
	"github.com/riftengine/ingress/internal/session"
)

// Pipeline runs the ordered teardown: broadcast EntitiesDestroy,
// broadcast PlayerRemove, conditionally unicast a Disconnect, then
// erase the directory binding. Only after all four steps may the
// caller delete the session record itself.
type Pipeline struct {
	egress *compose.Compose
	names  *ignmap.IgnMap
}

// New creates a Pipeline writing through egress and reconciling names.
func New(egress *compose.Compose, names *ignmap.IgnMap) *Pipeline {
	return &Pipeline{egress: egress, names: names}
}

// Process runs the teardown sequence for s, which must have
// PendingRemove set. A session that never completed login (s.Player ==
// nil) skips the broadcast steps — there is nothing to announce — but
// still reconciles the directory and unicasts a disconnect reason when
// one was given. Returns an error if any egress write fails; the
// caller still proceeds to delete the session, since a failed
// broadcast must not leave a connection un-torn-down.
func (p *Pipeline) Process(s *session.Session) error {
	if s.PendingRemove == nil {
		return fmt.Errorf("removal: Process called on session without PendingRemove set")
	}

	var errs []error

	if s.Player != nil {
		entityID := int32(s.ConnectionID)

		if _, err := p.egress.Broadcast(protocol.EncodeEntitiesDestroy([]int32{entityID})); err != nil {
			errs = append(errs, fmt.Errorf("broadcasting entities destroy: %w", err))
		}

		if _, err := p.egress.Broadcast(protocol.EncodePlayerRemove([]uuid.UUID{s.Player.UUID})); err != nil {
			errs = append(errs, fmt.Errorf("broadcasting player remove: %w", err))
		}
	}

	if s.PendingRemove.Reason != "" {
		pkt := protocol.EncodePlayDisconnect(s.PendingRemove.Reason)
		if err := p.egress.UnicastNoCompression(s.ConnectionID, pkt); err != nil {
			errs = append(errs, fmt.Errorf("unicasting disconnect: %w", err))
		}
	}

	p.names.Remove(s.ConnectionID)
	p.egress.Deregister(s.ConnectionID)

	if len(errs) > 0 {
		return fmt.Errorf("removal: %v", errs)
	}
	return nil
}
