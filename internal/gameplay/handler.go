// Package gameplay provides the default PlayHandler wired into
// session.Machine. Everything a session does once it reaches the Play
// state is opaque gameplay logic this module does not implement; this
// package's only job is to give that injection boundary a concrete,
// harmless default so the module is runnable end-to-end without a real
// game loop attached.
package gameplay

import (
	"log/slog"

	"github.com/riftengine/ingress/internal/session"
)

// NewDefaultHandler returns a session.PlayHandler that acknowledges
// every Play packet without interpreting it: it logs the packet id at
// debug level and keeps the connection open. A real deployment replaces
// this with whatever its actual simulation does.
func NewDefaultHandler() session.PlayHandler {
	return func(s *session.Session, packetID int32, body []byte) (bool, error) {
		slog.Debug("gameplay: received play packet",
			"connection_id", s.ConnectionID,
			"packet_id", packetID,
			"body_len", len(body),
		)
		return true, nil
	}
}
