package identity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/riftengine/ingress/internal/protocol"
)

// Egress is the narrow slice of the egress facade IdentityBinder needs:
// two unicasts (one deliberately uncompressed, since it must reach the
// client before compression is armed) and arming broadcast delivery
// once a player is live. Declared here rather than depending on the
// compose package directly, so compose can depend on session/identity
// types without an import cycle.
type Egress interface {
	UnicastNoCompression(connID int64, payload []byte) error
	Unicast(connID int64, payload []byte) error
	ArmCompression(connID int64, threshold int32)
	SetReceiveBroadcasts(connID int64, enabled bool)
}

// NameDirectory is the subset of IgnMap's interface IdentityBinder needs
// to register a freshly bound username.
type NameDirectory interface {
	Insert(username string, connID int64)
}

// SkinRequester is the subset of SkinResolver's interface IdentityBinder
// needs to kick off an async skin fetch for a newly bound identity.
type SkinRequester interface {
	Request(connID int64, id uuid.UUID)
}

// Binder implements the ordered login sequence: send LoginCompression
// uncompressed, arm compression before anything else is sent, derive an
// identity, start an async skin fetch,
// confirm login to the client, then register the identity for
// broadcast delivery. Every step after arming compression happens in
// this fixed order so a partially-bound session is never observable by
// other components.
type Binder struct {
	egress               Egress
	names                NameDirectory
	skins                SkinRequester
	compressionThreshold int32
}

// NewBinder creates a Binder that arms the given compression threshold
// on every successful login.
func NewBinder(egress Egress, names NameDirectory, skins SkinRequester, compressionThreshold int32) *Binder {
	return &Binder{
		egress:               egress,
		names:                names,
		skins:                skins,
		compressionThreshold: compressionThreshold,
	}
}

// Result is the identity a successful Bind produced, for the caller to
// attach to its own session record.
type Result struct {
	Username string
	UUID     uuid.UUID
}

// Bind runs the full login sequence for connID against the decoded
// LoginHello, and reports the compression threshold the caller must arm
// on that connection's decoder (decoder ownership stays with the
// session, not this package). Compression is armed on the egress side
// before LoginSuccess is sent, so that packet — and everything after
// it — actually goes out compressed.
func (b *Binder) Bind(connID int64, hello protocol.LoginHello) (Result, int32, error) {
	compressionPkt := protocol.EncodeLoginCompression(b.compressionThreshold)
	if err := b.egress.UnicastNoCompression(connID, compressionPkt); err != nil {
		return Result{}, 0, fmt.Errorf("identity: sending login compression: %w", err)
	}

	b.egress.ArmCompression(connID, b.compressionThreshold)

	id := hello.ProfileID
	if !hello.HasUUID {
		id = OfflineUUID(hello.Username)
	}

	b.skins.Request(connID, id)

	successPkt := protocol.EncodeLoginSuccess(id, hello.Username)
	if err := b.egress.Unicast(connID, successPkt); err != nil {
		return Result{}, 0, fmt.Errorf("identity: sending login success: %w", err)
	}

	b.names.Insert(hello.Username, connID)
	b.egress.SetReceiveBroadcasts(connID, true)

	return Result{Username: hello.Username, UUID: id}, b.compressionThreshold, nil
}
