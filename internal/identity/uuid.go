// Package identity implements IdentityBinder: the ordered sequence that
// turns a Login-state connection into a Play-state player, using an
// offline-only identity model (no Mojang session-server verification).
package identity

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/google/uuid"
)

// OfflineUUID derives a deterministic UUID from a username, used when a
// LoginHello carries no authenticated profile id: SHA-256(username),
// keep the first 16 bytes, interpret them as a big-endian 128-bit
// integer. Byte order here was an open question with no canonical
// answer; this module pins big-endian permanently.
func OfflineUUID(username string) uuid.UUID {
	digest := sha256.Sum256([]byte(username))

	hi := binary.BigEndian.Uint64(digest[0:8])
	lo := binary.BigEndian.Uint64(digest[8:16])

	var id uuid.UUID
	binary.BigEndian.PutUint64(id[0:8], hi)
	binary.BigEndian.PutUint64(id[8:16], lo)
	return id
}
