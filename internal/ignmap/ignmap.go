// Package ignmap implements IgnMap: the username-to-connection
// directory, with deferred insert/update reconciled once per tick
// rather than on every mutation: mutations go to a pending log, and
// Update takes that log and applies it to the live maps while holding
// a single RWMutex.
package ignmap

import "sync"

type mutationKind int

const (
	mutationInsert mutationKind = iota
	mutationRemove
)

type mutation struct {
	kind         mutationKind
	username     string
	connectionID int64
}

// IgnMap is the username<->connection bijection directory: at most one
// live connection per username at any time, reconciled once per tick.
// Reads (Lookup) are lock-free relative to writers beyond a single
// RLock; writes during a tick are deferred to Update so no reader
// observes a half-applied batch.
type IgnMap struct {
	pendingMu sync.Mutex
	pending   []mutation

	mu       sync.RWMutex
	byName   map[string]int64
	byConnID map[int64]string
}

// New creates an empty directory.
func New() *IgnMap {
	return &IgnMap{
		byName:   make(map[string]int64),
		byConnID: make(map[int64]string),
	}
}

// Insert queues a username's binding to a connection. Visible to Lookup
// only after the next Update call.
func (m *IgnMap) Insert(username string, connectionID int64) {
	m.pendingMu.Lock()
	m.pending = append(m.pending, mutation{kind: mutationInsert, username: username, connectionID: connectionID})
	m.pendingMu.Unlock()
}

// Remove queues the removal of connectionID's binding, if any. Visible
// to Lookup only after the next Update call.
func (m *IgnMap) Remove(connectionID int64) {
	m.pendingMu.Lock()
	m.pending = append(m.pending, mutation{kind: mutationRemove, connectionID: connectionID})
	m.pendingMu.Unlock()
}

// Update applies every mutation queued since the last call, in order.
// Must be called exactly once per tick, before any component reads the
// directory that tick.
func (m *IgnMap) Update() {
	m.pendingMu.Lock()
	batch := m.pending
	m.pending = nil
	m.pendingMu.Unlock()

	if len(batch) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mu := range batch {
		switch mu.kind {
		case mutationInsert:
			// Evict whoever previously held this username (a same-name
			// reconnect displacing a still-registered old connection) and
			// whatever username this connection previously held (a
			// reused connection claiming a new name). Both directions
			// must be cleared to keep the map a true bijection.
			if oldConn, ok := m.byName[mu.username]; ok && oldConn != mu.connectionID {
				delete(m.byConnID, oldConn)
			}
			if oldName, ok := m.byConnID[mu.connectionID]; ok && oldName != mu.username {
				delete(m.byName, oldName)
			}
			m.byName[mu.username] = mu.connectionID
			m.byConnID[mu.connectionID] = mu.username
		case mutationRemove:
			if name, ok := m.byConnID[mu.connectionID]; ok {
				delete(m.byConnID, mu.connectionID)
				delete(m.byName, name)
			}
		}
	}
}

// Lookup returns the connection currently bound to username, reflecting
// the state as of the last Update call.
func (m *IgnMap) Lookup(username string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	return id, ok
}

// Username returns the username currently bound to connectionID, if
// any, as of the last Update call.
func (m *IgnMap) Username(connectionID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byConnID[connectionID]
	return name, ok
}
