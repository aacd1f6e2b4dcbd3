// Package frame implements per-connection frame decoding: buffering raw
// bytes delivered by the proxy, extracting length-prefixed (optionally
// compressed) packets, and bounding allocation via a per-tick arena.
package frame

import "sync"

// BytePool is a pool of reusable []byte buffers, sized for a per-tick
// decode arena: buffers are handed out during a tick and returned in
// bulk via Reset, instead of individually via Put.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool whose freshly-allocated slices start with
// the given capacity.
func NewBytePool(defaultCap int) *BytePool {
	p := &BytePool{}
	p.pool.New = func() any {
		b := make([]byte, 0, defaultCap)
		return &b
	}
	return p
}

// Arena is a per-tick allocation arena: frames extracted during a tick
// borrow slices from it, and the whole arena is recycled in one shot at
// Reset, giving O(1) amortized allocation with bounded residency.
type Arena struct {
	pool   *BytePool
	claims [][]byte
}

// NewArena creates an arena backed by pool.
func NewArena(pool *BytePool) *Arena {
	return &Arena{pool: pool}
}

// Alloc returns a zeroed slice of length n, borrowed from the arena. The
// slice must not be retained past the next Reset.
func (a *Arena) Alloc(n int) []byte {
	bp := a.pool.pool.Get().(*[]byte)
	b := *bp
	if cap(b) < n {
		b = make([]byte, n)
	} else {
		b = b[:n]
		clear(b)
	}
	a.claims = append(a.claims, b)
	return b
}

// Reset returns every buffer claimed since the last Reset to the backing
// pool and clears the arena's bookkeeping. Must be called exactly once
// per tick, after all frames extracted this tick have been consumed.
func (a *Arena) Reset() {
	for _, b := range a.claims {
		bb := b[:0]
		a.pool.pool.Put(&bb)
	}
	a.claims = a.claims[:0]
}
