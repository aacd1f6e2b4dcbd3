// Package skin implements SkinResolver: an async fetch-then-cache
// pipeline for player skins, isolated behind a channel so the
// single-threaded simulation tick never blocks on network I/O. Grounded
// on the cross-thread producer/consumer pattern the original
// implementation uses for its own skin lookup (tasks.spawn + an mpsc
// channel drained once per tick), adapted to Go's idiomatic worker-pool
// + channel shape.
package skin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Skin is the minimal Mojang-session-server skin payload this module
// forwards to clients: a base64 texture blob and its signature.
type Skin struct {
	Value     string
	Signature string
}

// Empty is the sentinel skin substituted whenever an upstream fetch
// fails.
var Empty = Skin{}

// Result is one resolved lookup, delivered to the tick consumer.
type Result struct {
	ConnectionID int64
	Skin         Skin
}

// Resolver fetches and caches player skins. Lookups are served from
// cache synchronously; misses are dispatched to a bounded worker pool
// and delivered asynchronously through Results(). Callers must drain
// Results() once per tick; the channel is never read from the hot
// per-packet path.
type Resolver struct {
	client      *http.Client
	upstreamURL string

	mu    sync.RWMutex
	cache map[uuid.UUID]Skin

	jobs    chan job
	results chan Result

	wg sync.WaitGroup
}

type job struct {
	connID int64
	id     uuid.UUID
}

// Config parameterizes worker count and channel sizing, mirrored from
// the module's configuration (internal/config).
type Config struct {
	UpstreamURL    string
	RequestTimeout time.Duration
	Workers        int
	ResultBuffer   int
}

// NewResolver starts cfg.Workers fetch goroutines, each pulling from a
// shared job queue. Stop must be called to release them.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		upstreamURL: cfg.UpstreamURL,
		cache:       make(map[uuid.UUID]Skin),
		jobs:        make(chan job, cfg.Workers*4),
		results:     make(chan Result, cfg.ResultBuffer),
	}

	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	return r
}

// Request looks up a player's skin for connID, using id as the cache
// key. A cache hit is delivered synchronously on this call's goroutine
// (still only via Results(), to keep a single delivery path); a miss is
// queued for the worker pool. Safe to call from any goroutine.
func (r *Resolver) Request(connID int64, id uuid.UUID) {
	r.mu.RLock()
	cached, hit := r.cache[id]
	r.mu.RUnlock()

	if hit {
		r.deliver(Result{ConnectionID: connID, Skin: cached})
		return
	}

	select {
	case r.jobs <- job{connID: connID, id: id}:
	default:
		// Job queue saturated: degrade to the empty skin rather than
		// block the caller, which may be the tick goroutine.
		r.deliver(Result{ConnectionID: connID, Skin: Empty})
	}
}

// Results returns the channel of resolved lookups. The simulation
// driver drains it once per tick; any result whose connection has since
// disconnected is simply discarded by the caller (late-arrival drop).
func (r *Resolver) Results() <-chan Result {
	return r.results
}

// Stop closes the job queue and waits for in-flight workers to finish.
func (r *Resolver) Stop() {
	close(r.jobs)
	r.wg.Wait()
}

func (r *Resolver) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		skin := r.fetch(j.id)

		r.mu.Lock()
		r.cache[j.id] = skin
		r.mu.Unlock()

		r.deliver(Result{ConnectionID: j.connID, Skin: skin})
	}
}

func (r *Resolver) deliver(res Result) {
	select {
	case r.results <- res:
	default:
		// Result queue saturated: the result is dropped and the
		// session's Skin stays nil. A worker-fetched skin is still in
		// the cache for later Request calls.
	}
}

type sessionProfile struct {
	Properties []struct {
		Name      string `json:"name"`
		Value     string `json:"value"`
		Signature string `json:"signature"`
	} `json:"properties"`
}

func (r *Resolver) fetch(id uuid.UUID) Skin {
	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", r.upstreamURL, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Empty
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Empty
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Empty
	}

	var profile sessionProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Empty
	}

	for _, prop := range profile.Properties {
		if prop.Name == "textures" {
			return Skin{Value: prop.Value, Signature: prop.Signature}
		}
	}
	return Empty
}
