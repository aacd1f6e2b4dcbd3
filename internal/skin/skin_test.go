package skin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_CacheMissFetchesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"properties": []map[string]string{
				{"name": "textures", "value": "abc", "signature": "sig"},
			},
		})
	}))
	defer srv.Close()

	r := NewResolver(Config{
		UpstreamURL:    srv.URL,
		RequestTimeout: time.Second,
		Workers:        1,
		ResultBuffer:   4,
	})
	defer r.Stop()

	id := uuid.New()
	r.Request(1, id)

	select {
	case res := <-r.Results():
		assert.Equal(t, int64(1), res.ConnectionID)
		assert.Equal(t, Skin{Value: "abc", Signature: "sig"}, res.Skin)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for skin result")
	}

	r.Request(2, id)
	select {
	case res := <-r.Results():
		assert.Equal(t, int64(2), res.ConnectionID)
		assert.Equal(t, Skin{Value: "abc", Signature: "sig"}, res.Skin)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cached skin result")
	}

	assert.Equal(t, 1, hits, "second request must be served from cache")
}

func TestResolver_UpstreamFailureYieldsEmptySkin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(Config{
		UpstreamURL:    srv.URL,
		RequestTimeout: time.Second,
		Workers:        1,
		ResultBuffer:   4,
	})
	defer r.Stop()

	r.Request(7, uuid.New())

	select {
	case res := <-r.Results():
		assert.Equal(t, Empty, res.Skin)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for empty skin fallback")
	}
}

func TestResolver_Stop_WaitsForInFlightWorkers(t *testing.T) {
	r := NewResolver(Config{
		UpstreamURL:    "http://127.0.0.1:0",
		RequestTimeout: 10 * time.Millisecond,
		Workers:        2,
		ResultBuffer:   4,
	})
	r.Request(1, uuid.New())
	r.Stop()
	require.True(t, true)
}
