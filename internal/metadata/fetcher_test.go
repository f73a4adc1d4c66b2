package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/metadata"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// openGateway allows everything except URLs matched by deny, so tests can
// exercise post-redirect rejection against local test servers
type openGateway struct {
	deny func(url string) bool
}

func (g *openGateway) Candidates(rawURI string) []string {
	return []string{rawURI}
}

func (g *openGateway) AllowURL(rawURL string) bool {
	return g.deny == nil || !g.deny(rawURL)
}

func newTestFetcher(cfg *metadata.Config, deny func(string) bool) metadata.Fetcher {
	return metadata.NewFetcher(
		adapter.NewHTTPClient(10*time.Second),
		&openGateway{deny: deny},
		cfg,
	)
}

func TestFetcher_FetchJSONWithFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Genesis #1","image":"ipfs://QmImage"}`))
	}))
	defer server.Close()

	f := newTestFetcher(nil, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})

	assert.NotNil(t, result.Data)
	assert.Equal(t, server.URL, result.ResolvedURL)
	assert.Equal(t, "Genesis #1", result.Data["name"])
}

func TestFetcher_FallbackOrder(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte(`{"name":"too late"}`))
	}))
	defer slow.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"from fallback"}`))
	}))
	defer healthy.Close()

	f := newTestFetcher(&metadata.Config{FetchTimeout: 200 * time.Millisecond}, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{failing.URL, slow.URL, healthy.URL})

	assert.NotNil(t, result.Data)
	assert.Equal(t, healthy.URL, result.ResolvedURL)
	assert.Equal(t, "from fallback", result.Data["name"])
}

func TestFetcher_RejectsOversizedBody(t *testing.T) {
	// Body larger than the cap, with a matching declared length
	big := `{"padding":"` + strings.Repeat("x", 4096) + `"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	defer server.Close()

	f := newTestFetcher(&metadata.Config{MaxBodyBytes: 1024}, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})

	assert.Nil(t, result.Data)
	assert.Empty(t, result.ResolvedURL)
}

func TestFetcher_RejectsOversizedStreamedBody(t *testing.T) {
	// No declared length: the flusher forces chunked transfer, so the cap
	// must be enforced on the streamed bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte(`{"padding":"`))
		flusher.Flush()
		_, _ = w.Write([]byte(strings.Repeat("x", 4096) + `"}`))
	}))
	defer server.Close()

	f := newTestFetcher(&metadata.Config{MaxBodyBytes: 1024}, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})

	assert.Nil(t, result.Data)
}

func TestFetcher_RejectsDisallowedRedirectTarget(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"should never be accepted"}`))
	}))
	defer target.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/final", http.StatusFound)
	}))
	defer redirecting.Close()

	deny := func(url string) bool {
		return strings.HasPrefix(url, target.URL)
	}

	f := newTestFetcher(nil, deny)
	result := f.FetchJSONWithFallback(context.Background(), []string{redirecting.URL})

	assert.Nil(t, result.Data)
}

func TestFetcher_RejectsNonObjectJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array", body: `[{"name":"one"},{"name":"two"}]`},
		{name: "string", body: `"just a string"`},
		{name: "number", body: `42`},
		{name: "malformed", body: `{"name": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := newTestFetcher(nil, nil)
			result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})
			assert.Nil(t, result.Data)
		})
	}
}

func TestFetcher_RejectsBinaryContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// PNG magic bytes
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00})
	}))
	defer server.Close()

	f := newTestFetcher(nil, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})

	assert.Nil(t, result.Data)
}

func TestFetcher_RejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := newTestFetcher(nil, nil)
	result := f.FetchJSONWithFallback(context.Background(), []string{server.URL})

	assert.Nil(t, result.Data)
}

func TestFetcher_EmptyCandidates(t *testing.T) {
	f := newTestFetcher(nil, nil)
	result := f.FetchJSONWithFallback(context.Background(), nil)

	assert.Nil(t, result.Data)
	assert.Empty(t, result.ResolvedURL)
}
