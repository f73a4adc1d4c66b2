package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/gateway"
	"github.com/tessera-studio/provenance-api/internal/logger"
)

const (
	// DefaultFetchTimeout bounds a single gateway attempt
	DefaultFetchTimeout = 8 * time.Second
	// DefaultMaxBodyBytes caps the size of a metadata document
	DefaultMaxBodyBytes = 1 << 20 // 1MiB
)

// Config holds configuration for the bounded metadata fetcher
type Config struct {
	// FetchTimeout is the per-candidate timeout
	FetchTimeout time.Duration
	// MaxBodyBytes is the response size cap, enforced against Content-Length
	// and again during streamed body consumption
	MaxBodyBytes int64
}

func (c *Config) withDefaults() Config {
	out := Config{FetchTimeout: DefaultFetchTimeout, MaxBodyBytes: DefaultMaxBodyBytes}
	if c != nil {
		if c.FetchTimeout > 0 {
			out.FetchTimeout = c.FetchTimeout
		}
		if c.MaxBodyBytes > 0 {
			out.MaxBodyBytes = c.MaxBodyBytes
		}
	}
	return out
}

// FetchResult is the outcome of a fallback fetch. A zero value means no
// candidate yielded usable metadata; that is a degraded state, not an error.
type FetchResult struct {
	Data        map[string]interface{}
	ResolvedURL string
}

// Fetcher fetches JSON metadata from untrusted third-party hosts with
// per-attempt timeouts, a streamed size cap and multi-gateway fallback.
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/metadata_fetcher.go -package=mocks -mock_names=Fetcher=MockMetadataFetcher
type Fetcher interface {
	// FetchJSONWithFallback tries candidates in order and returns the first
	// that yields a well-formed JSON object. Exhausting all candidates
	// returns a zero FetchResult, not an error.
	FetchJSONWithFallback(ctx context.Context, candidates []string) FetchResult
}

type fetcher struct {
	httpClient adapter.HTTPClient
	gateway    gateway.Resolver
	config     Config
}

// NewFetcher creates a bounded metadata fetcher. The gateway resolver is
// reused to validate post-redirect response URLs.
func NewFetcher(httpClient adapter.HTTPClient, gw gateway.Resolver, config *Config) Fetcher {
	return &fetcher{
		httpClient: httpClient,
		gateway:    gw,
		config:     config.withDefaults(),
	}
}

func (f *fetcher) FetchJSONWithFallback(ctx context.Context, candidates []string) FetchResult {
	for _, candidate := range candidates {
		data, err := f.fetchOne(ctx, candidate)
		if err != nil {
			logger.DebugCtx(ctx, "metadata candidate failed",
				zap.String("url", candidate),
				zap.Error(err))
			continue
		}
		return FetchResult{Data: data, ResolvedURL: candidate}
	}

	return FetchResult{}
}

// fetchOne fetches and parses a single candidate URL
func (f *fetcher) fetchOne(ctx context.Context, url string) (map[string]interface{}, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.FetchTimeout)
	defer cancel()

	resp, err := f.httpClient.GetResponse(attemptCtx, url, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", url))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// The request may have been redirected; the final URL must pass the
	// same allow-list and private-range checks as the original candidate
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL := resp.Request.URL.String()
		if !f.gateway.AllowURL(finalURL) {
			return nil, fmt.Errorf("redirect target not allowed: %s", finalURL)
		}
	}

	if resp.ContentLength > f.config.MaxBodyBytes {
		return nil, fmt.Errorf("declared content length %d exceeds cap %d", resp.ContentLength, f.config.MaxBodyBytes)
	}

	// Stream with a hard cap; one extra byte distinguishes "exactly at the
	// cap" from "over it" for bodies with no declared length
	limited := io.LimitReader(resp.Body, f.config.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds cap %d", f.config.MaxBodyBytes)
	}

	if mtype := mimetype.Detect(body); !isTextualMimeType(mtype.String()) {
		return nil, fmt.Errorf("unexpected content type: %s", mtype.String())
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		// Also covers arrays and primitives: only a plain JSON object
		// unmarshals into a map
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}

	return data, nil
}

func isTextualMimeType(mt string) bool {
	return strings.HasPrefix(mt, "application/json") ||
		strings.HasPrefix(mt, "text/")
}
