package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/logger"
)

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// GetResponse performs a GET request and returns the raw response.
	// Rate-limited (429) responses and network errors are retried with
	// exponential backoff until the context expires; any other status is
	// returned to the caller as-is. The caller is responsible for closing
	// the response body.
	GetResponse(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client

	// retry schedule for rate-limited and failed requests
	retryInitialInterval time.Duration
	retryMaxInterval     time.Duration
	retryMaxElapsedTime  time.Duration
}

// NewHTTPClient creates a new real HTTP client
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		retryInitialInterval: 500 * time.Millisecond,
		retryMaxInterval:     5 * time.Second,
		retryMaxElapsedTime:  30 * time.Second,
	}
}

func (c *RealHTTPClient) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitialInterval
	b.MaxInterval = c.retryMaxInterval
	b.MaxElapsedTime = c.retryMaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Jitter to prevent thundering herd

	return backoff.WithContext(b, ctx)
}

// GetResponse performs a GET request with exponential backoff retry for rate
// limiting (429) responses and network errors. Callers bound the total retry
// window through the context. The caller is responsible for closing the
// response body.
func (c *RealHTTPClient) GetResponse(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	var resp *http.Response

	operation := func() error {
		r, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}

		// Handle rate limiting - retry with backoff
		if r.StatusCode == http.StatusTooManyRequests {
			if err := r.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", req.URL.String()))
			}
			logger.Warn("rate limited, retrying with backoff", zap.String("url", req.URL.String()))
			return fmt.Errorf("rate limited (429), retrying")
		}

		resp = r
		return nil
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, fmt.Errorf("request failed after retries: %w", err)
	}

	return resp, nil
}
