// Package fetch retrieves raw response bytes from a source URL. It knows
// nothing about metric semantics; a failed fetch is an ordinary returned
// error, never a reason to abort the surrounding collection cycle.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Error describes a failed fetch. It carries the URL and, for HTTP-level
// failures, the status code, so callers can log a useful cause without
// inspecting the transport error chain.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher retrieves the raw payload behind a URL. Implementations must treat
// every failure mode (transport error, bad status, empty body) as a returned
// error so one unreachable service never takes down a cycle.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the production Fetcher, a thin wrapper over net/http with a
// per-request timeout. It performs a single GET with no retries.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after the given
// duration. A zero timeout disables the client-side deadline; callers are
// then expected to bound requests via context.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET against url and returns the response body.
// Non-2xx statuses and empty bodies count as failures: the EdgeX endpoints
// always return a payload, so an empty 200 means the service is not in a
// state worth sampling.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if len(body) == 0 {
		return nil, &Error{URL: url, Err: fmt.Errorf("empty response body")}
	}

	return body, nil
}
