package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fetcher warms one asset, e.g. by pulling it through a CDN or cache.
type Fetcher interface {
	Fetch(ctx context.Context, asset string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, asset string) error

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, asset string) error { return f(ctx, asset) }

// HTTPFetcher warms http(s) assets with a GET whose body is discarded.
// Non-URL references are accepted as already local.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client}
}

// Fetch requests asset and drains the response.
func (f *HTTPFetcher) Fetch(ctx context.Context, asset string) error {
	if !strings.HasPrefix(asset, "http://") && !strings.HasPrefix(asset, "https://") {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", asset, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("read %s: %w", asset, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("fetch %s: status %d", asset, resp.StatusCode)
	}
	return nil
}
