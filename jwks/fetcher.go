package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PaulFidika/supaguard/core"
)

// DefaultMaxDocumentBytes caps the size of a key-set document.
const DefaultMaxDocumentBytes = 1 << 20

// Fetcher retrieves the raw key-set document. Swappable in tests.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// HTTPFetcher performs a single GET per call; it never retries.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher whose client times out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = core.DefaultFetchTimeout
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, MaxBytes: DefaultMaxDocumentBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrKeySetFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrKeySetFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", core.ErrKeySetFetch, resp.Status)
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxDocumentBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrKeySetFetch, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", core.ErrKeySetFetch, limit)
	}
	return body, nil
}
