package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where the QTShock binaries are published.
const DefaultBaseURL = "https://qtshock.com/downloads/bin/"

// DefaultTimeout bounds one download, body included, when no client is
// given.
const DefaultTimeout = 60 * time.Second

// Fetcher opens a remote artifact by file name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// HTTPFetcher downloads artifacts with GET requests below BaseURL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher returns a fetcher for baseURL, or DefaultBaseURL when empty.
// A nil client is replaced by one limited to DefaultTimeout.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPFetcher{BaseURL: baseURL, Client: client}
}

// URL returns the download location of name.
func (f *HTTPFetcher) URL(name string) string {
	return strings.TrimSuffix(f.BaseURL, "/") + "/" + name
}

// Fetch issues the GET request. Any non-2xx status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	url := f.URL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}
