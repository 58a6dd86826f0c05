// Package sourcefetch retrieves original media from http(s) URLs or local paths.
package sourcefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/user/clipforge/pkg/ports"
)

var (
	// ErrEmptyLocation is returned when no source location is known.
	ErrEmptyLocation = errors.New("sourcefetch: empty source location")

	// ErrTooLarge is returned when the source exceeds the size limit.
	ErrTooLarge = errors.New("sourcefetch: source exceeds size limit")
)

// DefaultMaxBytes caps a fetched source.
const DefaultMaxBytes = 2 << 30

// Fetcher implements ports.SourceFetcher.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher. A zero timeout leaves requests bounded by ctx only.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch returns the bytes at location: an http(s) URL, a file:// URL or a path.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}

	u, err := url.Parse(location)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return f.fetchHTTP(ctx, location)
		case "file":
			return f.readFile(u.Path)
		}
	}
	return f.readFile(location)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch source: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if info.Size() > f.maxBytes {
		return nil, ErrTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}

var _ ports.SourceFetcher = (*Fetcher)(nil)
