package images

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

	"github.com/null000O/StatBuddy/internal/models"
)

// ErrUnsupportedScheme is returned for locators that are neither local
// files nor http(s) URLs.
var ErrUnsupportedScheme = errors.New("unsupported locator scheme")

// Resolver opens the bytes behind a locator
type Resolver struct {
	HTTPClient *http.Client
}

// NewResolver creates a resolver with a bounded HTTP client
func NewResolver() *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Open returns a reader for the locator. file:// URIs and bare paths are read
// from disk, http(s) URLs are fetched.
func (r *Resolver) Open(ctx context.Context, loc models.Locator) (io.ReadCloser, error) {
	if path, ok := loc.LocalPath(); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image file: %w", err)
		}
		return f, nil
	}

	u, err := url.Parse(string(loc))
	if err != nil {
		return nil, fmt.Errorf("invalid locator: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.fetch(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
