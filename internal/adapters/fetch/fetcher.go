// Package fetch retrieves package artifacts from the local filesystem or
// over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// SidecarSuffix is appended to an artifact location to find its published digest.
	SidecarSuffix = ".sha256"

	// DefaultAttempts is the number of tries for a transient HTTP failure.
	DefaultAttempts = 3

	// DefaultDelay is the wait before the first retry. It doubles on each retry.
	DefaultDelay = time.Second

	userAgent = "keg"
)

var _ ports.Fetcher = (*Fetcher)(nil)

// errAbsent reports that an optional resource does not exist.
var errAbsent = errors.New("absent")

// Fetcher implements ports.Fetcher for file://, bare paths and http(s)://.
type Fetcher struct {
	client   *http.Client
	attempts int
	delay    time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for http(s) URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.delay = delay
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the artifact at rawURL together with the digest published in
// its sidecar file, or "" when there is none.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", zerr.With(zerr.Wrap(domain.ErrIO, "invalid artifact url: "+err.Error()), "url", rawURL)
	}

	var get func(ctx context.Context, loc string) ([]byte, error)
	loc := rawURL
	switch u.Scheme {
	case "http", "https":
		get = f.getHTTP
	case "file":
		get, loc = getFile, u.Path
	case "":
		get, loc = getFile, expandHome(rawURL)
	default:
		if filepath.VolumeName(rawURL) != "" {
			get = getFile
			break
		}
		return nil, "", zerr.With(zerr.Wrap(domain.ErrIO, fmt.Sprintf("unsupported url scheme %q", u.Scheme)), "url", rawURL)
	}

	data, err := get(ctx, loc)
	if errors.Is(err, errAbsent) {
		return nil, "", zerr.With(zerr.Wrap(domain.ErrIO, "artifact does not exist"), "url", rawURL)
	}
	if err != nil {
		return nil, "", classify(ctx, err, rawURL)
	}

	sidecar, err := get(ctx, loc+SidecarSuffix)
	switch {
	case errors.Is(err, errAbsent):
		return data, "", nil
	case err != nil:
		return nil, "", classify(ctx, err, rawURL+SidecarSuffix)
	}

	declared, err := ParseSidecar(sidecar)
	if err != nil {
		return nil, "", zerr.With(err, "url", rawURL+SidecarSuffix)
	}
	return data, declared, nil
}

// ParseSidecar reads a published digest. Both "sha256:<hex>" and the
// sha256sum format "<hex>  <file>" are accepted.
func ParseSidecar(data []byte) (string, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", zerr.Wrap(domain.ErrIntegrity, "empty digest file")
	}
	raw := fields[0]
	if !strings.Contains(raw, ":") {
		raw = string(digest.SHA256) + ":" + strings.ToLower(raw)
	}
	d, err := digest.Parse(raw)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrIntegrity, "malformed digest file: "+err.Error()), "digest", fields[0])
	}
	return d.String(), nil
}

func (f *Fetcher) getHTTP(ctx context.Context, loc string) ([]byte, error) {
	var data []byte
	err := retry(ctx, f.attempts, f.delay, loc, func() error {
		var err error
		data, err = f.doRequest(ctx, loc)
		return err
	})
	return data, err
}

func (f *Fetcher) doRequest(ctx context.Context, loc string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retryable(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, errAbsent
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, retryable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retryable(err)
	}
	return data, nil
}

func getFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a formula
	if errors.Is(err, os.ErrNotExist) {
		return nil, errAbsent
	}
	return data, err
}

// classify maps a transport failure to the domain taxonomy. Context errors
// are returned as is so callers can tell cancellation from deadlines.
func classify(ctx context.Context, err error, loc string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return zerr.With(zerr.Wrap(domain.ErrIO, "failed to fetch artifact: "+err.Error()), "url", loc)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
