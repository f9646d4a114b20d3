// Package loader resolves and fetches external resources referenced by a
// view: data files, images and specs.
//
// Supported references are bare file paths, file:// URLs, http(s):// URLs
// and data: URIs. Relative references resolve against a base URL. Fetched
// bytes are kept in an LRU cache keyed by the resolved reference.
package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/vizview/internal/logging"
)

// Sentinel errors.
var (
	ErrEmptyURI          = errors.New("loader: empty uri")
	ErrUnsupportedScheme = errors.New("loader: unsupported scheme")
	ErrBadDataURI        = errors.New("loader: malformed data uri")
)

// DefaultCacheSize is the number of resources kept when no size is given.
const DefaultCacheSize = 64

// Loader fetches resources.
type Loader interface {
	// Sanitize resolves uri against the loader's base and returns the
	// reference that Load will fetch.
	Sanitize(uri string) (string, error)

	// Load fetches the resource.
	Load(ctx context.Context, uri string) ([]byte, error)
}

// LoadError reports a failed fetch.
type LoadError struct {
	URI string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URI, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Option configures a Default loader.
type Option func(*Default)

// WithBaseURL sets the base that relative references resolve against.
// Either a URL or a directory path.
func WithBaseURL(base string) Option {
	return func(d *Default) {
		d.base = base
	}
}

// WithCacheSize sets the LRU capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(d *Default) {
		d.cacheSize = n
	}
}

// WithHTTPClient sets the client used for http(s) references.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Default) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Default) {
		if l != nil {
			d.logger = l
		}
	}
}

// Default is the standard Loader.
type Default struct {
	base      string
	cacheSize int
	client    *http.Client
	cache     *lru.Cache[string, []byte]
	logger    *logging.Logger
}

// New creates a loader.
func New(opts ...Option) (*Default, error) {
	d := &Default{
		cacheSize: DefaultCacheSize,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logging.NullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.cacheSize > 0 {
		c, err := lru.New[string, []byte](d.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("loader cache: %w", err)
		}
		d.cache = c
	}
	return d, nil
}

// Base returns the base URL.
func (d *Default) Base() string {
	return d.base
}

// Sanitize resolves uri. data: URIs are returned unchanged.
func (d *Default) Sanitize(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", ErrEmptyURI
	}
	if strings.HasPrefix(uri, "data:") {
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		switch u.Scheme {
		case "http", "https", "file":
			return uri, nil
		default:
			return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
		}
	}

	if d.base == "" || filepath.IsAbs(uri) {
		return uri, nil
	}

	if bu, err := url.Parse(d.base); err == nil && (bu.Scheme == "http" || bu.Scheme == "https") {
		ref, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		if !strings.HasSuffix(bu.Path, "/") {
			bu.Path += "/"
		}
		return bu.ResolveReference(ref).String(), nil
	}

	base := strings.TrimPrefix(d.base, "file://")
	return filepath.Join(base, uri), nil
}

// Load fetches uri, consulting the cache first.
func (d *Default) Load(ctx context.Context, uri string) ([]byte, error) {
	ref, err := d.Sanitize(uri)
	if err != nil {
		return nil, &LoadError{URI: uri, Err: err}
	}

	if d.cache != nil {
		if data, ok := d.cache.Get(ref); ok {
			d.logger.Debug("cache hit %s", ref)
			return data, nil
		}
	}

	data, err := d.fetch(ctx, ref)
	if err != nil {
		return nil, &LoadError{URI: ref, Err: err}
	}

	if d.cache != nil {
		d.cache.Add(ref, data)
	}
	return data, nil
}

// Purge empties the cache.
func (d *Default) Purge() {
	if d.cache != nil {
		d.cache.Purge()
	}
}

// Cached returns the number of cached resources.
func (d *Default) Cached() int {
	if d.cache == nil {
		return 0
	}
	return d.cache.Len()
}

func (d *Default) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return d.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	default:
		return os.ReadFile(ref)
	}
}

func (d *Default) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrBadDataURI
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return []byte(s), nil
}

// DataURI encodes data as a base64 data: URI.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
