// Package jwks fetches and caches the identity provider's published signing keys.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/cache"
	"github.com/boogy/drinks-warden/pkg/metrics"
	"github.com/boogy/drinks-warden/pkg/types"
	"github.com/boogy/drinks-warden/pkg/version"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout            = 5 * time.Second
	DefaultMinRefreshInterval = time.Minute
	maxBodySize               = 1 << 20
)

// Provider resolves signing keys by key id. It is safe for concurrent use.
type Provider struct {
	url                string
	client             *http.Client
	timeout            time.Duration
	cache              cache.Cache
	ttl                time.Duration
	minRefreshInterval time.Duration
	allowInsecure      bool
	metrics            *metrics.Metrics
	logger             *slog.Logger
	now                func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	lastFetch time.Time
}

// Option configures a Provider
type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithFetchTimeout bounds a single key set fetch. It defaults to the HTTP
// client's Timeout, or DefaultTimeout when the client has none.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithCache(c cache.Cache) Option {
	return func(p *Provider) {
		if c != nil {
			p.cache = c
		}
	}
}

// WithTTL sets how long a fetched key set is served from cache.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithMinRefreshInterval bounds how often an unknown kid may trigger a refetch.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d >= 0 {
			p.minRefreshInterval = d
		}
	}
}

// WithAllowInsecure permits plain http key set URLs. Local development only.
func WithAllowInsecure(allow bool) Option {
	return func(p *Provider) { p.allowInsecure = allow }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a key provider for the key set published at rawURL.
func NewProvider(rawURL string, opts ...Option) (*Provider, error) {
	p := &Provider{
		url:                rawURL,
		client:             &http.Client{Timeout: DefaultTimeout},
		ttl:                cache.Defaults.TTL,
		minRefreshInterval: DefaultMinRefreshInterval,
		logger:             slog.Default(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = cache.NewMemoryCache(cache.WithDefaultTTL(p.ttl))
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
		if p.client.Timeout > 0 {
			p.timeout = p.client.Timeout
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid key set URL: %w", err)
	}
	switch {
	case u.Host == "":
		return nil, fmt.Errorf("invalid key set URL %q: missing host", rawURL)
	case u.Scheme == "https":
	case u.Scheme == "http" && p.allowInsecure:
		p.logger.Warn("Fetching signing keys over plain http", "url", rawURL)
	default:
		return nil, fmt.Errorf("key set URL must use https: %q", rawURL)
	}

	return p, nil
}

// URL returns the key set location.
func (p *Provider) URL() string { return p.url }

// GetSigningKey returns the key published under kid. Failures are
// *autherr.Failure values with reason key_not_found or key_set_unavailable.
func (p *Provider) GetSigningKey(ctx context.Context, kid string) (SigningKey, error) {
	if kid == "" {
		return SigningKey{}, autherr.Wrap(autherr.ErrKeyNotFound, errors.New("empty key id"))
	}

	set, fresh, err := p.keySet(ctx, false)
	if err != nil {
		return SigningKey{}, err
	}

	jwk, found := set.Key(kid)
	if !found && !fresh && p.refreshAllowed() {
		p.logger.Info("Unknown key id, refreshing key set", "kid", kid, "url", p.url)
		set, _, err = p.keySet(ctx, true)
		if err != nil {
			return SigningKey{}, err
		}
		jwk, found = set.Key(kid)
	}
	if !found {
		return SigningKey{}, autherr.Wrapf(autherr.ErrKeyNotFound, "no key with id %q in %d published keys", kid, len(set.Keys))
	}

	key, err := ParseSigningKey(jwk)
	if err != nil {
		p.logger.Warn("Published key is not usable", "kid", kid, "error", err)
		return SigningKey{}, autherr.Wrap(autherr.ErrKeyNotFound, err)
	}
	return key, nil
}

type fetchResult struct {
	set   *types.JWKS
	fresh bool
}

// keySet returns the cached key set or fetches it. fresh reports whether the
// returned set was fetched by this call or a call it joined.
func (p *Provider) keySet(ctx context.Context, force bool) (*types.JWKS, bool, error) {
	if !force {
		if set, ok := p.cache.Get(ctx, p.url); ok {
			return set, false, nil
		}
	}

	sfKey := "get"
	if force {
		sfKey = "refresh"
	}

	// A caller giving up must not abort the fetch other callers are waiting on,
	// so the fetch carries its own deadline instead of the caller's.
	ch := p.group.DoChan(sfKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if !force {
			if set, ok := p.cache.Get(fetchCtx, p.url); ok {
				return fetchResult{set: set}, nil
			}
		}
		set, err := p.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		p.cache.Set(fetchCtx, p.url, set, p.ttl)
		return fetchResult{set: set, fresh: true}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, autherr.Wrap(autherr.ErrKeySetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, autherr.Wrap(autherr.ErrKeySetUnavailable, res.Err)
		}
		r := res.Val.(fetchResult)
		return r.set, r.fresh, nil
	}
}

func (p *Provider) refreshAllowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFetch.IsZero() || !p.now().Before(p.lastFetch.Add(p.minRefreshInterval))
}

func (p *Provider) fetch(ctx context.Context) (*types.JWKS, error) {
	start := time.Now()
	p.mu.Lock()
	p.lastFetch = p.now()
	p.mu.Unlock()

	set, err := p.doFetch(ctx)
	if err != nil {
		p.metrics.ObserveJWKSFetch("error", time.Since(start))
		p.logger.Error("Failed to fetch key set", "url", p.url, "error", err)
		return nil, err
	}

	p.metrics.ObserveJWKSFetch("ok", time.Since(start))
	p.logger.Debug("Fetched key set", "url", p.url, "kids", set.KeyIDs())
	return set, nil
}

func (p *Provider) doFetch(ctx context.Context) (*types.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Error("Failed to close JWKS response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code when fetching JWKS: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("JWKS response exceeds %d bytes", maxBodySize)
	}

	var set types.JWKS
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, errors.New("JWKS contains no keys")
	}

	return &set, nil
}
