package jwtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Provider defaults.
const (
	DefaultCacheTTL           = time.Hour
	DefaultFetchTimeout       = 5 * time.Second
	DefaultMinRefreshInterval = 10 * time.Second
	DefaultFetchAttempts      = 3

	maxJWKSBytes = 1 << 20
)

// Refresh outcomes passed to ProviderOptions.OnRefresh.
const (
	RefreshOK        = "ok"
	RefreshFailed    = "error"
	RefreshThrottled = "throttled"
)

var errRefreshThrottled = errors.New("jwtx: refresh throttled")

// KeySource resolves a key identifier to a verification key.
type KeySource interface {
	Key(ctx context.Context, kid string) (SigningKey, error)
}

// ProviderOptions configures a KeyProvider. Only JWKSURI is required.
type ProviderOptions struct {
	// JWKSURI is the identity provider's key set endpoint.
	JWKSURI string

	// TTL is how long a fetched key set is trusted before it is refetched.
	TTL time.Duration

	// FetchTimeout bounds one refresh, retries included.
	FetchTimeout time.Duration

	// MinRefreshInterval limits how often an unknown kid may force a
	// refresh of an otherwise fresh key set.
	MinRefreshInterval time.Duration

	// FetchAttempts is the total number of HTTP attempts per refresh.
	FetchAttempts uint

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Now overrides the clock, tests only.
	Now func() time.Time

	// OnRefresh is called once per refresh attempt with its outcome.
	OnRefresh func(outcome string, took time.Duration)
}

// KeyProvider fetches the identity provider's JWKS and caches the keys for
// TTL. Concurrent misses share a single fetch.
type KeyProvider struct {
	opts    ProviderOptions
	keys    *KeySet
	group   singleflight.Group
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewKeyProvider validates opts, fills defaults and returns a provider with
// an empty cache. Nothing is fetched until the first lookup or Refresh.
func NewKeyProvider(opts ProviderOptions) (*KeyProvider, error) {
	if opts.JWKSURI == "" {
		return nil, errors.New("jwtx: JWKS URI is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.MinRefreshInterval <= 0 {
		opts.MinRefreshInterval = DefaultMinRefreshInterval
	}
	if opts.FetchAttempts == 0 {
		opts.FetchAttempts = DefaultFetchAttempts
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &KeyProvider{
		opts:    opts,
		keys:    NewKeySet(),
		limiter: rate.NewLimiter(rate.Every(opts.MinRefreshInterval), 1),
		log:     opts.Logger.With("component", "jwks", "jwks_uri", opts.JWKSURI),
	}, nil
}

// Key returns the signing key for kid.
//
// A fresh cache hit never touches the network. An expired or empty cache is
// refetched. An unknown kid in a fresh cache forces one rate-limited
// refresh, after which a still unknown kid is ErrKeyNotFound. Fetch failures
// surface as ErrProviderUnavailable and are not cached.
func (p *KeyProvider) Key(ctx context.Context, kid string) (SigningKey, error) {
	if p.keys.Fresh(p.opts.Now(), p.opts.TTL) {
		if sk, ok := p.keys.Get(kid); ok {
			return sk, nil
		}
	}

	if err := p.refresh(ctx, kid); err != nil && !errors.Is(err, errRefreshThrottled) {
		return SigningKey{}, err
	}

	if sk, ok := p.keys.Get(kid); ok {
		return sk, nil
	}
	return SigningKey{}, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// Refresh fetches the key set now, joining any refresh already in flight.
// Unlike Key it ignores the rate limit.
func (p *KeyProvider) Refresh(ctx context.Context) error {
	ch := p.group.DoChan("jwks", func() (any, error) {
		return nil, p.fetch(ctx)
	})
	return p.await(ctx, ch)
}

// Ready reports whether at least one usable key is cached.
func (p *KeyProvider) Ready() bool {
	return p.keys.IsReady()
}

// FetchedAt is when the cached key set was last replaced.
func (p *KeyProvider) FetchedAt() time.Time {
	return p.keys.FetchedAt()
}

// Keys returns the cached keys, ordered by kid.
func (p *KeyProvider) Keys() []SigningKey {
	return p.keys.Snapshot()
}

// TTL returns the configured cache lifetime.
func (p *KeyProvider) TTL() time.Duration {
	return p.opts.TTL
}

func (p *KeyProvider) refresh(ctx context.Context, kid string) error {
	ch := p.group.DoChan("jwks", func() (any, error) {
		if p.keys.Fresh(p.opts.Now(), p.opts.TTL) {
			// Another flight may have landed since the caller looked.
			if _, ok := p.keys.Get(kid); ok {
				return nil, nil
			}
			// Fresh set, unknown kid: a forced refresh.
			if !p.limiter.Allow() {
				p.report(RefreshThrottled, 0)
				return nil, errRefreshThrottled
			}
		}
		return nil, p.fetch(ctx)
	})
	return p.await(ctx, ch)
}

// await lets a caller give up on a shared flight without cancelling it for
// the other waiters.
func (p *KeyProvider) await(ctx context.Context, ch <-chan singleflight.Result) error {
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
	}
}

// fetch runs detached from the caller's cancellation so one impatient
// waiter cannot fail the refresh for everyone sharing it.
func (p *KeyProvider) fetch(ctx context.Context) error {
	start := p.opts.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FetchTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second

	set, err := backoff.Retry(ctx, func() (JWKS, error) {
		return p.get(ctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(p.opts.FetchAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.log.WarnContext(ctx, "JWKS fetch failed, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		p.report(RefreshFailed, p.opts.Now().Sub(start))
		p.log.ErrorContext(ctx, "JWKS fetch failed", "error", err)
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	fetchedAt := p.opts.Now()
	keys, skipped := ParseJWKS(set, fetchedAt)
	if len(keys) == 0 {
		p.report(RefreshFailed, fetchedAt.Sub(start))
		p.log.ErrorContext(ctx, "JWKS contained no usable signing keys", "skipped", len(skipped))
		return fmt.Errorf("%w: no usable signing keys", ErrProviderUnavailable)
	}

	if len(skipped) > 0 {
		p.log.DebugContext(ctx, "skipped JWKS entries", "kids", skipped)
	}

	p.keys.Replace(keys, fetchedAt)
	p.report(RefreshOK, fetchedAt.Sub(start))
	p.log.InfoContext(ctx, "JWKS refreshed", "keys", len(keys), "skipped", len(skipped))
	return nil
}

func (p *KeyProvider) get(ctx context.Context) (JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.JWKSURI, nil)
	if err != nil {
		return JWKS{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.opts.HTTPClient.Do(req)
	if err != nil {
		return JWKS{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJWKSBytes))
		err := fmt.Errorf("jwtx: JWKS endpoint returned %d", resp.StatusCode)
		// Client errors won't fix themselves on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return JWKS{}, backoff.Permanent(err)
		}
		return JWKS{}, err
	}

	var set JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return JWKS{}, backoff.Permanent(fmt.Errorf("jwtx: decode JWKS: %w", err))
	}
	return set, nil
}

func (p *KeyProvider) report(outcome string, took time.Duration) {
	if p.opts.OnRefresh != nil {
		p.opts.OnRefresh(outcome, took)
	}
}
