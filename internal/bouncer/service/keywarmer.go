package service

import (
	"context"
	"log/slog"
	"time"
)

// KeyRefresher is the part of jwtx.KeyProvider the warmer drives.
type KeyRefresher interface {
	Refresh(ctx context.Context) error
	TTL() time.Duration
}

// KeyWarmer refreshes the JWKS cache at half its TTL so request paths
// rarely pay for a fetch. Failures are logged; the provider still fetches
// on demand.
type KeyWarmer struct {
	Keys     KeyRefresher
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewKeyWarmer creates a warmer refreshing every TTL/2.
func NewKeyWarmer(keys KeyRefresher, logger *slog.Logger) *KeyWarmer {
	interval := keys.TTL() / 2
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &KeyWarmer{
		Keys:     keys,
		Logger:   logger.With("component", "key_warmer"),
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start loads the keys once immediately, then keeps them warm.
func (k *KeyWarmer) Start() {
	go k.run()
	k.Logger.Info("key warmer started", "interval", k.Interval)
}

// Stop shuts the warmer down, waiting for an in-progress refresh.
func (k *KeyWarmer) Stop() {
	close(k.stopCh)
	<-k.doneCh
	k.Logger.Info("key warmer stopped")
}

func (k *KeyWarmer) run() {
	defer close(k.doneCh)

	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	k.refresh()

	for {
		select {
		case <-ticker.C:
			k.refresh()
		case <-k.stopCh:
			return
		}
	}
}

func (k *KeyWarmer) refresh() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Abandon the wait on Stop; the provider bounds the fetch itself.
	go func() {
		select {
		case <-k.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := k.Keys.Refresh(ctx); err != nil {
		k.Logger.Warn("background key refresh failed", "error", err)
		return
	}
	k.Logger.Debug("signing keys refreshed")
}
