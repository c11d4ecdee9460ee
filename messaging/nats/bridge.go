package nats

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/messaging"
)

// JSONPublisher is satisfied by Client and by test doubles.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, subject string, data interface{}) error
}

// Bridge drains feed subscriptions and republishes each value on a subject.
type Bridge struct {
	pub    JSONPublisher
	prefix string
	logger zerolog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	closers []func()
}

// NewBridge creates a bridge publishing under the given subject prefix.
func NewBridge(pub JSONPublisher, prefix string) *Bridge {
	return &Bridge{pub: pub, prefix: prefix, logger: bridgeLogger()}
}

// Forward subscribes to feed and publishes every value on subject until ctx
// is done, the feed closes, or Stop is called.
func Forward[T any](ctx context.Context, b *Bridge, feed *messaging.Feed[T], subject string) {
	sub := feed.Subscribe(messaging.DefaultBuffer)
	full := messaging.Subject(b.prefix, subject)

	b.mu.Lock()
	b.closers = append(b.closers, sub.Unsubscribe)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case v, ok := <-sub.C():
				if !ok {
					return
				}
				if err := b.pub.PublishJSON(ctx, full, v); err != nil {
					b.logger.Warn().Err(err).Str("subject", full).Msg("Failed to forward event")
				}
			}
		}
	}()
}

// Stop unsubscribes every forwarded feed and waits for the forwarders to exit.
func (b *Bridge) Stop() {
	b.mu.Lock()
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	for _, c := range closers {
		c()
	}
	b.wg.Wait()
}
