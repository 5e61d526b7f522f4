package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/relay/backoff"
	"github.com/xraph/relay/codec"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/middleware"
	"github.com/xraph/relay/ratelimit"
	"github.com/xraph/relay/store"
)

// Option configures a Relay.
type Option func(*Relay) error

// WithStore sets the persistence backend. Required.
func WithStore(s store.Store) Option {
	return func(r *Relay) error {
		r.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) error {
		r.logger = l
		return nil
	}
}

// WithChecker sets the feature checker used to gate tenant publishes.
// Defaults to a checker backed by the store's feature grants.
func WithChecker(c feature.Checker) Option {
	return func(r *Relay) error {
		r.checker = c
		return nil
	}
}

// WithCodec sets the payload codec. Defaults to JSON.
func WithCodec(c codec.Codec) Option {
	return func(r *Relay) error {
		r.payloadCodec = c
		return nil
	}
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(r *Relay) error {
		r.strategy = s
		return nil
	}
}

// WithConcurrency sets the maximum number of concurrent deliveries.
func WithConcurrency(n int) Option {
	return func(r *Relay) error {
		r.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often workers poll for due deliveries.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.PollInterval = d
		return nil
	}
}

// WithMaxAttempts bounds how often each delivery is retried.
func WithMaxAttempts(n int) Option {
	return func(r *Relay) error {
		r.config.MaxAttempts = n
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for endpoint sends.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) error {
		r.httpClient = c
		return nil
	}
}

// WithMiddleware appends delivery middleware, run after the built-in
// recover, scope, and logging layers.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Relay) error {
		r.userMW = append(r.userMW, mws...)
		return nil
	}
}

// WithSubscriptionLimit configures per-subscription throughput limits.
func WithSubscriptionLimit(cfgs ...ratelimit.SubscriptionLimit) Option {
	return func(r *Relay) error {
		r.subLimits = append(r.subLimits, cfgs...)
		return nil
	}
}

// WithTenantLimit configures per-tenant throughput limits.
func WithTenantLimit(cfgs ...ratelimit.TenantLimit) Option {
	return func(r *Relay) error {
		r.tenantLimits = append(r.tenantLimits, cfgs...)
		return nil
	}
}
