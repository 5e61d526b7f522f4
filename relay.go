package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/relay/backoff"
	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/codec"
	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/middleware"
	"github.com/xraph/relay/publisher"
	"github.com/xraph/relay/ratelimit"
	"github.com/xraph/relay/store"
	"github.com/xraph/relay/subscription"
	"github.com/xraph/relay/worker"
)

// Relay is the central coordinator for webhook publishing and delivery.
// Create one with New() and functional options, register definitions,
// then Start() the worker pool.
type Relay struct {
	config       Config
	logger       *slog.Logger
	store        store.Store
	checker      feature.Checker
	payloadCodec codec.Codec
	strategy     backoff.Strategy
	httpClient   *http.Client
	userMW       []middleware.Middleware
	subLimits    []ratelimit.SubscriptionLimit
	tenantLimits []ratelimit.TenantLimit

	registry      *catalog.Registry
	subscriptions *subscription.Manager
	limiter       *ratelimit.Manager
	publisher     *publisher.Publisher
	pool          *worker.Pool

	// started tracks whether Start has been called.
	started bool
}

// New creates a new Relay with the given options. A store is required;
// everything else has defaults.
func New(opts ...Option) (*Relay, error) {
	r := &Relay{
		config:       DefaultConfig(),
		logger:       slog.Default(),
		payloadCodec: &codec.JSONCodec{},
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		return nil, ErrNoStore
	}
	if r.checker == nil {
		r.checker = feature.NewStoreChecker(r.store)
	}
	if r.strategy == nil {
		r.strategy = backoff.DefaultStrategy()
	}

	r.registry = catalog.NewRegistry()
	r.subscriptions = subscription.NewManager(r.store)

	r.limiter = ratelimit.NewManager()
	for _, cfg := range r.subLimits {
		r.limiter.SetSubscriptionLimit(cfg)
	}
	for _, cfg := range r.tenantLimits {
		r.limiter.SetTenantLimit(cfg)
	}

	submitter := delivery.NewQueueSubmitter(r.store, r.config.MaxAttempts)
	r.publisher = publisher.New(r.registry, r.checker, r.store, submitter,
		publisher.WithCodec(r.payloadCodec),
		publisher.WithLogger(r.logger),
	)

	client := r.httpClient
	if client == nil {
		client = &http.Client{Timeout: r.config.HTTPTimeout}
	}
	sender := worker.NewSender(worker.WithClient(client))

	mws := append([]middleware.Middleware{
		middleware.Recover(r.logger),
		middleware.Scope(),
		middleware.Logging(r.logger),
	}, r.userMW...)
	executor := worker.NewExecutor(r.store, sender, r.strategy, r.logger, mws...)

	r.pool = worker.NewPool(r.store, executor, r.logger,
		worker.WithPoolConcurrency(r.config.Concurrency),
		worker.WithPollInterval(r.config.PollInterval),
		worker.WithLimiter(r.limiter),
	)
	return r, nil
}

// Logger returns the relay's logger.
func (r *Relay) Logger() *slog.Logger { return r.logger }

// Store returns the relay's store.
func (r *Relay) Store() store.Store { return r.store }

// Config returns a copy of the relay's configuration.
func (r *Relay) Config() Config { return r.config }

// Definitions returns the webhook definition registry.
func (r *Relay) Definitions() *catalog.Registry { return r.registry }

// Subscriptions returns the subscription manager.
func (r *Relay) Subscriptions() *subscription.Manager { return r.subscriptions }

// Limits returns the rate limit manager for runtime reconfiguration.
func (r *Relay) Limits() *ratelimit.Manager { return r.limiter }

// Register adds a webhook definition to the registry.
func (r *Relay) Register(def catalog.WebhookDefinition) error {
	return r.registry.Register(def)
}

// MustRegister adds a webhook definition and panics on error. Intended
// for static registration at startup.
func (r *Relay) MustRegister(def catalog.WebhookDefinition) {
	r.registry.MustRegister(def)
}

// Publish fans an event out to every authorized subscription of the
// target scope. See publisher.Publisher.Publish for semantics.
func (r *Relay) Publish(ctx context.Context, definition string, data any, opts ...publisher.PublishOption) error {
	return r.publisher.Publish(ctx, definition, data, opts...)
}

// PublishAsync publishes on a background goroutine and reports the
// outcome on the returned channel.
func (r *Relay) PublishAsync(ctx context.Context, definition string, data any, opts ...publisher.PublishOption) <-chan error {
	return r.publisher.PublishAsync(ctx, definition, data, opts...)
}

// ToTenant targets a publish at the given tenant's subscriptions.
func ToTenant(tenantID string) publisher.PublishOption {
	return publisher.ToTenant(tenantID)
}

// ToHost targets a publish at host-level subscriptions.
func ToHost() publisher.PublishOption {
	return publisher.ToHost()
}

// Redeliver resets a delivery for a fresh send regardless of its
// current state. The attempt history is preserved.
func (r *Relay) Redeliver(ctx context.Context, dlvID id.DeliveryID) error {
	d, err := r.store.GetDelivery(ctx, dlvID)
	if err != nil {
		return err
	}

	d.State = delivery.StatePending
	d.Attempts = 0
	d.NextAttemptAt = time.Now().UTC()
	d.LastError = ""
	d.ResponseCode = 0
	d.CompletedAt = nil
	d.Touch()

	if err := r.store.UpdateDelivery(ctx, d); err != nil {
		return err
	}
	r.logger.Info("delivery reset for resend", "delivery_id", dlvID)
	return nil
}

// Migrate runs the store's schema migrations.
func (r *Relay) Migrate(ctx context.Context) error {
	return r.store.Migrate(ctx)
}

// Start begins delivery processing.
func (r *Relay) Start(ctx context.Context) error {
	if err := r.pool.Start(ctx); err != nil {
		return err
	}
	r.started = true
	r.logger.Info("relay started", "concurrency", r.config.Concurrency)
	return nil
}

// Stop gracefully shuts down the relay and closes the store.
func (r *Relay) Stop(ctx context.Context) error {
	if r.started {
		stopCtx := ctx
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			stopCtx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
			defer cancel()
		}
		if err := r.pool.Stop(stopCtx); err != nil {
			r.logger.Error("pool stop error", "error", err)
		}
		r.started = false
	}
	return r.store.Close()
}
