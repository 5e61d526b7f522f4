// Package publisher implements publish-time authorization and fan-out:
// given a definition name and a payload, it decides which subscriptions
// are entitled to the event and hands one envelope per authorized
// subscription to the delivery submission boundary.
package publisher

import (
	"context"
	"log/slog"

	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/codec"
	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// Publisher orchestrates definition lookup, subscription matching,
// feature authorization, envelope construction, and submission.
//
// It performs no retries and suppresses no errors: registry, store,
// checker, and submitter failures surface to the caller unchanged.
// Retry is the delivery worker's concern, never the publisher's.
type Publisher struct {
	registry  *catalog.Registry
	checker   feature.Checker
	store     subscription.Store
	submitter delivery.Submitter
	codec     codec.Codec
	logger    *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithCodec sets the payload codec. Defaults to JSON with default settings.
func WithCodec(c codec.Codec) Option {
	return func(p *Publisher) { p.codec = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a Publisher.
func New(
	registry *catalog.Registry,
	checker feature.Checker,
	store subscription.Store,
	submitter delivery.Submitter,
	opts ...Option,
) *Publisher {
	p := &Publisher{
		registry:  registry,
		checker:   checker,
		store:     store,
		submitter: submitter,
		codec:     &codec.JSONCodec{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishOption selects the tenancy target of a single publish call.
type PublishOption func(*publishTarget)

type publishTarget struct {
	sc       scope.Scope
	explicit bool
}

// ToTenant publishes on behalf of the given tenant, overriding the
// ambient session scope.
func ToTenant(tenantID string) PublishOption {
	return func(t *publishTarget) {
		t.sc = scope.Tenant(tenantID)
		t.explicit = true
	}
}

// ToHost publishes on behalf of the host, overriding the ambient session
// scope even when a tenant session is active.
func ToHost() PublishOption {
	return func(t *publishTarget) {
		t.sc = scope.Host()
		t.explicit = true
	}
}

// Publish runs the full authorization and fan-out algorithm and returns
// once every authorized envelope has been handed to the submission
// boundary.
//
// The effective scope is the explicit ToTenant/ToHost option when given,
// otherwise the ambient session scope captured from ctx once at entry,
// otherwise the host. A successful return guarantees only that authorized
// envelopes were submitted, not that any endpoint received them.
func (p *Publisher) Publish(ctx context.Context, definition string, data any, opts ...PublishOption) error {
	// Capture the scope exactly once; concurrent session mutation must
	// not change authorization mid-fan-out.
	sc := p.resolveScope(ctx, opts)

	def, err := p.registry.Get(definition)
	if err != nil {
		return err
	}

	subs, err := p.store.Resolve(ctx, sc, definition)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	// Resolve matches on exact scope, so one authorization decision
	// covers every candidate of this call.
	authorized, err := feature.Authorize(ctx, p.checker, sc, def)
	if err != nil {
		return err
	}
	if !authorized {
		p.logger.Debug("webhook suppressed by feature check",
			slog.String("definition", definition),
			slog.String("scope", sc.String()),
		)
		return nil
	}

	// The payload is subscription-independent: serialize once, reuse for
	// every envelope of this call.
	encoded, err := p.codec.Encode(data)
	if err != nil {
		return err
	}
	payload := string(encoded)

	for _, sub := range subs {
		// Once cancellation is observed no new envelopes are submitted;
		// already-submitted ones stay with the delivery subsystem.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		in := delivery.NewSenderInput(sub, definition, payload)
		if submitErr := p.submitter.Submit(ctx, in); submitErr != nil {
			return submitErr
		}
	}

	p.logger.Debug("webhook published",
		slog.String("definition", definition),
		slog.String("scope", sc.String()),
		slog.Int("submitted", len(subs)),
	)

	return nil
}

// PublishAsync runs Publish on its own goroutine and reports the outcome
// on the returned channel. It is a thin wrapper over the same algorithm:
// authorization outcomes are identical to a blocking Publish with the
// same inputs.
func (p *Publisher) PublishAsync(ctx context.Context, definition string, data any, opts ...PublishOption) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- p.Publish(ctx, definition, data, opts...)
	}()
	return errc
}

func (p *Publisher) resolveScope(ctx context.Context, opts []PublishOption) scope.Scope {
	var t publishTarget
	for _, opt := range opts {
		opt(&t)
	}
	if t.explicit {
		return t.sc
	}
	if ambient, ok := scope.From(ctx); ok {
		return ambient
	}
	return scope.Host()
}
