package delivery

import (
	"context"
	"time"

	"github.com/xraph/relay/id"
)

// QueueSubmitter is the production submission boundary: it turns each
// envelope into a durable Delivery row in a Store. The worker pool picks
// deliveries up from the same store, giving the pipeline at-least-once
// semantics downstream of a successful Submit.
type QueueSubmitter struct {
	store       Store
	maxAttempts int
}

// NewQueueSubmitter creates a submitter over the given store.
// maxAttempts bounds how often the worker retries each delivery.
func NewQueueSubmitter(store Store, maxAttempts int) *QueueSubmitter {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &QueueSubmitter{store: store, maxAttempts: maxAttempts}
}

// Submit persists one envelope as a pending delivery due immediately.
func (s *QueueSubmitter) Submit(ctx context.Context, in *SenderInput) error {
	d := &Delivery{
		ID:             id.NewDeliveryID(),
		SubscriptionID: in.SubscriptionID,
		TenantID:       in.TenantID,
		Definition:     in.Definition,
		Data:           in.Data,
		URL:            in.URL,
		Secret:         in.Secret,
		Headers:        in.Headers,
		RateLimit:      in.RateLimit,
		State:          StatePending,
		MaxAttempts:    s.maxAttempts,
		NextAttemptAt:  time.Now().UTC(),
	}
	d.Entity.Init()

	return s.store.EnqueueDelivery(ctx, d)
}
