package delivery

import (
	"context"
	"time"

	"github.com/xraph/relay/id"
)

// ListOpts configures filtering and pagination for delivery listing.
type ListOpts struct {
	Offset         int
	Limit          int
	SubscriptionID id.SubscriptionID
}

// Store defines the persistence contract for the delivery queue.
type Store interface {
	// EnqueueDelivery persists a new delivery in pending state.
	EnqueueDelivery(ctx context.Context, d *Delivery) error

	// DequeueDueDeliveries atomically claims up to limit deliveries whose
	// NextAttemptAt has passed, sets them to sending, and returns them.
	DequeueDueDeliveries(ctx context.Context, limit int) ([]*Delivery, error)

	// GetDelivery returns a delivery by ID.
	// Returns ErrNotFound if the ID is unknown.
	GetDelivery(ctx context.Context, dlvID id.DeliveryID) (*Delivery, error)

	// UpdateDelivery persists changes to an existing delivery.
	// Returns ErrNotFound if the ID is unknown.
	UpdateDelivery(ctx context.Context, d *Delivery) error

	// ListDeliveriesByState returns deliveries matching the given state.
	ListDeliveriesByState(ctx context.Context, state State, opts ListOpts) ([]*Delivery, error)

	// RequeueStaleDeliveries returns deliveries stuck in sending state to
	// pending. A delivery is stale when it was claimed longer ago than
	// threshold without reaching a terminal or retrying state; this happens
	// when a worker dies mid-send. Returns the number of requeued rows.
	RequeueStaleDeliveries(ctx context.Context, threshold time.Duration) (int, error)

	// RecordAttempt appends an attempt audit record for a delivery.
	RecordAttempt(ctx context.Context, a *Attempt) error

	// ListAttempts returns the attempt history for a delivery, oldest first.
	ListAttempts(ctx context.Context, dlvID id.DeliveryID) ([]*Attempt, error)
}
