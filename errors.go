package relay

import (
	"errors"

	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/subscription"
)

var (
	// ErrNoStore is returned by New when no store is configured.
	ErrNoStore = errors.New("relay: no store configured")

	// Subsystem sentinels, re-exported so callers can errors.Is against
	// the root package alone.
	ErrDefinitionNotFound   = catalog.ErrNotFound
	ErrDuplicateDefinition  = catalog.ErrDuplicate
	ErrSubscriptionNotFound = subscription.ErrNotFound
	ErrSubscriptionInvalid  = subscription.ErrInvalid
	ErrDeliveryNotFound     = delivery.ErrNotFound
)
