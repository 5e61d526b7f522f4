// Package delivery defines the per-delivery envelope handed to the
// delivery subsystem, the durable Delivery entity the queue-backed
// boundary persists, and the submission contract between the publisher
// and the delivery pipeline.
package delivery

import (
	"context"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/subscription"
)

// SenderInput is the envelope for one (publish call, subscription) pair.
// It is a snapshot: the secret and headers are copied from the
// subscription at construction time, so later subscription edits never
// retroactively alter in-flight deliveries. Ownership transfers to the
// delivery subsystem on successful Submit.
type SenderInput struct {
	// SubscriptionID references the matched subscription.
	SubscriptionID id.SubscriptionID `json:"subscription_id"`

	// Definition is the webhook definition name being delivered.
	Definition string `json:"definition"`

	// Data is the canonical serialized payload, identical for every
	// envelope of one publish call.
	Data string `json:"data"`

	// URL is the subscription's endpoint at snapshot time.
	URL string `json:"url"`

	// Secret is the subscription's signing secret at snapshot time.
	Secret string `json:"secret"`

	// Headers are the subscription's custom headers at snapshot time.
	Headers map[string]string `json:"headers,omitempty"`

	// TenantID is the tenant the publish call was scoped to; empty for
	// host-scoped publishes.
	TenantID string `json:"tenant_id,omitempty"`

	// RateLimit is the subscription's deliveries-per-second cap at
	// snapshot time. Zero means unlimited.
	RateLimit float64 `json:"rate_limit,omitempty"`
}

// NewSenderInput builds the envelope for one subscription, snapshotting
// the mutable subscription state (secret, headers, URL).
func NewSenderInput(sub *subscription.Subscription, definition, data string) *SenderInput {
	in := &SenderInput{
		SubscriptionID: sub.ID,
		Definition:     definition,
		Data:           data,
		URL:            sub.URL,
		Secret:         sub.Secret,
		TenantID:       sub.TenantID,
		RateLimit:      sub.RateLimit,
	}
	if len(sub.Headers) > 0 {
		in.Headers = make(map[string]string, len(sub.Headers))
		for k, v := range sub.Headers {
			in.Headers[k] = v
		}
	}
	return in
}

// Submitter is the boundary between the publisher and the delivery
// pipeline. Submit hands one envelope to the pipeline for asynchronous,
// at-least-once delivery; the publisher's contract ends at a successful
// return. Submit is never called twice for the same subscription within
// one publish call.
type Submitter interface {
	Submit(ctx context.Context, in *SenderInput) error
}
