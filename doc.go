// Package relay provides a multi-tenant webhook publication and delivery
// engine for Go. It offers definition-based event publishing, feature-gated
// authorization, durable delivery queues, and signed HTTP fan-out with
// retries.
//
// Relay is designed as a library, not a service. Import it, configure a
// store, register webhook definitions, and publish events as ordinary Go
// values.
//
// # Quick Start
//
//	r, err := relay.New(
//	    relay.WithStore(pgStore),
//	    relay.WithConcurrency(20),
//	)
//	r.MustRegister(catalog.WebhookDefinition{Name: "users.created"})
//	err = r.Publish(ctx, "users.created", payload, relay.ToTenant("t1"))
//
// # Architecture
//
// Relay follows a composable store pattern where each subsystem
// (subscription, delivery, feature) defines its own store interface.
// A single backend implements all of them.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package relay
