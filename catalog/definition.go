// Package catalog holds the static registry of webhook definitions: the
// event names an application can publish, each with its feature-gating
// requirements.
//
// Definitions are registered once at process start and are immutable
// afterwards. Duplicate registration is a configuration error reported at
// startup, never at publish time.
package catalog

// WebhookDefinition is the canonical description of a publishable webhook
// event type.
type WebhookDefinition struct {
	// Name is the dot-separated event type name.
	// Convention: "<resource>.<action>" — e.g. "users.created".
	Name string `json:"name"`

	// Description is a human-readable explanation of when this event fires.
	Description string `json:"description"`

	// RequiredFeatures lists the features a tenant must hold before
	// deliveries for this event are authorized. Empty means no gating.
	// Host-scoped publishes bypass feature checks entirely.
	RequiredFeatures []string `json:"required_features,omitempty"`

	// RequireAllFeatures selects the aggregation rule for RequiredFeatures:
	// true requires every listed feature (ALL), false requires at least
	// one (ANY).
	RequireAllFeatures bool `json:"require_all_features,omitempty"`
}
