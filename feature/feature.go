// Package feature answers entitlement questions: does a tenant hold a
// named feature, and is a tenant authorized for a webhook definition given
// its required-feature set and aggregation rule (ANY vs ALL).
//
// Feature gating applies to tenant scopes only. The host bypasses checks
// entirely — host-level webhooks have no tenant to gate on.
package feature

import (
	"context"

	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/scope"
)

// Checker reports whether a tenant holds a feature. Implementations may
// hit a database or a remote entitlement service; errors surface to the
// caller unmodified.
type Checker interface {
	IsGranted(ctx context.Context, tenantID, feature string) (bool, error)
}

// Authorize evaluates a definition's feature requirements against a scope.
//
// Rules:
//   - Host scope is always authorized.
//   - An empty required set is always authorized (no gating).
//   - RequireAllFeatures true: every required feature must be granted.
//   - RequireAllFeatures false: at least one required feature must be granted.
//
// The first checker error aborts evaluation and is returned as-is.
func Authorize(ctx context.Context, checker Checker, sc scope.Scope, def *catalog.WebhookDefinition) (bool, error) {
	if sc.IsHost() {
		return true, nil
	}
	if len(def.RequiredFeatures) == 0 {
		return true, nil
	}

	for _, name := range def.RequiredFeatures {
		granted, err := checker.IsGranted(ctx, sc.TenantID(), name)
		if err != nil {
			return false, err
		}

		if def.RequireAllFeatures {
			if !granted {
				return false, nil
			}
		} else if granted {
			return true, nil
		}
	}

	// ALL: every feature was granted. ANY: none were.
	return def.RequireAllFeatures, nil
}
