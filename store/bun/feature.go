package bunstore

import (
	"context"
	"fmt"
	"time"
)

// SetGrant records whether a tenant holds a feature.
func (s *Store) SetGrant(ctx context.Context, tenantID, feature string, granted bool) error {
	m := &featureGrantModel{
		TenantID:  tenantID,
		Feature:   feature,
		Granted:   granted,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (tenant_id, feature) DO UPDATE").
		Set("granted = EXCLUDED.granted").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("relay/bun: set grant: %w", err)
	}
	return nil
}

// IsGranted reports whether a tenant holds a feature. Unknown pairs are
// not granted.
func (s *Store) IsGranted(ctx context.Context, tenantID, feature string) (bool, error) {
	m := new(featureGrantModel)
	err := s.db.NewSelect().Model(m).
		Where("tenant_id = ?", tenantID).
		Where("feature = ?", feature).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("relay/bun: check grant: %w", err)
	}
	return m.Granted, nil
}
