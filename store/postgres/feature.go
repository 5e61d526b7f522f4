package postgres

import (
	"context"
	"fmt"
)

// SetGrant records whether a tenant holds a feature.
func (s *Store) SetGrant(ctx context.Context, tenantID, feature string, granted bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_feature_grants (tenant_id, feature, granted, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, feature) DO UPDATE SET
			granted = EXCLUDED.granted,
			updated_at = NOW()`,
		tenantID, feature, granted,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: set grant: %w", err)
	}
	return nil
}

// IsGranted reports whether a tenant holds a feature. Unknown pairs are
// not granted.
func (s *Store) IsGranted(ctx context.Context, tenantID, feature string) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, `
		SELECT granted FROM relay_feature_grants
		WHERE tenant_id = $1 AND feature = $2`,
		tenantID, feature,
	).Scan(&granted)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("relay/postgres: check grant: %w", err)
	}
	return granted, nil
}
