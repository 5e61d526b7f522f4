package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// SetGrant records whether a tenant holds a feature. Grants live in a
// per-tenant Hash keyed by feature name.
func (s *Store) SetGrant(ctx context.Context, tenantID, feat string, granted bool) error {
	err := s.client.HSet(ctx, featuresKey(tenantID), feat, strconv.FormatBool(granted)).Err()
	if err != nil {
		return fmt.Errorf("relay/redis: set grant: %w", err)
	}
	return nil
}

// IsGranted reports whether a tenant holds a feature. Unknown tenants
// and features are not granted.
func (s *Store) IsGranted(ctx context.Context, tenantID, feat string) (bool, error) {
	val, err := s.client.HGet(ctx, featuresKey(tenantID), feat).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("relay/redis: is granted: %w", err)
	}
	granted, _ := strconv.ParseBool(val) //nolint:errcheck // best-effort parse from trusted Redis data
	return granted, nil
}
