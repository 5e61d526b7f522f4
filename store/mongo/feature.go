package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SetGrant records whether a tenant holds a feature.
func (s *Store) SetGrant(ctx context.Context, tenantID, feat string, granted bool) error {
	col := s.db.Collection(colFeatureGrants)

	filter := bson.M{"tenant_id": tenantID, "feature": feat}
	update := bson.M{"$set": bson.M{
		"tenant_id": tenantID,
		"feature":   feat,
		"granted":   granted,
	}}

	_, err := col.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("relay/mongo: set grant: %w", err)
	}
	return nil
}

// IsGranted reports whether a tenant holds a feature. Unknown tenants
// and features are not granted.
func (s *Store) IsGranted(ctx context.Context, tenantID, feat string) (bool, error) {
	col := s.db.Collection(colFeatureGrants)

	var m featureGrantModel
	err := col.FindOne(ctx, bson.M{"tenant_id": tenantID, "feature": feat}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("relay/mongo: is granted: %w", err)
	}
	return m.Granted, nil
}
