package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
)

// EnqueueDelivery persists a new delivery in pending state.
func (s *Store) EnqueueDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("relay/bun: enqueue delivery: %w", err)
	}
	return nil
}

// DequeueDueDeliveries atomically claims up to limit due deliveries,
// sets them to sending, and returns them. Uses SELECT FOR UPDATE
// SKIP LOCKED for concurrent-safe dequeue via raw SQL.
func (s *Store) DequeueDueDeliveries(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	_, err := s.db.NewRaw(`
		WITH claimed AS (
			UPDATE relay_deliveries
			SET state = 'sending', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM relay_deliveries
				WHERE state IN ('pending', 'retrying')
				  AND next_attempt_at <= NOW()
				ORDER BY next_attempt_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT ?0
			)
			RETURNING *
		)
		SELECT * FROM claimed ORDER BY next_attempt_at ASC`,
		limit,
	).Exec(ctx, &models)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: dequeue deliveries: %w", err)
	}

	return convertDeliveries(models)
}

// GetDelivery retrieves a delivery by ID.
func (s *Store) GetDelivery(ctx context.Context, dlvID id.DeliveryID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", dlvID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, delivery.ErrNotFound
		}
		return nil, fmt.Errorf("relay/bun: get delivery: %w", err)
	}
	return fromDeliveryModel(m)
}

// UpdateDelivery persists changes to an existing delivery.
func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	res, err := s.db.NewUpdate().Model(m).
		WherePK().
		ExcludeColumn("created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("relay/bun: update delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("relay/bun: update delivery: %w", err)
	}
	if affected == 0 {
		return delivery.ErrNotFound
	}
	return nil
}

// ListDeliveriesByState returns deliveries matching the given state.
func (s *Store) ListDeliveriesByState(ctx context.Context, state delivery.State, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := s.db.NewSelect().Model(&models).
		Where("state = ?", string(state)).
		OrderExpr("created_at ASC")

	if !opts.SubscriptionID.IsNil() {
		q = q.Where("subscription_id = ?", opts.SubscriptionID.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("relay/bun: list deliveries: %w", err)
	}

	return convertDeliveries(models)
}

// RequeueStaleDeliveries returns stuck sending deliveries to pending.
// A delivery claimed longer than threshold ago belongs to a worker that
// died before persisting an outcome.
func (s *Store) RequeueStaleDeliveries(ctx context.Context, threshold time.Duration) (int, error) {
	res, err := s.db.NewUpdate().Model((*deliveryModel)(nil)).
		Set("state = ?", string(delivery.StatePending)).
		Set("next_attempt_at = NOW()").
		Set("updated_at = NOW()").
		Where("state = ?", string(delivery.StateSending)).
		Where("updated_at < NOW() - make_interval(secs => ?)", threshold.Seconds()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay/bun: requeue stale deliveries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("relay/bun: requeue stale deliveries: %w", err)
	}
	return int(affected), nil
}

// RecordAttempt appends an attempt audit record.
func (s *Store) RecordAttempt(ctx context.Context, a *delivery.Attempt) error {
	m := toAttemptModel(a)
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("relay/bun: record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempt history for a delivery, oldest first.
func (s *Store) ListAttempts(ctx context.Context, dlvID id.DeliveryID) ([]*delivery.Attempt, error) {
	var models []attemptModel
	err := s.db.NewSelect().Model(&models).
		Where("delivery_id = ?", dlvID.String()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: list attempts: %w", err)
	}

	out := make([]*delivery.Attempt, 0, len(models))
	for i := range models {
		a, convErr := fromAttemptModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, a)
	}
	return out, nil
}

func convertDeliveries(models []deliveryModel) ([]*delivery.Delivery, error) {
	out := make([]*delivery.Delivery, 0, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
