package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
)

// EnqueueDelivery persists a new delivery in pending state.
func (s *Store) EnqueueDelivery(ctx context.Context, d *delivery.Delivery) error {
	headers, err := marshalJSON(d.Headers)
	if err != nil {
		return fmt.Errorf("relay/postgres: encode headers: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO relay_deliveries (
			id, subscription_id, tenant_id, definition, data, url, secret, headers,
			rate_limit, state, attempts, max_attempts, next_attempt_at,
			last_error, response_code, completed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)`,
		d.ID.String(), d.SubscriptionID.String(), d.TenantID, d.Definition,
		d.Data, d.URL, d.Secret, headers,
		d.RateLimit, string(d.State), d.Attempts, d.MaxAttempts, d.NextAttemptAt,
		d.LastError, d.ResponseCode, d.CompletedAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: enqueue delivery: %w", err)
	}
	return nil
}

// DequeueDueDeliveries atomically claims up to limit due deliveries,
// sets them to sending, and returns them. Uses SELECT FOR UPDATE
// SKIP LOCKED for concurrent-safe dequeue across worker processes.
func (s *Store) DequeueDueDeliveries(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		WITH claimed AS (
			UPDATE relay_deliveries
			SET state = 'sending', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM relay_deliveries
				WHERE state IN ('pending', 'retrying')
				  AND next_attempt_at <= NOW()
				ORDER BY next_attempt_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT $1
			)
			RETURNING `+deliveryColumns+`
		)
		SELECT * FROM claimed ORDER BY next_attempt_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("relay/postgres: dequeue deliveries: %w", err)
	}
	return collectDeliveries(rows)
}

// GetDelivery retrieves a delivery by ID.
func (s *Store) GetDelivery(ctx context.Context, dlvID id.DeliveryID) (*delivery.Delivery, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM relay_deliveries
		WHERE id = $1`,
		dlvID.String(),
	)

	d, err := scanDelivery(row)
	if err != nil {
		if isNoRows(err) {
			return nil, delivery.ErrNotFound
		}
		return nil, fmt.Errorf("relay/postgres: get delivery: %w", err)
	}
	return d, nil
}

// UpdateDelivery persists changes to an existing delivery.
func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	headers, err := marshalJSON(d.Headers)
	if err != nil {
		return fmt.Errorf("relay/postgres: encode headers: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE relay_deliveries SET
			subscription_id = $2, tenant_id = $3, definition = $4, data = $5,
			url = $6, secret = $7, headers = $8, rate_limit = $9, state = $10,
			attempts = $11, max_attempts = $12, next_attempt_at = $13,
			last_error = $14, response_code = $15, completed_at = $16,
			updated_at = NOW()
		WHERE id = $1`,
		d.ID.String(), d.SubscriptionID.String(), d.TenantID, d.Definition,
		d.Data, d.URL, d.Secret, headers, d.RateLimit, string(d.State),
		d.Attempts, d.MaxAttempts, d.NextAttemptAt,
		d.LastError, d.ResponseCode, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return delivery.ErrNotFound
	}
	return nil
}

// ListDeliveriesByState returns deliveries matching the given state.
func (s *Store) ListDeliveriesByState(ctx context.Context, state delivery.State, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM relay_deliveries
		WHERE state = $1`
	args := []any{string(state)}

	if !opts.SubscriptionID.IsNil() {
		args = append(args, opts.SubscriptionID.String())
		query += fmt.Sprintf(" AND subscription_id = $%d", len(args))
	}

	query += " ORDER BY created_at ASC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relay/postgres: list deliveries: %w", err)
	}
	return collectDeliveries(rows)
}

// RequeueStaleDeliveries returns stuck sending deliveries to pending.
// A delivery claimed longer than threshold ago belongs to a worker that
// died before persisting an outcome.
func (s *Store) RequeueStaleDeliveries(ctx context.Context, threshold time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE relay_deliveries
		SET state = 'pending', next_attempt_at = NOW(), updated_at = NOW()
		WHERE state = 'sending'
		  AND updated_at < NOW() - make_interval(secs => $1)`,
		threshold.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("relay/postgres: requeue stale deliveries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// RecordAttempt appends an attempt audit record.
func (s *Store) RecordAttempt(ctx context.Context, a *delivery.Attempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_attempts (
			id, delivery_id, response_code, latency_ns, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID.String(), a.DeliveryID.String(), a.ResponseCode,
		a.Latency.Nanoseconds(), a.Error, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempt history for a delivery, oldest first.
func (s *Store) ListAttempts(ctx context.Context, dlvID id.DeliveryID) ([]*delivery.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM relay_attempts
		WHERE delivery_id = $1
		ORDER BY created_at ASC`,
		dlvID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("relay/postgres: list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]*delivery.Attempt, 0)
	for rows.Next() {
		a, scanErr := scanAttempt(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
