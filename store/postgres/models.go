package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
	"github.com/xraph/relay/subscription"
)

// Column lists shared between INSERT, UPDATE, and SELECT statements so
// the scan helpers stay in sync with the queries.
const (
	subscriptionColumns = `id, tenant_id, url, secret, definitions, headers, active, rate_limit, created_at, updated_at`
	deliveryColumns     = `id, subscription_id, tenant_id, definition, data, url, secret, headers, rate_limit, state, attempts, max_attempts, next_attempt_at, last_error, response_code, completed_at, created_at, updated_at`
	attemptColumns      = `id, delivery_id, response_code, latency_ns, error, created_at`
)

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		rawID       string
		definitions []byte
		headers     []byte
		createdAt   time.Time
		updatedAt   time.Time
		sub         subscription.Subscription
	)

	err := row.Scan(
		&rawID, &sub.TenantID, &sub.URL, &sub.Secret,
		&definitions, &headers, &sub.Active, &sub.RateLimit,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := id.ParseSubscriptionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription id %q: %w", rawID, err)
	}
	sub.ID = parsed
	sub.Entity = entity.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt}

	if err := json.Unmarshal(definitions, &sub.Definitions); err != nil {
		return nil, fmt.Errorf("decode definitions for %s: %w", rawID, err)
	}
	if len(headers) > 0 && string(headers) != "null" {
		if err := json.Unmarshal(headers, &sub.Headers); err != nil {
			return nil, fmt.Errorf("decode headers for %s: %w", rawID, err)
		}
	}

	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*subscription.Subscription, error) {
	defer rows.Close()

	out := make([]*subscription.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanDelivery(row pgx.Row) (*delivery.Delivery, error) {
	var (
		rawID     string
		rawSubID  string
		headers   []byte
		state     string
		createdAt time.Time
		updatedAt time.Time
		d         delivery.Delivery
	)

	err := row.Scan(
		&rawID, &rawSubID, &d.TenantID, &d.Definition, &d.Data,
		&d.URL, &d.Secret, &headers, &d.RateLimit, &state,
		&d.Attempts, &d.MaxAttempts, &d.NextAttemptAt,
		&d.LastError, &d.ResponseCode, &d.CompletedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := id.ParseDeliveryID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery id %q: %w", rawID, err)
	}
	d.ID = parsed

	parsedSub, err := id.ParseSubscriptionID(rawSubID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription id %q: %w", rawSubID, err)
	}
	d.SubscriptionID = parsedSub

	d.State = delivery.State(state)
	d.Entity = entity.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt}

	if len(headers) > 0 && string(headers) != "null" {
		if err := json.Unmarshal(headers, &d.Headers); err != nil {
			return nil, fmt.Errorf("decode headers for %s: %w", rawID, err)
		}
	}

	return &d, nil
}

func collectDeliveries(rows pgx.Rows) ([]*delivery.Delivery, error) {
	defer rows.Close()

	out := make([]*delivery.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanAttempt(row pgx.Row) (*delivery.Attempt, error) {
	var (
		rawID    string
		rawDlvID string
		latency  int64
		a        delivery.Attempt
	)

	err := row.Scan(&rawID, &rawDlvID, &a.ResponseCode, &latency, &a.Error, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := id.ParseAttemptID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse attempt id %q: %w", rawID, err)
	}
	a.ID = parsed

	parsedDlv, err := id.ParseDeliveryID(rawDlvID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery id %q: %w", rawDlvID, err)
	}
	a.DeliveryID = parsedDlv
	a.Latency = time.Duration(latency)

	return &a, nil
}
