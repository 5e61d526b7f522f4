package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
)

// EnqueueDelivery stores the delivery as a Hash and adds it to the due
// queue Sorted Set.
func (s *Store) EnqueueDelivery(ctx context.Context, d *delivery.Delivery) error {
	dID := d.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, dlvKey(dID), deliveryToMap(d))
	pipe.SAdd(ctx, dlvIDsKey, dID)
	pipe.ZAdd(ctx, dueQueueKey, goredis.Z{Score: dueScore(d.NextAttemptAt), Member: dID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("relay/redis: enqueue delivery: %w", err)
	}
	return nil
}

// DequeueDueDeliveries claims up to limit due deliveries. A delivery is
// owned by whichever worker wins the ZRem, so concurrent workers never
// claim the same delivery twice.
func (s *Store) DequeueDueDeliveries(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	now := time.Now().UTC()

	ids, err := s.client.ZRangeByScore(ctx, dueQueueKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(dueScore(now), 'f', -1, 64),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: dequeue zrangebyscore: %w", err)
	}

	var claimed []*delivery.Delivery
	for _, dID := range ids {
		removed, remErr := s.client.ZRem(ctx, dueQueueKey, dID).Result()
		if remErr != nil {
			return nil, fmt.Errorf("relay/redis: dequeue zrem: %w", remErr)
		}
		if removed == 0 {
			continue // claimed by another worker
		}

		key := dlvKey(dID)
		_, setErr := s.client.HSet(ctx, key,
			"state", string(delivery.StateSending),
			"updated_at", nowString(),
		).Result()
		if setErr != nil {
			return nil, fmt.Errorf("relay/redis: dequeue update: %w", setErr)
		}

		d, getErr := s.getDeliveryByKey(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		claimed = append(claimed, d)
	}
	return claimed, nil
}

// GetDelivery retrieves a delivery by ID.
func (s *Store) GetDelivery(ctx context.Context, dlvID id.DeliveryID) (*delivery.Delivery, error) {
	return s.getDeliveryByKey(ctx, dlvKey(dlvID.String()))
}

// UpdateDelivery persists changes to an existing delivery and keeps the
// due queue in sync: pending and retrying deliveries are (re)scored,
// everything else is removed from the queue.
func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	dID := d.ID.String()
	key := dlvKey(dID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("relay/redis: update delivery exists: %w", err)
	}
	if exists == 0 {
		return delivery.ErrNotFound
	}

	fields := deliveryToMap(d)
	fields["updated_at"] = nowString()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	switch d.State {
	case delivery.StatePending, delivery.StateRetrying:
		pipe.ZAdd(ctx, dueQueueKey, goredis.Z{Score: dueScore(d.NextAttemptAt), Member: dID})
	default:
		pipe.ZRem(ctx, dueQueueKey, dID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("relay/redis: update delivery: %w", err)
	}
	return nil
}

// ListDeliveriesByState returns deliveries matching the given state.
func (s *Store) ListDeliveriesByState(ctx context.Context, state delivery.State, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	ids, err := s.client.SMembers(ctx, dlvIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: list deliveries smembers: %w", err)
	}

	deliveries := make([]*delivery.Delivery, 0, len(ids))
	for _, dID := range ids {
		d, getErr := s.getDeliveryByKey(ctx, dlvKey(dID))
		if getErr != nil {
			continue // skip missing
		}
		if d.State != state {
			continue
		}
		if !opts.SubscriptionID.IsNil() && d.SubscriptionID != opts.SubscriptionID {
			continue
		}
		deliveries = append(deliveries, d)
	}

	sort.Slice(deliveries, func(i, j int) bool {
		return deliveries[i].CreatedAt.Before(deliveries[j].CreatedAt)
	})

	// Apply offset/limit.
	if opts.Offset >= len(deliveries) {
		return nil, nil
	}
	if opts.Offset > 0 {
		deliveries = deliveries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(deliveries) {
		deliveries = deliveries[:opts.Limit]
	}
	return deliveries, nil
}

// RequeueStaleDeliveries returns stuck sending deliveries to pending and
// puts them back on the due queue. A delivery claimed longer than
// threshold ago belongs to a worker that died before persisting an
// outcome.
func (s *Store) RequeueStaleDeliveries(ctx context.Context, threshold time.Duration) (int, error) {
	ids, err := s.client.SMembers(ctx, dlvIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("relay/redis: requeue stale smembers: %w", err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(-threshold)

	requeued := 0
	for _, dID := range ids {
		d, getErr := s.getDeliveryByKey(ctx, dlvKey(dID))
		if getErr != nil {
			continue // skip missing
		}
		if d.State != delivery.StateSending || !d.UpdatedAt.Before(cutoff) {
			continue
		}

		pipe := s.client.TxPipeline()
		pipe.HSet(ctx, dlvKey(dID),
			"state", string(delivery.StatePending),
			"next_attempt_at", timeString(now),
			"updated_at", timeString(now),
		)
		pipe.ZAdd(ctx, dueQueueKey, goredis.Z{Score: dueScore(now), Member: dID})
		if _, pipeErr := pipe.Exec(ctx); pipeErr != nil {
			return requeued, fmt.Errorf("relay/redis: requeue stale delivery: %w", pipeErr)
		}
		requeued++
	}
	return requeued, nil
}

// RecordAttempt appends the attempt to the delivery's history List.
func (s *Store) RecordAttempt(ctx context.Context, a *delivery.Attempt) error {
	if err := s.client.RPush(ctx, attemptsKey(a.DeliveryID.String()), marshalJSON(a)).Err(); err != nil {
		return fmt.Errorf("relay/redis: record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempt history for a delivery, oldest first.
func (s *Store) ListAttempts(ctx context.Context, dlvID id.DeliveryID) ([]*delivery.Attempt, error) {
	entries, err := s.client.LRange(ctx, attemptsKey(dlvID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: list attempts: %w", err)
	}

	attempts := make([]*delivery.Attempt, 0, len(entries))
	for _, raw := range entries {
		a := new(delivery.Attempt)
		if umErr := unmarshalInto(raw, a); umErr != nil {
			continue // skip corrupt entries
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// ── helpers ──

// dueScore computes a sorted-set score from the next attempt time.
// Lower score = due sooner.
func dueScore(t time.Time) float64 { return float64(t.UTC().UnixMilli()) }

func deliveryToMap(d *delivery.Delivery) map[string]interface{} {
	m := map[string]interface{}{
		"id":              d.ID.String(),
		"subscription_id": d.SubscriptionID.String(),
		"tenant_id":       d.TenantID,
		"definition":      d.Definition,
		"data":            d.Data,
		"url":             d.URL,
		"secret":          d.Secret,
		"headers":         marshalJSON(d.Headers),
		"rate_limit":      strconv.FormatFloat(d.RateLimit, 'f', -1, 64),
		"state":           string(d.State),
		"attempts":        strconv.Itoa(d.Attempts),
		"max_attempts":    strconv.Itoa(d.MaxAttempts),
		"next_attempt_at": timeString(d.NextAttemptAt),
		"last_error":      d.LastError,
		"response_code":   strconv.Itoa(d.ResponseCode),
		"created_at":      timeString(d.CreatedAt),
		"updated_at":      timeString(d.UpdatedAt),
	}
	if d.CompletedAt != nil {
		m["completed_at"] = timeString(*d.CompletedAt)
	}
	return m
}

func (s *Store) getDeliveryByKey(ctx context.Context, key string) (*delivery.Delivery, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: get delivery: %w", err)
	}
	if len(vals) == 0 {
		return nil, delivery.ErrNotFound
	}
	return mapToDelivery(vals)
}

func mapToDelivery(m map[string]string) (*delivery.Delivery, error) {
	dlvID, err := id.ParseDeliveryID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("relay/redis: parse delivery id: %w", err)
	}
	subID, err := id.ParseSubscriptionID(m["subscription_id"])
	if err != nil {
		return nil, fmt.Errorf("relay/redis: parse subscription id: %w", err)
	}

	attempts, _ := strconv.Atoi(m["attempts"])              //nolint:errcheck // best-effort parse from trusted Redis data
	maxAttempts, _ := strconv.Atoi(m["max_attempts"])       //nolint:errcheck // best-effort parse from trusted Redis data
	responseCode, _ := strconv.Atoi(m["response_code"])     //nolint:errcheck // best-effort parse from trusted Redis data
	rateLimit, _ := strconv.ParseFloat(m["rate_limit"], 64) //nolint:errcheck // best-effort parse from trusted Redis data

	d := &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:             dlvID,
		SubscriptionID: subID,
		TenantID:       m["tenant_id"],
		Definition:     m["definition"],
		Data:           m["data"],
		URL:            m["url"],
		Secret:         m["secret"],
		Headers:        unmarshalMap(m["headers"]),
		RateLimit:      rateLimit,
		State:          delivery.State(m["state"]),
		Attempts:       attempts,
		MaxAttempts:    maxAttempts,
		NextAttemptAt:  parseTime(m["next_attempt_at"]),
		LastError:      m["last_error"],
		ResponseCode:   responseCode,
	}
	if v := m["completed_at"]; v != "" {
		t := parseTime(v)
		d.CompletedAt = &t
	}
	return d, nil
}
