package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/relay/backoff"
	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/middleware"
)

// Executor runs a single delivery through middleware and the Sender,
// records the attempt, then handles retry scheduling and state updates.
type Executor struct {
	store   delivery.Store
	sender  *Sender
	backoff backoff.Strategy
	mw      middleware.Middleware
	logger  *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	store delivery.Store,
	sender *Sender,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		store:   store,
		sender:  sender,
		backoff: bo,
		mw:      middleware.Chain(mws...),
		logger:  logger,
	}
}

// Execute posts a delivery through the middleware chain and Sender.
// On success: marks succeeded and records the attempt.
// On failure with attempts remaining: marks retrying with backoff.
// On failure with attempts exhausted: marks failed.
// Every outcome appends an attempt record for the audit trail.
func (e *Executor) Execute(ctx context.Context, d *delivery.Delivery) error {
	start := time.Now()

	var code int
	terminal := func(ctx context.Context) error {
		var sendErr error
		code, sendErr = e.sender.Send(ctx, d)
		return sendErr
	}

	err := e.mw(ctx, d, terminal)
	elapsed := time.Since(start)

	now := time.Now().UTC()
	d.Attempts++
	d.ResponseCode = code
	d.UpdatedAt = now

	// Persist the outcome even when the send context was cancelled
	// mid-flight, otherwise the delivery strands in sending state.
	persistCtx := context.WithoutCancel(ctx)

	e.recordAttempt(persistCtx, d, code, elapsed, err)

	if err != nil {
		return e.handleFailure(persistCtx, d, err, now)
	}

	return e.handleSuccess(persistCtx, d, now)
}

// recordAttempt appends the audit record. A failure here never changes
// the delivery outcome; it is logged and dropped.
func (e *Executor) recordAttempt(ctx context.Context, d *delivery.Delivery, code int, elapsed time.Duration, sendErr error) {
	att := &delivery.Attempt{
		ID:           id.NewAttemptID(),
		DeliveryID:   d.ID,
		ResponseCode: code,
		Latency:      elapsed,
		CreatedAt:    time.Now().UTC(),
	}
	if sendErr != nil {
		att.Error = sendErr.Error()
	}

	if recErr := e.store.RecordAttempt(ctx, att); recErr != nil {
		e.logger.Error("failed to record delivery attempt",
			slog.String("delivery_id", d.ID.String()),
			slog.String("error", recErr.Error()),
		)
	}
}

func (e *Executor) handleSuccess(ctx context.Context, d *delivery.Delivery, now time.Time) error {
	d.State = delivery.StateSucceeded
	d.LastError = ""
	d.CompletedAt = &now

	if updateErr := e.store.UpdateDelivery(ctx, d); updateErr != nil {
		e.logger.Error("failed to update delivery after success",
			slog.String("delivery_id", d.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	return nil
}

// handleFailure either schedules a retry or marks the delivery failed.
func (e *Executor) handleFailure(ctx context.Context, d *delivery.Delivery, sendErr error, now time.Time) error {
	d.LastError = sendErr.Error()

	if d.Attempts < d.MaxAttempts {
		return e.scheduleRetry(ctx, d, sendErr, now)
	}

	return e.markFailed(ctx, d, sendErr, now)
}

// scheduleRetry sets the delivery to StateRetrying with a backoff delay.
func (e *Executor) scheduleRetry(ctx context.Context, d *delivery.Delivery, sendErr error, now time.Time) error {
	delay := e.backoff.Delay(d.Attempts)
	d.State = delivery.StateRetrying
	d.NextAttemptAt = now.Add(delay)

	if updateErr := e.store.UpdateDelivery(ctx, d); updateErr != nil {
		e.logger.Error("failed to update delivery for retry",
			slog.String("delivery_id", d.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.logger.Info("delivery scheduled for retry",
		slog.String("delivery_id", d.ID.String()),
		slog.String("definition", d.Definition),
		slog.Int("attempt", d.Attempts),
		slog.Int("max_attempts", d.MaxAttempts),
		slog.Duration("delay", delay),
	)

	return fmt.Errorf("delivery %s attempt %d/%d: %w", d.ID, d.Attempts, d.MaxAttempts, sendErr)
}

// markFailed marks the delivery failed after exhausting all attempts.
func (e *Executor) markFailed(ctx context.Context, d *delivery.Delivery, sendErr error, now time.Time) error {
	d.State = delivery.StateFailed
	d.CompletedAt = &now

	if updateErr := e.store.UpdateDelivery(ctx, d); updateErr != nil {
		e.logger.Error("failed to update delivery as failed",
			slog.String("delivery_id", d.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.logger.Warn("delivery failed after exhausting attempts",
		slog.String("delivery_id", d.ID.String()),
		slog.String("definition", d.Definition),
		slog.String("url", d.URL),
		slog.Int("attempts", d.Attempts),
		slog.String("error", sendErr.Error()),
	)

	return sendErr
}
