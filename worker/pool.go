package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/relay/delivery"
)

// Limiter throttles deliveries per subscription and tenant. The pool
// calls Acquire before executing a dequeued delivery and Release after
// the send completes.
type Limiter interface {
	// Acquire reports whether the delivery may proceed.
	Acquire(subscriptionID, tenantID string) bool
	// Release decrements the in-flight count for the pair.
	Release(subscriptionID, tenantID string)
}

// SubscriptionLimitSeeder is implemented by limiters that can pick up a
// per-subscription rate carried on the delivery itself. The pool seeds
// the limiter from each dequeued delivery before asking for admission,
// so configured subscription caps apply without out-of-band setup.
type SubscriptionLimitSeeder interface {
	EnsureSubscriptionLimit(subscriptionID string, perSecond float64)
}

// Pool manages a set of concurrent worker goroutines that poll for due
// deliveries and post them through the Executor.
type Pool struct {
	store          delivery.Store
	executor       *Executor
	concurrency    int
	pollInterval   time.Duration
	reapInterval   time.Duration
	staleThreshold time.Duration
	limiter        Limiter
	logger         *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	active   map[string]context.CancelFunc
	activeMu sync.Mutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets how often idle workers poll for due deliveries.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithLimiter sets the rate limiter consulted before each send.
func WithLimiter(l Limiter) PoolOption {
	return func(p *Pool) { p.limiter = l }
}

// WithReapInterval sets how often the pool scans for deliveries stuck
// in sending state.
func WithReapInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.reapInterval = d }
}

// WithStaleThreshold sets how long a delivery may sit in sending state
// before the reaper returns it to pending.
func WithStaleThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.staleThreshold = d }
}

// NewPool creates a worker pool.
func NewPool(
	store delivery.Store,
	executor *Executor,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		store:          store,
		executor:       executor,
		concurrency:    10,
		pollInterval:   time.Second,
		reapInterval:   30 * time.Second,
		staleThreshold: 5 * time.Minute,
		logger:         logger,
		active:         make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	// Stop closes the previous channel, so a restarted pool needs a
	// fresh one or its workers would exit immediately.
	p.stopCh = make(chan struct{})

	p.logger.Info("delivery pool starting",
		slog.Int("concurrency", p.concurrency),
		slog.Duration("poll_interval", p.pollInterval),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.dequeueLoop(p.stopCh)
	}

	p.wg.Add(1)
	go p.reapLoop(p.stopCh)

	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// If the context has a deadline, in-flight sends are cancelled when
// time runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh := p.stopCh
	p.mu.Unlock()

	p.logger.Info("delivery pool stopping")

	close(stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("delivery pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("delivery pool shutdown timed out, cancelling in-flight sends")
		p.cancelActive()
		p.wg.Wait()
	}

	return nil
}

// dequeueLoop is run by each worker goroutine.
func (p *Pool) dequeueLoop(stopCh <-chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		due, err := p.store.DequeueDueDeliveries(context.Background(), 1)
		if err != nil {
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			p.sleep(stopCh)
			continue
		}

		if len(due) == 0 {
			p.sleep(stopCh)
			continue
		}

		d := due[0]

		// The subscription's rate cap travels on the delivery snapshot.
		if p.limiter != nil && d.RateLimit > 0 {
			if seeder, ok := p.limiter.(SubscriptionLimitSeeder); ok {
				seeder.EnsureSubscriptionLimit(d.SubscriptionID.String(), d.RateLimit)
			}
		}

		// Check subscription/tenant rate limit and concurrency.
		if p.limiter != nil && !p.limiter.Acquire(d.SubscriptionID.String(), d.TenantID) {
			// Throttled — return the delivery to pending with a small delay.
			d.State = delivery.StatePending
			d.NextAttemptAt = time.Now().UTC().Add(p.pollInterval)
			if updateErr := p.store.UpdateDelivery(context.Background(), d); updateErr != nil {
				p.logger.Error("failed to re-enqueue throttled delivery",
					slog.String("delivery_id", d.ID.String()),
					slog.String("error", updateErr.Error()),
				)
			}
			p.sleep(stopCh)
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		p.track(d.ID.String(), cancel)

		if execErr := p.executor.Execute(ctx, d); execErr != nil {
			p.logger.Debug("delivery attempt failed",
				slog.String("delivery_id", d.ID.String()),
				slog.String("definition", d.Definition),
				slog.String("error", execErr.Error()),
			)
		}

		p.untrack(d.ID.String())
		cancel()

		if p.limiter != nil {
			p.limiter.Release(d.SubscriptionID.String(), d.TenantID)
		}
	}
}

// reapLoop periodically returns deliveries stuck in sending state to
// pending. A delivery strands there when a worker dies between claiming
// it and persisting an outcome; without the reaper it would never be
// dequeued again.
func (p *Pool) reapLoop(stopCh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		n, err := p.store.RequeueStaleDeliveries(context.Background(), p.staleThreshold)
		if err != nil {
			p.logger.Error("stale delivery reap error", slog.String("error", err.Error()))
			continue
		}
		if n > 0 {
			p.logger.Info("requeued stale deliveries", slog.Int("count", n))
		}
	}
}

func (p *Pool) sleep(stopCh <-chan struct{}) {
	select {
	case <-time.After(p.pollInterval):
	case <-stopCh:
	}
}

func (p *Pool) track(deliveryID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.active[deliveryID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrack(deliveryID string) {
	p.activeMu.Lock()
	delete(p.active, deliveryID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActive() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for deliveryID, cancel := range p.active {
		p.logger.Warn("cancelling in-flight delivery", slog.String("delivery_id", deliveryID))
		cancel()
	}
}
