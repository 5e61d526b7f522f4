package delivery

import (
	"errors"
	"time"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
)

var (
	// ErrNotFound is returned when a delivery ID is unknown.
	ErrNotFound = errors.New("relay/delivery: delivery not found")

	// ErrAttemptNotFound is returned when an attempt ID is unknown.
	ErrAttemptNotFound = errors.New("relay/delivery: attempt not found")
)

// State represents the lifecycle state of a delivery.
type State string

const (
	// StatePending means the delivery is waiting to be picked up.
	StatePending State = "pending"
	// StateSending means a worker is currently posting the delivery.
	StateSending State = "sending"
	// StateSucceeded means the endpoint acknowledged with a 2xx.
	StateSucceeded State = "succeeded"
	// StateRetrying means the last attempt failed and a retry is scheduled.
	StateRetrying State = "retrying"
	// StateFailed means all attempts were exhausted.
	StateFailed State = "failed"
)

// Delivery is the durable record of one envelope accepted by the
// queue-backed submission boundary. It carries the full snapshot needed
// to post the webhook so the worker never reads the subscription again.
type Delivery struct {
	entity.Entity

	ID             id.DeliveryID     `json:"id"`
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	TenantID       string            `json:"tenant_id,omitempty"`
	Definition     string            `json:"definition"`
	Data           string            `json:"data"`
	URL            string            `json:"url"`
	Secret         string            `json:"secret"`
	Headers        map[string]string `json:"headers,omitempty"`

	// RateLimit is the subscription's deliveries-per-second cap at
	// snapshot time. The pool seeds its limiter from it before sending.
	// Zero means unlimited.
	RateLimit float64 `json:"rate_limit,omitempty"`

	State         State      `json:"state"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
	ResponseCode  int        `json:"response_code,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the delivery.
func (d *Delivery) Clone() *Delivery {
	cp := *d
	if d.Headers != nil {
		cp.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			cp.Headers[k] = v
		}
	}
	if d.CompletedAt != nil {
		at := *d.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// Attempt is the audit record of a single outbound post for a delivery.
type Attempt struct {
	ID           id.AttemptID  `json:"id"`
	DeliveryID   id.DeliveryID `json:"delivery_id"`
	ResponseCode int           `json:"response_code"`
	Latency      time.Duration `json:"latency"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
