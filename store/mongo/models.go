package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
	"github.com/xraph/relay/subscription"
)

// ── Subscription model ────────────────────────────────────────────

type subscriptionModel struct {
	ID          string            `bson:"_id"`
	TenantID    string            `bson:"tenant_id"`
	URL         string            `bson:"url"`
	Secret      string            `bson:"secret"`
	Definitions []string          `bson:"definitions"`
	Headers     map[string]string `bson:"headers,omitempty"`
	Active      bool              `bson:"active"`
	RateLimit   float64           `bson:"rate_limit"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:          sub.ID.String(),
		TenantID:    sub.TenantID,
		URL:         sub.URL,
		Secret:      sub.Secret,
		Definitions: sub.Definitions,
		Headers:     sub.Headers,
		Active:      sub.Active,
		RateLimit:   sub.RateLimit,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	parsedID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: parse subscription id %q: %w", m.ID, err)
	}

	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		TenantID:    m.TenantID,
		URL:         m.URL,
		Secret:      m.Secret,
		Definitions: m.Definitions,
		Headers:     m.Headers,
		Active:      m.Active,
		RateLimit:   m.RateLimit,
	}, nil
}

// ── Delivery model ────────────────────────────────────────────────

type deliveryModel struct {
	ID             string            `bson:"_id"`
	SubscriptionID string            `bson:"subscription_id"`
	TenantID       string            `bson:"tenant_id"`
	Definition     string            `bson:"definition"`
	Data           string            `bson:"data"`
	URL            string            `bson:"url"`
	Secret         string            `bson:"secret"`
	Headers        map[string]string `bson:"headers,omitempty"`
	RateLimit      float64           `bson:"rate_limit,omitempty"`
	State          string            `bson:"state"`
	Attempts       int               `bson:"attempts"`
	MaxAttempts    int               `bson:"max_attempts"`
	NextAttemptAt  time.Time         `bson:"next_attempt_at"`
	LastError      string            `bson:"last_error"`
	ResponseCode   int               `bson:"response_code"`
	CompletedAt    *time.Time        `bson:"completed_at,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		TenantID:       d.TenantID,
		Definition:     d.Definition,
		Data:           d.Data,
		URL:            d.URL,
		Secret:         d.Secret,
		Headers:        d.Headers,
		RateLimit:      d.RateLimit,
		State:          string(d.State),
		Attempts:       d.Attempts,
		MaxAttempts:    d.MaxAttempts,
		NextAttemptAt:  d.NextAttemptAt,
		LastError:      d.LastError,
		ResponseCode:   d.ResponseCode,
		CompletedAt:    d.CompletedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	parsedID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: parse delivery id %q: %w", m.ID, err)
	}
	parsedSubID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: parse subscription id %q: %w", m.SubscriptionID, err)
	}

	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             parsedID,
		SubscriptionID: parsedSubID,
		TenantID:       m.TenantID,
		Definition:     m.Definition,
		Data:           m.Data,
		URL:            m.URL,
		Secret:         m.Secret,
		Headers:        m.Headers,
		RateLimit:      m.RateLimit,
		State:          delivery.State(m.State),
		Attempts:       m.Attempts,
		MaxAttempts:    m.MaxAttempts,
		NextAttemptAt:  m.NextAttemptAt,
		LastError:      m.LastError,
		ResponseCode:   m.ResponseCode,
		CompletedAt:    m.CompletedAt,
	}, nil
}

// ── Attempt model ─────────────────────────────────────────────────

type attemptModel struct {
	ID           string    `bson:"_id"`
	DeliveryID   string    `bson:"delivery_id"`
	ResponseCode int       `bson:"response_code"`
	LatencyNS    int64     `bson:"latency_ns"`
	Error        string    `bson:"error"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toAttemptModel(a *delivery.Attempt) *attemptModel {
	return &attemptModel{
		ID:           a.ID.String(),
		DeliveryID:   a.DeliveryID.String(),
		ResponseCode: a.ResponseCode,
		LatencyNS:    a.Latency.Nanoseconds(),
		Error:        a.Error,
		CreatedAt:    a.CreatedAt,
	}
}

func fromAttemptModel(m *attemptModel) (*delivery.Attempt, error) {
	parsedID, err := id.ParseAttemptID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: parse attempt id %q: %w", m.ID, err)
	}
	parsedDlvID, err := id.ParseDeliveryID(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: parse delivery id %q: %w", m.DeliveryID, err)
	}

	return &delivery.Attempt{
		ID:           parsedID,
		DeliveryID:   parsedDlvID,
		ResponseCode: m.ResponseCode,
		Latency:      time.Duration(m.LatencyNS),
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// ── Feature grant model ───────────────────────────────────────────

type featureGrantModel struct {
	TenantID string `bson:"tenant_id"`
	Feature  string `bson:"feature"`
	Granted  bool   `bson:"granted"`
}
