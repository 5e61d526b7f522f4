package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
	"github.com/xraph/relay/subscription"
)

// ── Subscription model ────────────────────────────────────────────

type subscriptionModel struct {
	bun.BaseModel `bun:"table:relay_subscriptions"`

	ID          string            `bun:"id,pk"`
	TenantID    string            `bun:"tenant_id,notnull,default:''"`
	URL         string            `bun:"url,notnull"`
	Secret      string            `bun:"secret,notnull"`
	Definitions []string          `bun:"definitions,type:jsonb"`
	Headers     map[string]string `bun:"headers,type:jsonb"`
	Active      bool              `bun:"active,notnull,default:true"`
	RateLimit   float64           `bun:"rate_limit,notnull,default:0"`
	CreatedAt   time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
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
		return nil, fmt.Errorf("relay/bun: parse subscription id %q: %w", m.ID, err)
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
	bun.BaseModel `bun:"table:relay_deliveries"`

	ID             string            `bun:"id,pk"`
	SubscriptionID string            `bun:"subscription_id,notnull"`
	TenantID       string            `bun:"tenant_id,notnull,default:''"`
	Definition     string            `bun:"definition,notnull"`
	Data           string            `bun:"data,notnull"`
	URL            string            `bun:"url,notnull"`
	Secret         string            `bun:"secret,notnull"`
	Headers        map[string]string `bun:"headers,type:jsonb"`
	RateLimit      float64           `bun:"rate_limit,notnull,default:0"`
	State          string            `bun:"state,notnull"`
	Attempts       int               `bun:"attempts,notnull,default:0"`
	MaxAttempts    int               `bun:"max_attempts,notnull"`
	NextAttemptAt  time.Time         `bun:"next_attempt_at,notnull"`
	LastError      string            `bun:"last_error,notnull,default:''"`
	ResponseCode   int               `bun:"response_code,notnull,default:0"`
	CompletedAt    *time.Time        `bun:"completed_at"`
	CreatedAt      time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
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
		return nil, fmt.Errorf("relay/bun: parse delivery id %q: %w", m.ID, err)
	}
	parsedSub, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: parse subscription id %q: %w", m.SubscriptionID, err)
	}

	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             parsedID,
		SubscriptionID: parsedSub,
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
	bun.BaseModel `bun:"table:relay_attempts"`

	ID           string    `bun:"id,pk"`
	DeliveryID   string    `bun:"delivery_id,notnull"`
	ResponseCode int       `bun:"response_code,notnull,default:0"`
	LatencyNs    int64     `bun:"latency_ns,notnull,default:0"`
	Error        string    `bun:"error,notnull,default:''"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toAttemptModel(a *delivery.Attempt) *attemptModel {
	return &attemptModel{
		ID:           a.ID.String(),
		DeliveryID:   a.DeliveryID.String(),
		ResponseCode: a.ResponseCode,
		LatencyNs:    a.Latency.Nanoseconds(),
		Error:        a.Error,
		CreatedAt:    a.CreatedAt,
	}
}

func fromAttemptModel(m *attemptModel) (*delivery.Attempt, error) {
	parsedID, err := id.ParseAttemptID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: parse attempt id %q: %w", m.ID, err)
	}
	parsedDlv, err := id.ParseDeliveryID(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: parse delivery id %q: %w", m.DeliveryID, err)
	}

	return &delivery.Attempt{
		ID:           parsedID,
		DeliveryID:   parsedDlv,
		ResponseCode: m.ResponseCode,
		Latency:      time.Duration(m.LatencyNs),
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// ── Feature grant model ───────────────────────────────────────────

type featureGrantModel struct {
	bun.BaseModel `bun:"table:relay_feature_grants"`

	TenantID  string    `bun:"tenant_id,pk"`
	Feature   string    `bun:"feature,pk"`
	Granted   bool      `bun:"granted,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
