// Package worker provides the delivery engine — a Sender that posts
// webhook payloads to endpoints, an Executor that runs sends through
// middleware and handles retry scheduling, and a Pool that manages
// concurrent worker goroutines polling for due deliveries.
package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xraph/relay/delivery"
)

// Signature and metadata headers attached to every outbound request.
const (
	HeaderSignature = "X-Relay-Signature"
	HeaderEvent     = "X-Relay-Event"
	HeaderDelivery  = "X-Relay-Delivery"
)

const defaultUserAgent = "relay/1.0"

// Sender posts one delivery's payload to its endpoint over HTTP.
// A response in the 2xx range counts as acknowledged; anything else is
// an error so the Executor schedules a retry.
type Sender struct {
	client    *http.Client
	userAgent string
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithClient sets the HTTP client used for outbound posts. The default
// client has a 30s timeout.
func WithClient(client *http.Client) SenderOption {
	return func(s *Sender) { s.client = client }
}

// WithUserAgent overrides the User-Agent header on outbound posts.
func WithUserAgent(ua string) SenderOption {
	return func(s *Sender) { s.userAgent = ua }
}

// NewSender creates a Sender.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts the delivery payload and returns the endpoint's status code.
// The returned code is zero when the request never reached the endpoint.
// The payload is signed with the subscription secret; receivers verify
// the HeaderSignature value with the same HMAC.
func (s *Sender) Send(ctx context.Context, d *delivery.Delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, strings.NewReader(d.Data))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set(HeaderSignature, delivery.Sign(d.Secret, []byte(d.Data)))
	req.Header.Set(HeaderEvent, d.Definition)
	req.Header.Set(HeaderDelivery, d.ID.String())
	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
