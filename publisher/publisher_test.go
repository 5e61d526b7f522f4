package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

const (
	defUserCreated  = "users.created"
	defUserDeleted  = "users.deleted"
	defThemeChanged = "theme.defaultThemeChanged"

	featWebhooks = "app.webhooks"
	featTheme    = "app.theme"
)

// fakeStore is an in-memory subscription.Store for publisher tests.
type fakeStore struct {
	subs       map[string]*subscription.Subscription
	resolveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[string]*subscription.Subscription)}
}

func (s *fakeStore) add(sub *subscription.Subscription) *subscription.Subscription {
	if sub.ID.IsNil() {
		sub.ID = id.NewSubscriptionID()
	}
	if sub.Secret == "" {
		sub.Secret = id.NewSecret()
	}
	sub.Active = true
	s.subs[sub.ID.String()] = sub
	return sub
}

func (s *fakeStore) AddOrUpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.subs[sub.ID.String()] = sub.Clone()
	return nil
}

func (s *fakeStore) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, ok := s.subs[subID.String()]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *fakeStore) DeleteSubscription(_ context.Context, subID id.SubscriptionID) error {
	if _, ok := s.subs[subID.String()]; !ok {
		return subscription.ErrNotFound
	}
	delete(s.subs, subID.String())
	return nil
}

func (s *fakeStore) ListSubscriptions(_ context.Context, sc scope.Scope, _ subscription.ListOpts) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.Scope() == sc {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) Resolve(_ context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	var out []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.Active && sub.Scope() == sc && sub.Subscribed(definition) {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) SetActive(_ context.Context, subID id.SubscriptionID, active bool) error {
	sub, ok := s.subs[subID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	sub.Active = active
	return nil
}

var _ subscription.Store = (*fakeStore)(nil)

// captureSubmitter records submitted envelopes; err (when set) is
// returned after failAfter successful submissions.
type captureSubmitter struct {
	inputs    []*delivery.SenderInput
	err       error
	failAfter int
}

func (c *captureSubmitter) Submit(_ context.Context, in *delivery.SenderInput) error {
	if c.err != nil && len(c.inputs) >= c.failAfter {
		return c.err
	}
	c.inputs = append(c.inputs, in)
	return nil
}

func newRegistry(t *testing.T) *catalog.Registry {
	t.Helper()

	r := catalog.NewRegistry()
	r.MustRegister(catalog.WebhookDefinition{Name: defUserCreated})
	r.MustRegister(catalog.WebhookDefinition{
		Name:             defUserDeleted,
		RequiredFeatures: []string{featWebhooks},
	})
	r.MustRegister(catalog.WebhookDefinition{
		Name:               defThemeChanged,
		RequiredFeatures:   []string{featWebhooks, featTheme},
		RequireAllFeatures: true,
	})
	return r
}

func newPublisher(t *testing.T, store *fakeStore, checker feature.Checker, sink delivery.Submitter) *Publisher {
	t.Helper()
	if checker == nil {
		checker = feature.NewStatic()
	}
	return New(newRegistry(t), checker, store, sink)
}

func TestPublishNoSubscriptionsIsNoOp(t *testing.T) {
	store := newFakeStore()
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	if err := p.Publish(context.Background(), defUserCreated, map[string]string{"name": "ada"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.inputs) != 0 {
		t.Fatalf("expected no submissions, got %d", len(sink.inputs))
	}
}

func TestPublishUnknownDefinition(t *testing.T) {
	store := newFakeStore()
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	err := p.Publish(context.Background(), "bogus.definition", nil)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestPublishHostSubscription(t *testing.T) {
	store := newFakeStore()
	sub := store.add(&subscription.Subscription{
		URL:         "https://host.example.com/hook",
		Definitions: []string{defUserCreated},
		Headers:     map[string]string{"Key": "Value"},
	})
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	data := map[string]string{"name": "ada"}
	if err := p.Publish(context.Background(), defUserCreated, data, ToHost()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(sink.inputs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sink.inputs))
	}
	in := sink.inputs[0]
	if in.SubscriptionID != sub.ID {
		t.Errorf("subscription id = %s, want %s", in.SubscriptionID, sub.ID)
	}
	if in.Definition != defUserCreated {
		t.Errorf("definition = %q", in.Definition)
	}
	if in.TenantID != "" {
		t.Errorf("tenant id = %q, want host (empty)", in.TenantID)
	}
	if !strings.HasPrefix(in.Secret, "whs_") {
		t.Errorf("secret %q missing whs_ prefix", in.Secret)
	}
	if in.Headers["Key"] != "Value" {
		t.Errorf("headers = %v", in.Headers)
	}
	if !strings.Contains(in.Data, `"name":"ada"`) {
		t.Errorf("payload = %q", in.Data)
	}
}

func TestPublishHostBypassesFeatureChecks(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		URL:         "https://host.example.com/hook",
		Definitions: []string{defThemeChanged},
	})
	// Nothing is granted anywhere; the host must still receive the event.
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	if err := p.Publish(context.Background(), defThemeChanged, nil, ToHost()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.inputs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sink.inputs))
	}
}

func TestPublishTenantFeatureAny(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		TenantID:    "t1",
		URL:         "https://t1.example.com/hook",
		Definitions: []string{defUserDeleted},
	})
	store.add(&subscription.Subscription{
		TenantID:    "t2",
		URL:         "https://t2.example.com/hook",
		Definitions: []string{defUserDeleted},
	})

	checker := feature.NewStatic()
	checker.Grant("t1", featWebhooks)
	sink := &captureSubmitter{}
	p := newPublisher(t, store, checker, sink)

	if err := p.Publish(context.Background(), defUserDeleted, nil, ToTenant("t1")); err != nil {
		t.Fatalf("Publish t1: %v", err)
	}
	if len(sink.inputs) != 1 || sink.inputs[0].TenantID != "t1" {
		t.Fatalf("expected one t1 submission, got %+v", sink.inputs)
	}

	// t2 holds no feature: the publish succeeds but nothing is submitted.
	if err := p.Publish(context.Background(), defUserDeleted, nil, ToTenant("t2")); err != nil {
		t.Fatalf("Publish t2: %v", err)
	}
	if len(sink.inputs) != 1 {
		t.Fatalf("unauthorized tenant was submitted: %+v", sink.inputs)
	}
}

func TestPublishTenantFeatureAll(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		TenantID:    "t1",
		URL:         "https://t1.example.com/hook",
		Definitions: []string{defThemeChanged},
	})
	store.add(&subscription.Subscription{
		TenantID:    "t2",
		URL:         "https://t2.example.com/hook",
		Definitions: []string{defThemeChanged},
	})

	checker := feature.NewStatic()
	checker.Grant("t1", featWebhooks)
	checker.Grant("t1", featTheme)
	checker.Grant("t2", featWebhooks) // only one of the two required
	sink := &captureSubmitter{}
	p := newPublisher(t, store, checker, sink)

	if err := p.Publish(context.Background(), defThemeChanged, nil, ToTenant("t1")); err != nil {
		t.Fatalf("Publish t1: %v", err)
	}
	if err := p.Publish(context.Background(), defThemeChanged, nil, ToTenant("t2")); err != nil {
		t.Fatalf("Publish t2: %v", err)
	}

	if len(sink.inputs) != 1 || sink.inputs[0].TenantID != "t1" {
		t.Fatalf("expected only t1 submitted, got %+v", sink.inputs)
	}
}

func TestPublishAmbientScope(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		TenantID:    "t1",
		URL:         "https://t1.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	store.add(&subscription.Subscription{
		URL:         "https://host.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	// Ambient tenant session selects the tenant's subscription.
	ctx := scope.With(context.Background(), scope.Tenant("t1"))
	if err := p.Publish(ctx, defUserCreated, nil); err != nil {
		t.Fatalf("Publish ambient: %v", err)
	}
	if len(sink.inputs) != 1 || sink.inputs[0].TenantID != "t1" {
		t.Fatalf("ambient scope not honored: %+v", sink.inputs)
	}

	// ToHost overrides the ambient tenant session.
	if err := p.Publish(ctx, defUserCreated, nil, ToHost()); err != nil {
		t.Fatalf("Publish ToHost: %v", err)
	}
	if len(sink.inputs) != 2 || sink.inputs[1].TenantID != "" {
		t.Fatalf("ToHost did not override ambient scope: %+v", sink.inputs)
	}

	// No ambient session and no option defaults to the host.
	if err := p.Publish(context.Background(), defUserCreated, nil); err != nil {
		t.Fatalf("Publish default: %v", err)
	}
	if len(sink.inputs) != 3 || sink.inputs[2].TenantID != "" {
		t.Fatalf("default scope is not host: %+v", sink.inputs)
	}
}

func TestPublishExplicitTenantOverridesAmbient(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		TenantID:    "t2",
		URL:         "https://t2.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	ctx := scope.With(context.Background(), scope.Tenant("t1"))
	if err := p.Publish(ctx, defUserCreated, nil, ToTenant("t2")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.inputs) != 1 || sink.inputs[0].TenantID != "t2" {
		t.Fatalf("explicit tenant not honored: %+v", sink.inputs)
	}
}

func TestPublishPayloadSerializedOnce(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		store.add(&subscription.Subscription{
			URL:         "https://host.example.com/hook",
			Definitions: []string{defUserCreated},
		})
	}
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	if err := p.Publish(context.Background(), defUserCreated, map[string]int{"n": 42}, ToHost()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.inputs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(sink.inputs))
	}
	for _, in := range sink.inputs[1:] {
		if in.Data != sink.inputs[0].Data {
			t.Fatalf("payloads differ across envelopes: %q vs %q", in.Data, sink.inputs[0].Data)
		}
	}
}

func TestPublishStoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.resolveErr = errors.New("backend down")
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	err := p.Publish(context.Background(), defUserCreated, nil)
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestPublishSubmitErrorFailsFast(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		URL:         "https://a.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	store.add(&subscription.Subscription{
		URL:         "https://b.example.com/hook",
		Definitions: []string{defUserCreated},
	})

	sinkErr := errors.New("queue full")
	sink := &captureSubmitter{err: sinkErr, failAfter: 1}
	p := newPublisher(t, store, nil, sink)

	err := p.Publish(context.Background(), defUserCreated, nil, ToHost())
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected submit error, got %v", err)
	}
	if len(sink.inputs) != 1 {
		t.Fatalf("expected fail-fast after 1 submission, got %d", len(sink.inputs))
	}
}

func TestPublishCancelledContext(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		URL:         "https://host.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, defUserCreated, nil, ToHost())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sink.inputs) != 0 {
		t.Fatalf("submissions after cancellation: %d", len(sink.inputs))
	}
}

func TestPublishAsync(t *testing.T) {
	store := newFakeStore()
	store.add(&subscription.Subscription{
		URL:         "https://host.example.com/hook",
		Definitions: []string{defUserCreated},
	})
	sink := &captureSubmitter{}
	p := newPublisher(t, store, nil, sink)

	if err := <-p.PublishAsync(context.Background(), defUserCreated, nil, ToHost()); err != nil {
		t.Fatalf("PublishAsync: %v", err)
	}
	if len(sink.inputs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sink.inputs))
	}

	if err := <-p.PublishAsync(context.Background(), "bogus.definition", nil); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}
