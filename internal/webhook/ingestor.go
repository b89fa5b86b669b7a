// Package webhook turns inbound Shopify webhook deliveries into stored events
// and resource upserts.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/metrics"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"go.uber.org/zap"
)

const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderHMAC       = "X-Shopify-Hmac-Sha256"
)

type TenantFinder interface {
	TenantByDomain(ctx context.Context, domain string) (shop.Tenant, bool, error)
}

type EventStore interface {
	AppendEvent(ctx context.Context, e shop.Event) (int64, error)
}

type Reconciler interface {
	UpsertCustomers(ctx context.Context, customers []shop.Customer) error
	UpsertProducts(ctx context.Context, products []shop.Product) error
	UpsertOrders(ctx context.Context, orders []shop.Order) error
}

type Publisher interface {
	PublishEvent(key, eventType string, payload any)
}

type Observer interface {
	ObserveWebhook(topic, outcome string)
}

type Ingestor struct {
	Tenants TenantFinder
	Events  EventStore
	Store   Reconciler
	Relay   Publisher // optional
	Metrics Observer  // optional
	Log     *zap.Logger
}

type Outcome struct {
	TenantID int64     `json:"tenant_id"`
	EventID  int64     `json:"event_id,omitempty"`
	Stored   bool      `json:"stored"`
	Kind     shop.Kind `json:"kind,omitempty"`
	Mapped   bool      `json:"mapped"`
}

// Ingest handles one delivery. The tenant is matched on the exact shop
// domain header, without the normalization the sync endpoints apply.
// Tracked topics are stored before any mapping is attempted, so a mapping
// failure still leaves the event behind.
func (in *Ingestor) Ingest(ctx context.Context, topic, shopDomain string, body []byte) (Outcome, error) {
	out, err := in.ingest(ctx, topic, shopDomain, body)
	if in.Metrics != nil {
		in.Metrics.ObserveWebhook(topic, metrics.WebhookOutcome(out.Stored, out.Mapped, err))
	}
	return out, err
}

func (in *Ingestor) ingest(ctx context.Context, topic, shopDomain string, body []byte) (Outcome, error) {
	if topic == "" || shopDomain == "" {
		return Outcome{}, shop.ErrMissingHeaders
	}
	if !json.Valid(body) {
		return Outcome{}, shop.ErrInvalidPayload
	}

	t, ok, err := in.Tenants.TenantByDomain(ctx, shopDomain)
	if err != nil {
		return Outcome{}, fmt.Errorf("tenant by domain %s: %w", shopDomain, err)
	}
	if !ok {
		return Outcome{}, shop.ErrTenantNotFound
	}

	out := Outcome{TenantID: t.ID}
	log := in.Log.With(zap.Int64("tenant_id", t.ID), zap.String("shop_domain", shopDomain), zap.String("topic", topic))

	if shop.IsTrackedTopic(topic) {
		id, err := in.Events.AppendEvent(ctx, shop.Event{TenantID: t.ID, EventType: topic, Payload: body})
		if err != nil {
			return out, err
		}
		out.EventID, out.Stored = id, true
		if in.Relay != nil {
			in.Relay.PublishEvent(shopDomain, shop.EventWebhookReceived, shop.WebhookReceivedPayload{
				EventID: id, TenantID: t.ID, Topic: topic, Body: body,
			})
		}
	}

	kind, ok := shop.TopicKind(topic)
	if !ok {
		log.Info("webhook stored", zap.Bool("stored", out.Stored))
		return out, nil
	}
	out.Kind = kind
	if err := in.apply(ctx, t.ID, kind, body); err != nil {
		log.Error("webhook mapping failed", zap.Error(err))
		return out, err
	}
	out.Mapped = true
	log.Info("webhook stored and mapped", zap.Bool("stored", out.Stored), zap.String("kind", kind.String()))
	return out, nil
}

// apply upserts the single record carried by body.
func (in *Ingestor) apply(ctx context.Context, tenantID int64, kind shop.Kind, body []byte) error {
	switch kind {
	case shop.KindCustomers:
		var p shop.CustomerPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("%w: %v", shop.ErrInvalidPayload, err)
		}
		c, ok := shop.MapCustomer(tenantID, p)
		if !ok {
			return fmt.Errorf("%w: customer without id", shop.ErrInvalidPayload)
		}
		return in.Store.UpsertCustomers(ctx, []shop.Customer{c})
	case shop.KindOrders:
		var p shop.OrderPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("%w: %v", shop.ErrInvalidPayload, err)
		}
		o, ok := shop.MapOrder(tenantID, p)
		if !ok {
			return fmt.Errorf("%w: order without id", shop.ErrInvalidPayload)
		}
		return in.Store.UpsertOrders(ctx, []shop.Order{o})
	case shop.KindProducts:
		var p shop.ProductPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("%w: %v", shop.ErrInvalidPayload, err)
		}
		pr, ok := shop.MapProduct(tenantID, p)
		if !ok {
			return fmt.Errorf("%w: product without id", shop.ErrInvalidPayload)
		}
		return in.Store.UpsertProducts(ctx, []shop.Product{pr})
	}
	return nil
}
