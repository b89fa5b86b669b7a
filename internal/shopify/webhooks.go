package shopify

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"go.uber.org/zap"
	"net/http"
)

type webhookRequest struct {
	Webhook webhookSubscription `json:"webhook"`
}

type webhookSubscription struct {
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

func (c *Client) webhooksURL(t shop.Tenant) string {
	return fmt.Sprintf("%s://%s/admin/api/%s/webhooks.json", c.cfg.Scheme, t.ShopDomain, c.cfg.APIVersion)
}

// RegisterWebhook subscribes address to topic on the tenant's shop. The
// platform answers 422 when the subscription already exists; that is not an
// error here, and created reports which case happened.
func (c *Client) RegisterWebhook(ctx context.Context, t shop.Tenant, topic, address string) (created bool, err error) {
	if !t.Configured() {
		return false, fmt.Errorf("tenant %d: %w", t.ID, shop.ErrTenantNotConfigured)
	}
	if err := c.limiter(t.ShopDomain).Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(AccessTokenHeader, t.AccessToken).
		SetBody(webhookRequest{Webhook: webhookSubscription{Topic: topic, Address: address, Format: "json"}}).
		Post(c.webhooksURL(t))
	if err != nil {
		return false, fmt.Errorf("register %s on %s: %w", topic, t.ShopDomain, err)
	}
	switch {
	case resp.IsSuccess():
		c.log.Info("webhook registered", zap.Int64("tenant_id", t.ID), zap.String("topic", topic))
		return true, nil
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		c.log.Info("webhook already registered", zap.Int64("tenant_id", t.ID), zap.String("topic", topic))
		return false, nil
	default:
		return false, fmt.Errorf("register %s on %s: unexpected status %d", topic, t.ShopDomain, resp.StatusCode())
	}
}
