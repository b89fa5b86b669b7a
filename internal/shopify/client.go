// Package shopify fetches resource collections from the Shopify Admin REST API.
//
// Only the first page of each collection is requested; Link-header cursors
// are not followed.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const AccessTokenHeader = "X-Shopify-Access-Token"

type Config struct {
	APIVersion string
	PageSize   int
	Timeout    time.Duration // per HTTP attempt
	Retries    int
	RetryWait  time.Duration
	Scheme     string
	// RatePerSecond and Burst shape calls per shop domain, mirroring the
	// platform's leaky bucket.
	RatePerSecond float64
	Burst         int
}

type Client struct {
	http *resty.Client
	cfg  Config
	log  *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-07"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}

	c := &Client{cfg: cfg, log: log, limiters: map[string]*rate.Limiter{}}
	c.http = resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(10 * cfg.RetryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(shouldRetry).
		AddRetryHook(func(r *resty.Response, err error) {
			if r == nil || r.Request == nil {
				return
			}
			c.log.Warn("retrying shopify request",
				zap.String("url", r.Request.URL),
				zap.Int("attempt", r.Request.Attempt),
				zap.Int("status", r.StatusCode()),
				zap.Error(err),
			)
		})
	return c
}

func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		return isTimeout(err)
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) limiter(domain string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.cfg.RatePerSecond), c.cfg.Burst)
		c.limiters[domain] = l
	}
	return l
}

// URL builds the collection endpoint for kind on the tenant's shop.
func (c *Client) URL(t shop.Tenant, kind shop.Kind) string {
	return fmt.Sprintf("%s://%s/admin/api/%s/%s.json", c.cfg.Scheme, t.ShopDomain, c.cfg.APIVersion, kind)
}

// Fetch returns the raw records of one page of kind for tenant t. A response
// without the collection key yields an empty slice.
func (c *Client) Fetch(ctx context.Context, t shop.Tenant, kind shop.Kind) ([]json.RawMessage, error) {
	if !t.Configured() {
		return nil, fmt.Errorf("tenant %d: %w", t.ID, shop.ErrTenantNotConfigured)
	}

	params := map[string]string{"limit": strconv.Itoa(c.cfg.PageSize)}
	if kind == shop.KindOrders {
		params["status"] = "any"
	}

	start := time.Now()
	if err := c.limiter(t.ShopDomain).Wait(ctx); err != nil {
		return nil, &shop.FetchError{Kind: kind, Domain: t.ShopDomain, Timeout: true, Err: fmt.Errorf("rate limit: %w", err)}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(AccessTokenHeader, t.AccessToken).
		SetQueryParams(params).
		Get(c.URL(t, kind))
	if err != nil {
		return nil, &shop.FetchError{Kind: kind, Domain: t.ShopDomain, Timeout: isTimeout(err), Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &shop.FetchError{Kind: kind, Domain: t.ShopDomain, Status: resp.StatusCode()}
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &shop.FetchError{Kind: kind, Domain: t.ShopDomain, Err: fmt.Errorf("decode body: %w", err)}
	}
	var items []json.RawMessage
	if raw, ok := body[string(kind)]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &shop.FetchError{Kind: kind, Domain: t.ShopDomain, Err: fmt.Errorf("decode %s: %w", kind, err)}
		}
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	c.log.Debug("fetched page",
		zap.Int64("tenant_id", t.ID),
		zap.String("kind", kind.String()),
		zap.Int("count", len(items)),
		zap.Duration("took", time.Since(start)),
	)
	return items, nil
}
