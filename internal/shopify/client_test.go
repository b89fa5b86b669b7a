package shopify

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(cfg Config) *Client {
	cfg.Scheme = "http"
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Millisecond
	}
	return NewClient(cfg, zap.NewNop())
}

func tenantFor(server *httptest.Server) shop.Tenant {
	return shop.Tenant{ID: 1, ShopDomain: strings.TrimPrefix(server.URL, "http://"), AccessToken: "shpat_test"}
}

func TestFetchOrdersRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/api/2025-07/orders.json", r.URL.Path)
		assert.Equal(t, "250", r.URL.Query().Get("limit"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Equal(t, "shpat_test", r.Header.Get(AccessTokenHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orders":[{"id":1},{"id":2}]}`))
	}))
	defer server.Close()

	items, err := newTestClient(Config{}).Fetch(context.Background(), tenantFor(server), shop.KindOrders)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.JSONEq(t, `{"id":1}`, string(items[0]))
}

func TestFetchCustomersOmitsStatusAndHonoursPageSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/customers.json", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"customers":[]}`))
	}))
	defer server.Close()

	c := newTestClient(Config{APIVersion: "2024-10", PageSize: 50})
	items, err := c.Fetch(context.Background(), tenantFor(server), shop.KindCustomers)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"something_else":[1,2]}`))
	}))
	defer server.Close()

	items, err := newTestClient(Config{}).Fetch(context.Background(), tenantFor(server), shop.KindProducts)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetchOnlyRequestsFirstPage(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Link", `<http://`+r.Host+`/admin/api/2025-07/products.json?page_info=abc>; rel="next"`)
		_, _ = w.Write([]byte(`{"products":[{"id":1}]}`))
	}))
	defer server.Close()

	items, err := newTestClient(Config{}).Fetch(context.Background(), tenantFor(server), shop.KindProducts)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRequiresConfiguredTenant(t *testing.T) {
	c := newTestClient(Config{})

	_, err := c.Fetch(context.Background(), shop.Tenant{ID: 3, ShopDomain: "x.example.com"}, shop.KindOrders)
	assert.True(t, errors.Is(err, shop.ErrTenantNotConfigured))

	_, err = c.Fetch(context.Background(), shop.Tenant{ID: 3, AccessToken: "tok"}, shop.KindOrders)
	assert.True(t, shop.IsConfigError(err))
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":"Invalid API key"}`))
	}))
	defer server.Close()

	_, err := newTestClient(Config{Retries: 2}).Fetch(context.Background(), tenantFor(server), shop.KindCustomers)
	var fe *shop.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusUnauthorized, fe.Status)
	assert.False(t, fe.Retryable())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"customers":[{"id":9}]}`))
	}))
	defer server.Close()

	items, err := newTestClient(Config{Retries: 2}).Fetch(context.Background(), tenantFor(server), shop.KindCustomers)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchTimeoutIsRetryable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"customers":[]}`))
	}))
	defer server.Close()

	c := newTestClient(Config{Timeout: 30 * time.Millisecond, Retries: 1})
	_, err := c.Fetch(context.Background(), tenantFor(server), shop.KindCustomers)

	var fe *shop.FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Timeout)
	assert.True(t, fe.Retryable())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchIsThrottledPerShop(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"products":[]}`))
	})
	first := httptest.NewServer(handler)
	defer first.Close()
	second := httptest.NewServer(handler)
	defer second.Close()

	c := newTestClient(Config{RatePerSecond: 0.01, Burst: 1})
	_, err := c.Fetch(context.Background(), tenantFor(first), shop.KindProducts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, tenantFor(first), shop.KindProducts)
	var fe *shop.FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Retryable())

	// another shop has its own bucket
	_, err = c.Fetch(context.Background(), tenantFor(second), shop.KindProducts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
