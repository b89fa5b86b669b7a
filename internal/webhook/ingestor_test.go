package webhook

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/ariefcatur/go-shop-sync/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
)

var tenant = shop.Tenant{ID: 4, ShopDomain: "myshop.example.com", AccessToken: "tok"}

func newIngestor(store *testutil.MemStore) *Ingestor {
	return &Ingestor{Tenants: store, Events: store, Store: store, Log: zap.NewNop()}
}

type relay struct{ keys []string }

func (r *relay) PublishEvent(key, eventType string, _ any) {
	r.keys = append(r.keys, eventType+"@"+key)
}

func TestIngestRejectsMissingHeaders(t *testing.T) {
	store := testutil.NewMemStore(tenant)
	in := newIngestor(store)

	_, err := in.Ingest(context.Background(), "", tenant.ShopDomain, []byte(`{}`))
	assert.True(t, errors.Is(err, shop.ErrMissingHeaders))
	_, err = in.Ingest(context.Background(), "customers/update", "", []byte(`{}`))
	assert.True(t, errors.Is(err, shop.ErrMissingHeaders))
	assert.Empty(t, store.Events())
}

func TestIngestUnknownShopStoresNothing(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	_, err := newIngestor(store).Ingest(context.Background(), "customers/update", "other.example.com", []byte(`{"id": 1, "total_spent": "5"}`))
	assert.True(t, errors.Is(err, shop.ErrTenantNotFound))
	assert.Empty(t, store.Events())
	_, ok := store.Customer("1")
	assert.False(t, ok)
}

func TestIngestMatchesDomainExactly(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	_, err := newIngestor(store).Ingest(context.Background(), "carts/update", "MyShop.example.com", []byte(`{}`))
	assert.True(t, errors.Is(err, shop.ErrTenantNotFound))
}

func TestIngestCustomerUpdateStoresEventAndUpserts(t *testing.T) {
	store := testutil.NewMemStore(tenant)
	r := &relay{}
	in := newIngestor(store)
	in.Relay = r

	out, err := in.Ingest(context.Background(), "customers/update", tenant.ShopDomain,
		[]byte(`{"id": 9001, "email": "c@example.com", "total_spent": "10.00"}`))
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.True(t, out.Mapped)
	assert.Equal(t, shop.KindCustomers, out.Kind)

	_, err = in.Ingest(context.Background(), "customers/update", tenant.ShopDomain,
		[]byte(`{"id": 9001, "email": "c@example.com", "total_spent": "75.25"}`))
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "customers/update", events[0].EventType)
	assert.Equal(t, tenant.ID, events[0].TenantID)

	c, ok := store.Customer("9001")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("75.25").Equal(c.TotalSpent))
	customers, _, _ := store.Counts()
	assert.Equal(t, 1, customers)
	assert.Equal(t, []string{
		shop.EventWebhookReceived + "@myshop.example.com",
		shop.EventWebhookReceived + "@myshop.example.com",
	}, r.keys)
}

func TestIngestOrderLinksKnownCustomer(t *testing.T) {
	store := testutil.NewMemStore(tenant)
	in := newIngestor(store)

	_, err := in.Ingest(context.Background(), "customers/create", tenant.ShopDomain, []byte(`{"id": 1}`))
	require.NoError(t, err)
	_, err = in.Ingest(context.Background(), "orders/paid", tenant.ShopDomain,
		[]byte(`{"id": 700, "total_price": "oops", "currency": "CAD", "customer": {"id": 1}}`))
	require.NoError(t, err)

	c, _ := store.Customer("1")
	o, ok := store.Order("700")
	require.True(t, ok)
	assert.True(t, o.Total.IsZero())
	assert.Equal(t, "CAD", o.Currency)
	require.NotNil(t, o.CustomerID)
	assert.Equal(t, c.ID, *o.CustomerID)
}

func TestIngestProductDeleteStillUpserts(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	_, err := newIngestor(store).Ingest(context.Background(), "products/delete", tenant.ShopDomain, []byte(`{"id": 55, "title": "Hat"}`))
	require.NoError(t, err)

	p, ok := store.Product("55")
	require.True(t, ok)
	assert.Equal(t, "Hat", p.Title)
	assert.True(t, p.Price.IsZero())
}

func TestIngestMistypedFieldsStillMap(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	out, err := newIngestor(store).Ingest(context.Background(), "products/update", tenant.ShopDomain,
		[]byte(`{"id": 56, "title": 5, "variants": [{"price": "1e999999999"}]}`))
	require.NoError(t, err)
	assert.True(t, out.Mapped)

	p, ok := store.Product("56")
	require.True(t, ok)
	assert.Equal(t, "5", p.Title)
	assert.True(t, p.Price.IsZero())
}

func TestIngestTrackedTopicWithoutMapping(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	out, err := newIngestor(store).Ingest(context.Background(), "checkouts/create", tenant.ShopDomain, []byte(`{"token": "x"}`))
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.False(t, out.Mapped)
	assert.Len(t, store.Events(), 1)
	assert.Empty(t, store.Ops[1:])
}

func TestIngestUnknownTopicIsNotAnError(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	out, err := newIngestor(store).Ingest(context.Background(), "app/uninstalled", tenant.ShopDomain, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.False(t, out.Mapped)
	assert.Empty(t, store.Events())
}

func TestIngestMappingFailureKeepsEvent(t *testing.T) {
	store := testutil.NewMemStore(tenant)
	store.FailOn["orders"] = true

	out, err := newIngestor(store).Ingest(context.Background(), "orders/create", tenant.ShopDomain, []byte(`{"id": 1}`))
	assert.True(t, errors.Is(err, testutil.ErrInjected))
	assert.True(t, out.Stored)
	assert.Len(t, store.Events(), 1)

	_, err = newIngestor(store).Ingest(context.Background(), "customers/create", tenant.ShopDomain, []byte(`{"email": "no-id@example.com"}`))
	assert.True(t, errors.Is(err, shop.ErrInvalidPayload))
	assert.Len(t, store.Events(), 2)
}

func TestIngestRejectsInvalidJSON(t *testing.T) {
	store := testutil.NewMemStore(tenant)

	_, err := newIngestor(store).Ingest(context.Background(), "orders/create", tenant.ShopDomain, []byte(`{not json`))
	assert.True(t, errors.Is(err, shop.ErrInvalidPayload))
	assert.Empty(t, store.Events())
}

type outcomes struct{ seen []string }

func (o *outcomes) ObserveWebhook(topic, outcome string) {
	o.seen = append(o.seen, topic+"="+outcome)
}

func TestIngestReportsOutcome(t *testing.T) {
	store := testutil.NewMemStore(tenant)
	obs := &outcomes{}
	in := newIngestor(store)
	in.Metrics = obs
	ctx := context.Background()

	_, _ = in.Ingest(ctx, "orders/create", tenant.ShopDomain, []byte(`{"id": 1}`))
	_, _ = in.Ingest(ctx, "checkouts/create", tenant.ShopDomain, []byte(`{}`))
	_, _ = in.Ingest(ctx, "app/uninstalled", tenant.ShopDomain, []byte(`{}`))
	_, _ = in.Ingest(ctx, "orders/create", "other.example.com", []byte(`{"id": 1}`))
	_, _ = in.Ingest(ctx, "orders/create", tenant.ShopDomain, []byte(`nope`))

	assert.Equal(t, []string{
		"orders/create=mapped",
		"checkouts/create=stored",
		"app/uninstalled=ignored",
		"orders/create=unknown_shop",
		"orders/create=rejected",
	}, obs.seen)
}
