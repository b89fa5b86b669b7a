// Package syncer pulls customers, products and orders for each tenant and
// reconciles them into storage.
//
// Tenants are processed one at a time and the three kinds of one tenant run
// strictly in shop.SyncOrder. There is no lock between an on-demand sync and
// the scheduled one; concurrent runs for the same tenant rely on upserts
// being idempotent.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

type TenantLister interface {
	ListTenants(ctx context.Context) ([]shop.Tenant, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, t shop.Tenant, kind shop.Kind) ([]json.RawMessage, error)
}

type Reconciler interface {
	UpsertCustomers(ctx context.Context, customers []shop.Customer) error
	UpsertProducts(ctx context.Context, products []shop.Product) error
	UpsertOrders(ctx context.Context, orders []shop.Order) error
}

type StatusStore interface {
	Save(ctx context.Context, tenantID int64, v any) error
}

type Publisher interface {
	PublishEvent(key, eventType string, payload any)
}

type Observer interface {
	ObserveSync(kind shop.Kind, written, skipped int, took time.Duration, err error)
}

// Policy decides what SyncAll does when a tenant fails.
type Policy int

const (
	// AbortOnError stops at the first upstream or storage failure.
	// Tenants with missing credentials are still skipped.
	AbortOnError Policy = iota
	// ContinueOnError logs every failure and moves on.
	ContinueOnError
)

type Result struct {
	TenantID   int64     `json:"tenant_id"`
	Domain     string    `json:"shop_domain"`
	Customers  int       `json:"customers"`
	Products   int       `json:"products"`
	Orders     int       `json:"orders"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Orchestrator struct {
	Tenants TenantLister
	Fetcher Fetcher
	Store   Reconciler
	Status  StatusStore // optional
	Events  Publisher   // optional
	Metrics Observer    // optional
	Log     *zap.Logger
}

// SyncKind fetches one page of kind, maps it and upserts it. It returns the
// number of records written and the number skipped by the mapper.
func (o *Orchestrator) SyncKind(ctx context.Context, t shop.Tenant, kind shop.Kind) (int, int, error) {
	start := time.Now()
	n, skipped, err := o.syncKind(ctx, t, kind)
	if o.Metrics != nil {
		o.Metrics.ObserveSync(kind, n, skipped, time.Since(start), err)
	}
	return n, skipped, err
}

func (o *Orchestrator) syncKind(ctx context.Context, t shop.Tenant, kind shop.Kind) (int, int, error) {
	raws, err := o.Fetcher.Fetch(ctx, t, kind)
	if err != nil {
		return 0, 0, err
	}

	var n, skipped int
	switch kind {
	case shop.KindCustomers:
		var recs []shop.Customer
		recs, skipped = shop.MapCustomers(t.ID, raws)
		n, err = len(recs), o.Store.UpsertCustomers(ctx, recs)
	case shop.KindProducts:
		var recs []shop.Product
		recs, skipped = shop.MapProducts(t.ID, raws)
		n, err = len(recs), o.Store.UpsertProducts(ctx, recs)
	case shop.KindOrders:
		var recs []shop.Order
		recs, skipped = shop.MapOrders(t.ID, raws)
		n, err = len(recs), o.Store.UpsertOrders(ctx, recs)
	default:
		return 0, 0, fmt.Errorf("unknown resource kind %q", kind)
	}
	if err != nil {
		return 0, skipped, err
	}
	if skipped > 0 {
		o.Log.Warn("skipped unmappable records",
			zap.Int64("tenant_id", t.ID),
			zap.String("kind", kind.String()),
			zap.Int("skipped", skipped),
		)
	}
	return n, skipped, nil
}

func (o *Orchestrator) SyncCustomers(ctx context.Context, t shop.Tenant) (int, error) {
	n, _, err := o.SyncKind(ctx, t, shop.KindCustomers)
	return n, err
}

func (o *Orchestrator) SyncProducts(ctx context.Context, t shop.Tenant) (int, error) {
	n, _, err := o.SyncKind(ctx, t, shop.KindProducts)
	return n, err
}

func (o *Orchestrator) SyncOrders(ctx context.Context, t shop.Tenant) (int, error) {
	n, _, err := o.SyncKind(ctx, t, shop.KindOrders)
	return n, err
}

// SyncTenant runs customers, products and orders in that order. The first
// failing step stops the pipeline; earlier steps stay written.
func (o *Orchestrator) SyncTenant(ctx context.Context, t shop.Tenant) (Result, error) {
	res := Result{TenantID: t.ID, Domain: t.ShopDomain, StartedAt: time.Now().UTC()}
	log := o.Log.With(zap.Int64("tenant_id", t.ID), zap.String("shop_domain", t.ShopDomain))

	for _, kind := range shop.SyncOrder {
		n, skipped, err := o.SyncKind(ctx, t, kind)
		res.Skipped += skipped
		if err != nil {
			res.Error = err.Error()
			res.FinishedAt = time.Now().UTC()
			log.Error("tenant sync failed", zap.String("kind", kind.String()), zap.Error(err))
			o.record(ctx, res)
			return res, fmt.Errorf("sync %s for tenant %d: %w", kind, t.ID, err)
		}
		switch kind {
		case shop.KindCustomers:
			res.Customers = n
		case shop.KindProducts:
			res.Products = n
		case shop.KindOrders:
			res.Orders = n
		}
	}

	res.FinishedAt = time.Now().UTC()
	log.Info("tenant synced",
		zap.Int("customers", res.Customers),
		zap.Int("products", res.Products),
		zap.Int("orders", res.Orders),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)
	o.record(ctx, res)
	return res, nil
}

// SyncAll syncs every known tenant sequentially.
func (o *Orchestrator) SyncAll(ctx context.Context, policy Policy) ([]Result, error) {
	tenants, err := o.Tenants.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	results := make([]Result, 0, len(tenants))
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.SyncTenant(ctx, t)
		results = append(results, res)
		if err == nil {
			continue
		}
		if policy == ContinueOnError || shop.IsConfigError(err) {
			continue
		}
		return results, err
	}
	return results, nil
}

// record stores and relays a finished result. Failures here never fail the sync.
func (o *Orchestrator) record(ctx context.Context, res Result) {
	if o.Status != nil {
		if err := o.Status.Save(ctx, res.TenantID, res); err != nil {
			o.Log.Warn("save sync status", zap.Int64("tenant_id", res.TenantID), zap.Error(err))
		}
	}
	if o.Events != nil {
		o.Events.PublishEvent(res.Domain, shop.EventSyncCompleted, shop.SyncCompletedPayload{
			TenantID:  res.TenantID,
			Domain:    res.Domain,
			Customers: res.Customers,
			Products:  res.Products,
			Orders:    res.Orders,
			Skipped:   res.Skipped,
			Error:     res.Error,
			Finished:  res.FinishedAt,
		})
	}
}

// Snapshot is the raw first page of every collection of one tenant.
type Snapshot struct {
	Customers []json.RawMessage `json:"customers"`
	Orders    []json.RawMessage `json:"orders"`
	Products  []json.RawMessage `json:"products"`
}

// Snapshot fetches the three collections of t concurrently without writing.
func (o *Orchestrator) Snapshot(ctx context.Context, t shop.Tenant) (Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Customers, err = o.Fetcher.Fetch(gctx, t, shop.KindCustomers)
		return err
	})
	g.Go(func() (err error) {
		s.Orders, err = o.Fetcher.Fetch(gctx, t, shop.KindOrders)
		return err
	})
	g.Go(func() (err error) {
		s.Products, err = o.Fetcher.Fetch(gctx, t, shop.KindProducts)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
