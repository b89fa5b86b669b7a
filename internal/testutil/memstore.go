// Package testutil holds an in-memory stand-in for the Postgres store with
// the same upsert and linking rules, used by package tests.
package testutil

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"sort"
	"strconv"
	"sync"
)

type MemStore struct {
	mu        sync.Mutex
	nextID    int64
	tenants   map[int64]shop.Tenant
	customers map[string]shop.Customer
	orders    map[string]shop.Order
	products  map[string]shop.Product
	events    []shop.Event

	// Ops records every non-empty write in call order, e.g. "customers:2".
	Ops []string
	// FailOn makes the named write ("customers", "orders", "products",
	// "events") return ErrInjected.
	FailOn map[string]bool
}

var ErrInjected = errors.New("injected store failure")

func NewMemStore(tenants ...shop.Tenant) *MemStore {
	m := &MemStore{
		tenants:   map[int64]shop.Tenant{},
		customers: map[string]shop.Customer{},
		orders:    map[string]shop.Order{},
		products:  map[string]shop.Product{},
		FailOn:    map[string]bool{},
	}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) record(op string, n int) error {
	if m.FailOn[op] {
		return ErrInjected
	}
	m.Ops = append(m.Ops, op+":"+strconv.Itoa(n))
	return nil
}

func (m *MemStore) TenantByID(_ context.Context, id int64) (shop.Tenant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	return t, ok, nil
}

func (m *MemStore) TenantByDomain(_ context.Context, domain string) (shop.Tenant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.ShopDomain == domain {
			return t, true, nil
		}
	}
	return shop.Tenant{}, false, nil
}

func (m *MemStore) ListTenants(context.Context) ([]shop.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shop.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) UpsertCustomers(_ context.Context, cs []shop.Customer) error {
	if len(cs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("customers", len(cs)); err != nil {
		return err
	}
	for _, c := range cs {
		if cur, ok := m.customers[c.ExternalID]; ok {
			cur.Email, cur.FirstName, cur.LastName, cur.TotalSpent = c.Email, c.FirstName, c.LastName, c.TotalSpent
			m.customers[c.ExternalID] = cur
			continue
		}
		c.ID = m.id()
		m.customers[c.ExternalID] = c
	}
	return nil
}

func (m *MemStore) UpsertProducts(_ context.Context, ps []shop.Product) error {
	if len(ps) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("products", len(ps)); err != nil {
		return err
	}
	for _, p := range ps {
		if cur, ok := m.products[p.ExternalID]; ok {
			cur.Title, cur.Price = p.Title, p.Price
			m.products[p.ExternalID] = cur
			continue
		}
		p.ID = m.id()
		m.products[p.ExternalID] = p
	}
	return nil
}

func (m *MemStore) UpsertOrders(_ context.Context, orders []shop.Order) error {
	if len(orders) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("orders", len(orders)); err != nil {
		return err
	}
	for _, o := range orders {
		o.CustomerID = nil
		if o.CustomerExternalID != nil {
			if c, ok := m.customers[*o.CustomerExternalID]; ok {
				id := c.ID
				o.CustomerID = &id
			}
		}
		if cur, ok := m.orders[o.ExternalID]; ok {
			cur.Total, cur.Currency, cur.CustomerID, cur.CustomerExternalID = o.Total, o.Currency, o.CustomerID, o.CustomerExternalID
			m.orders[o.ExternalID] = cur
			continue
		}
		o.ID = m.id()
		m.orders[o.ExternalID] = o
	}
	return nil
}

func (m *MemStore) AppendEvent(_ context.Context, e shop.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("events", 1); err != nil {
		return 0, err
	}
	e.ID = m.id()
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *MemStore) Customer(externalID string) (shop.Customer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[externalID]
	return c, ok
}

func (m *MemStore) Order(externalID string) (shop.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[externalID]
	return o, ok
}

func (m *MemStore) Product(externalID string) (shop.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[externalID]
	return p, ok
}

func (m *MemStore) Counts() (customers, products, orders int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers), len(m.products), len(m.orders)
}

func (m *MemStore) Events() []shop.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shop.Event(nil), m.events...)
}
