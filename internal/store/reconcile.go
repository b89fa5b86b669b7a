package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/jackc/pgx/v5"
)

// tenant_id and shopify_id are never part of an update list.
const (
	upsertCustomerSQL = `
		INSERT INTO customers(shopify_id, email, first_name, last_name, tenant_id, total_spent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shopify_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			total_spent = EXCLUDED.total_spent`

	upsertProductSQL = `
		INSERT INTO products(shopify_id, title, price, tenant_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shopify_id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price`

	// customer_id is looked up when the row is written; it stays NULL when
	// the customer has not been synced yet.
	upsertOrderSQL = `
		INSERT INTO orders(shopify_id, total, currency, customer_id, customer_shopify_id, tenant_id, created_at)
		VALUES ($1, $2, $3, (SELECT id FROM customers WHERE shopify_id = $4), $4, $5, $6)
		ON CONFLICT (shopify_id) DO UPDATE SET
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			customer_id = EXCLUDED.customer_id,
			customer_shopify_id = EXCLUDED.customer_shopify_id`
)

func (s *Store) UpsertCustomers(ctx context.Context, customers []shop.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, c := range customers {
		b.Queue(upsertCustomerSQL, c.ExternalID, c.Email, c.FirstName, c.LastName, c.TenantID, c.TotalSpent.String(), c.CreatedAt)
	}
	if err := s.sendBatch(ctx, b); err != nil {
		return fmt.Errorf("upsert %d customers: %w", len(customers), err)
	}
	return nil
}

func (s *Store) UpsertProducts(ctx context.Context, products []shop.Product) error {
	if len(products) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, p := range products {
		b.Queue(upsertProductSQL, p.ExternalID, p.Title, p.Price.String(), p.TenantID, p.CreatedAt)
	}
	if err := s.sendBatch(ctx, b); err != nil {
		return fmt.Errorf("upsert %d products: %w", len(products), err)
	}
	return nil
}

func (s *Store) UpsertOrders(ctx context.Context, orders []shop.Order) error {
	if len(orders) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, o := range orders {
		b.Queue(upsertOrderSQL, o.ExternalID, o.Total.String(), o.Currency, o.CustomerExternalID, o.TenantID, o.CreatedAt)
	}
	if err := s.sendBatch(ctx, b); err != nil {
		return fmt.Errorf("upsert %d orders: %w", len(orders), err)
	}
	return nil
}

// OrderByExternalID reads back one order; total is returned via its text form.
func (s *Store) OrderByExternalID(ctx context.Context, externalID string) (shop.Order, bool, error) {
	var (
		o     shop.Order
		total string
	)
	err := s.DB.QueryRow(ctx, `
		SELECT id, shopify_id, total::text, currency, customer_id, customer_shopify_id, tenant_id, created_at
		FROM orders WHERE shopify_id=$1`, externalID).
		Scan(&o.ID, &o.ExternalID, &total, &o.Currency, &o.CustomerID, &o.CustomerExternalID, &o.TenantID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.Order{}, false, nil
	}
	if err != nil {
		return shop.Order{}, false, err
	}
	o.Total = shop.ParseAmount(total)
	return o, true, nil
}

func (s *Store) CustomerByExternalID(ctx context.Context, externalID string) (shop.Customer, bool, error) {
	var (
		c     shop.Customer
		spent string
	)
	err := s.DB.QueryRow(ctx, `
		SELECT id, shopify_id, first_name, last_name, email, tenant_id, total_spent::text, created_at
		FROM customers WHERE shopify_id=$1`, externalID).
		Scan(&c.ID, &c.ExternalID, &c.FirstName, &c.LastName, &c.Email, &c.TenantID, &spent, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.Customer{}, false, nil
	}
	if err != nil {
		return shop.Customer{}, false, err
	}
	c.TotalSpent = shop.ParseAmount(spent)
	return c, true, nil
}
