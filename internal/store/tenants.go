package store

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/jackc/pgx/v5"
)

const tenantColumns = `id, COALESCE(name, ''), COALESCE(shop_domain, ''), COALESCE(access_token, '')`

func scanTenant(row pgx.Row) (shop.Tenant, bool, error) {
	var t shop.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.ShopDomain, &t.AccessToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.Tenant{}, false, nil
	}
	if err != nil {
		return shop.Tenant{}, false, err
	}
	return t, true, nil
}

func (s *Store) TenantByID(ctx context.Context, id int64) (shop.Tenant, bool, error) {
	return scanTenant(s.DB.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id=$1`, id))
}

// TenantByDomain matches shop_domain exactly; callers normalize if they need to.
func (s *Store) TenantByDomain(ctx context.Context, domain string) (shop.Tenant, bool, error) {
	return scanTenant(s.DB.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE shop_domain=$1`, domain))
}

func (s *Store) ListTenants(ctx context.Context) ([]shop.Tenant, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Tenant
	for rows.Next() {
		var t shop.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.ShopDomain, &t.AccessToken); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
