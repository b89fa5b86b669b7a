package tenant

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"go.uber.org/zap"
	"regexp"
	"strconv"
	"strings"
)

type Store interface {
	TenantByID(ctx context.Context, id int64) (shop.Tenant, bool, error)
	TenantByDomain(ctx context.Context, domain string) (shop.Tenant, bool, error)
}

type Resolver struct {
	Store Store
	Log   *zap.Logger
}

var numericID = regexp.MustCompile(`^\d+$`)

// Resolve maps an identifier to a tenant. All-digit identifiers are looked up
// by ID, anything else by trimmed, lower-cased shop domain. A missing tenant
// is reported as ok=false, not as an error.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (shop.Tenant, bool, error) {
	if strings.TrimSpace(identifier) == "" {
		return shop.Tenant{}, false, shop.ErrIdentifierRequired
	}

	if numericID.MatchString(identifier) {
		id, err := strconv.ParseInt(identifier, 10, 64)
		if err != nil {
			// too large for an ID column
			r.Log.Debug("tenant id out of range", zap.String("identifier", identifier))
			return shop.Tenant{}, false, nil
		}
		t, ok, err := r.Store.TenantByID(ctx, id)
		if err != nil {
			return shop.Tenant{}, false, fmt.Errorf("tenant by id %d: %w", id, err)
		}
		r.Log.Debug("tenant lookup by id", zap.Int64("tenant_id", id), zap.Bool("found", ok))
		return t, ok, nil
	}

	domain := strings.ToLower(strings.TrimSpace(identifier))
	t, ok, err := r.Store.TenantByDomain(ctx, domain)
	if err != nil {
		return shop.Tenant{}, false, fmt.Errorf("tenant by domain %s: %w", domain, err)
	}
	r.Log.Debug("tenant lookup by domain", zap.String("shop_domain", domain), zap.Bool("found", ok))
	return t, ok, nil
}
