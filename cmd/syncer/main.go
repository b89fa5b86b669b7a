// Command syncer runs one pass and exits.
//
// With -tenant it syncs a single tenant by id or shop domain, optionally
// limited to one -kind; without it every tenant is synced and failures are
// logged without stopping the run. With -register-webhooks it subscribes the
// given address to every tracked topic instead of syncing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"github.com/ariefcatur/go-shop-sync/internal/config"
	"github.com/ariefcatur/go-shop-sync/internal/logger"
	"github.com/ariefcatur/go-shop-sync/internal/postgres"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/ariefcatur/go-shop-sync/internal/shopify"
	"github.com/ariefcatur/go-shop-sync/internal/store"
	"github.com/ariefcatur/go-shop-sync/internal/syncer"
	"github.com/ariefcatur/go-shop-sync/internal/tenant"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	tenantFlag := flag.String("tenant", "", "tenant id or shop domain; empty means every tenant")
	kindFlag := flag.String("kind", "", "customers, products or orders; requires -tenant")
	hookAddr := flag.String("register-webhooks", "", "public webhook URL to subscribe instead of syncing")
	migrate := flag.Bool("migrate", false, "apply migrations first")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	var kind shop.Kind
	if *kindFlag != "" {
		k, err := shop.ParseKind(*kindFlag)
		if err != nil || *tenantFlag == "" {
			log.Fatal("invalid -kind", zap.String("kind", *kindFlag), zap.Bool("tenant_set", *tenantFlag != ""), zap.Error(err))
		}
		kind = k
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: int32(cfg.PostgresPool)})
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	st := store.New(db)

	client := shopify.NewClient(shopify.Config{
		APIVersion:    cfg.ShopifyAPIVersion,
		PageSize:      cfg.ShopifyPageSize,
		Timeout:       cfg.ShopifyTimeout,
		Retries:       cfg.ShopifyRetries,
		RatePerSecond: cfg.ShopifyRate,
		Burst:         cfg.ShopifyBurst,
	}, log)
	orch := &syncer.Orchestrator{Tenants: st, Fetcher: client, Store: st, Log: log}

	out, err := run(ctx, runArgs{
		identifier: *tenantFlag,
		kind:       kind,
		hookAddr:   *hookAddr,
		resolver:   &tenant.Resolver{Store: st, Log: log},
		tenants:    st,
		orch:       orch,
		client:     client,
		log:        log,
	})
	if err != nil {
		log.Error("syncer failed", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

type runArgs struct {
	identifier string
	kind       shop.Kind
	hookAddr   string
	resolver   *tenant.Resolver
	tenants    syncer.TenantLister
	orch       *syncer.Orchestrator
	client     *shopify.Client
	log        *zap.Logger
}

func run(ctx context.Context, a runArgs) (any, error) {
	if a.hookAddr != "" {
		ts, err := targets(ctx, a)
		if err != nil {
			return nil, err
		}
		return registerWebhooks(ctx, a, ts), nil
	}

	if a.identifier == "" {
		return a.orch.SyncAll(ctx, syncer.ContinueOnError)
	}
	ts, err := targets(ctx, a)
	if err != nil {
		return nil, err
	}
	t := ts[0]
	if a.kind != "" {
		n, skipped, err := a.orch.SyncKind(ctx, t, a.kind)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tenant": t.ShopDomain, "kind": a.kind, "inserted": n, "skipped": skipped}, nil
	}
	return a.orch.SyncTenant(ctx, t)
}

// targets returns the tenant named by -tenant, or every tenant.
func targets(ctx context.Context, a runArgs) ([]shop.Tenant, error) {
	if a.identifier == "" {
		return a.tenants.ListTenants(ctx)
	}
	t, ok, err := a.resolver.Resolve(ctx, a.identifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shop.ErrTenantNotFound
	}
	return []shop.Tenant{t}, nil
}

// registerWebhooks subscribes every tracked topic for each tenant, keyed by
// tenant id. Failures are reported per tenant and never stop the loop.
func registerWebhooks(ctx context.Context, a runArgs, tenants []shop.Tenant) map[int64]any {
	report := map[int64]any{}
	for _, t := range tenants {
		created, existing := 0, 0
		var errs []string
		for _, topic := range shop.TrackedTopics() {
			ok, err := a.client.RegisterWebhook(ctx, t, topic, a.hookAddr)
			switch {
			case err != nil:
				errs = append(errs, err.Error())
				a.log.Warn("register webhook", zap.Int64("tenant_id", t.ID), zap.String("topic", topic), zap.Error(err))
			case ok:
				created++
			default:
				existing++
			}
			if shop.IsConfigError(err) {
				break
			}
		}
		report[t.ID] = map[string]any{"domain": t.ShopDomain, "created": created, "existing": existing, "errors": errs}
	}
	return report
}
