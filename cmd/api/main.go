package main

import (
	"context"
	"github.com/ariefcatur/go-shop-sync/internal/config"
	"github.com/ariefcatur/go-shop-sync/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-sync/internal/kafka"
	"github.com/ariefcatur/go-shop-sync/internal/logger"
	"github.com/ariefcatur/go-shop-sync/internal/metrics"
	"github.com/ariefcatur/go-shop-sync/internal/postgres"
	"github.com/ariefcatur/go-shop-sync/internal/redisx"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/ariefcatur/go-shop-sync/internal/shopify"
	"github.com/ariefcatur/go-shop-sync/internal/store"
	"github.com/ariefcatur/go-shop-sync/internal/syncer"
	"github.com/ariefcatur/go-shop-sync/internal/tenant"
	"github.com/ariefcatur/go-shop-sync/internal/webhook"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// requestTimeout bounds a whole HTTP request, including on-demand syncs
// across every tenant.
const requestTimeout = 2 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.RunMigrations {
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

	shopClient := shopify.NewClient(shopify.Config{
		APIVersion:    cfg.ShopifyAPIVersion,
		PageSize:      cfg.ShopifyPageSize,
		Timeout:       cfg.ShopifyTimeout,
		Retries:       cfg.ShopifyRetries,
		RatePerSecond: cfg.ShopifyRate,
		Burst:         cfg.ShopifyBurst,
	}, log)

	mx := metrics.New("shop_sync")
	orch := &syncer.Orchestrator{Tenants: st, Fetcher: shopClient, Store: st, Metrics: mx, Log: log}
	ingestor := &webhook.Ingestor{Tenants: st, Events: st, Store: st, Metrics: mx, Log: log}

	// Redis
	var status *redisx.StatusCache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		status = &redisx.StatusCache{R: rdb, TTL: redisx.TTLSyncStatus}
		orch.Status = status
	}

	// Kafka producers
	// producers outlive ctx so they can flush after the scheduler stops
	pctx, pcancel := context.WithCancel(context.Background())
	defer pcancel()
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		hooks := kafkax.NewProducer(cfg.KafkaBrokers, shop.RelayTopicWebhooks, 1024, cfg.ServiceName, log)
		syncs := kafkax.NewProducer(cfg.KafkaBrokers, shop.RelayTopicSync, 256, cfg.ServiceName, log)
		hooks.Start(pctx)
		syncs.Start(pctx)
		ingestor.Relay = hooks
		orch.Events = syncs
		producers = append(producers, hooks, syncs)
	}

	sched := &syncer.Scheduler{Syncer: orch, Interval: cfg.SyncInterval, Log: log}
	sched.Start(ctx)

	// Router & handlers
	router := httpx.NewRouter(requestTimeout)
	router.Handle("/metrics", mx.Handler())
	sh := &httpx.SyncHandler{
		Resolver: &tenant.Resolver{Store: st, Log: log},
		Syncer:   orch,
		Log:      log,
	}
	if status != nil {
		sh.Status = status
	}
	sh.Register(router)
	wh := &httpx.WebhookHandler{Ingestor: ingestor, Secret: cfg.ShopifyWebhookSecret, Log: log}
	wh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel() // stop scheduler
	sched.Wait()
	for _, p := range producers {
		p.Close() // close inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	pcancel()
}
