package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nearby-market/internal/catalog"
	"nearby-market/internal/changefeed"
	"nearby-market/internal/common/aws"
	"nearby-market/internal/common/camunda"
	"nearby-market/internal/common/config"
	"nearby-market/internal/common/database"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/observability"
	"nearby-market/internal/geo"
	"nearby-market/internal/reviews"
	"nearby-market/internal/search"
	"nearby-market/internal/searchindex"
	"nearby-market/internal/store"
	"nearby-market/pkg/registry"

	dp "nearby-market/internal/workers/catalog/delete-product"
	sp "nearby-market/internal/workers/catalog/save-product"
	ss "nearby-market/internal/workers/catalog/save-shop"
	usd "nearby-market/internal/workers/catalog/update-shop-discount"
	dr "nearby-market/internal/workers/reviews/delete-review"
	lr "nearby-market/internal/workers/reviews/list-reviews"
	sr "nearby-market/internal/workers/reviews/submit-review"
	ns "nearby-market/internal/workers/search/nearby-shops"
	sd "nearby-market/internal/workers/search/shop-detail"
	spr "nearby-market/internal/workers/search/search-products"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func(context.Context) error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	cfg := &camunda.RetryConfig{
		MaxRetries: maxRetries - 1,
		BaseDelay:  initialDelay,
		MaxDelay:   30 * time.Second,
	}
	attempt := 0
	return camunda.Retry(ctx, cfg, operationName, nil, func(ctx context.Context) error {
		attempt++
		err := operation(ctx)
		if err != nil && attempt < maxRetries {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", cfg.Backoff(attempt-1)),
			)
		}
		return err
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(ctx, func(context.Context) error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		if pg == nil {
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		if rdb == nil {
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var productIndex *searchindex.ProductIndex
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			if esClient == nil {
				esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
				if err != nil {
					return err
				}
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		index := cfg.Database.Elasticsearch.ProductIndex
		if err := esClient.EnsureIndex(ctx, index, searchindex.Mapping); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err), zap.String("index", index))
		}
		productIndex = searchindex.NewProductIndex(esClient.Client, index)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", index))
	}

	// --- Store & change feed ---
	st := store.WithShopCache(
		store.NewPostgresStore(pg.GetDB()),
		rdb.GetClient(),
		time.Duration(cfg.Search.ShopCacheTTL)*time.Second,
		log,
	)

	var (
		feed      changefeed.Feed
		publisher changefeed.Publisher
	)
	switch cfg.ChangeFeed.Backend {
	case config.ChangeFeedRedis:
		rf := changefeed.NewRedisFeed(rdb.GetClient(), log)
		feed, publisher = rf, rf
	default:
		// Postgres triggers emit the events; nothing to publish by hand.
		feed, publisher = changefeed.NewPostgresFeed(pg.NewListener, log), changefeed.NopPublisher{}
	}
	zapLog.Info("Change feed ready", zap.String("backend", cfg.ChangeFeed.Backend))

	// --- Restock notifications (optional) ---
	var notifier catalog.RestockNotifier
	if sns := cfg.Notifications.SNS; sns.Enabled {
		client, err := aws.NewSNSClient(ctx, sns.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier = aws.NewRestockNotifier(client, sns.RestockTopicARN)
		zapLog.Info("Restock notifications enabled", zap.String("topic", sns.RestockTopicARN))
	}

	// --- Services ---
	var searchIndex search.ProductIndex
	if cfg.Search.UseElasticsearch && productIndex != nil {
		searchIndex = productIndex
	}
	searchSvc := search.NewService(st, searchIndex, search.Options{
		Bounds: geo.RadiusBounds{
			Min:     cfg.Search.MinRadiusKm,
			Max:     cfg.Search.MaxRadiusKm,
			Step:    cfg.Search.RadiusStepKm,
			Default: cfg.Search.DefaultRadiusKm,
		},
		DefaultOrigin: geo.Point{Lat: cfg.Search.DefaultLatitude, Lng: cfg.Search.DefaultLongitude},
		MaxResults:    cfg.Search.MaxProductResults,
	}, obs, log)
	live := search.NewLiveSearches(
		search.NewWatcher(feed, searchSvc, log),
		zeebe,
		time.Duration(cfg.Search.LiveSearchTTL)*time.Second,
		log,
	)

	catalogDeps := catalog.Deps{
		Store:     st,
		Publisher: publisher,
		Notifier:  notifier,
		Logger:    log,
	}
	if productIndex != nil {
		catalogDeps.Index = productIndex
	}
	catalogSvc := catalog.NewService(catalogDeps)
	reviewSvc := reviews.NewService(st, publisher, log)

	// --- Workers ---
	workers := camunda.NewRegistry(zeebe.GetClient(), cfg, log)
	register := func(taskType string, handler camunda.JobHandler, err error) {
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		workers.Register(taskType, handler)
	}

	{
		h, err := spr.NewHandler(spr.HandlerOptions{AppConfig: cfg, Search: searchSvc, Live: live, Logger: log})
		register(spr.TaskType, h, err)
	}
	{
		h, err := ns.NewHandler(ns.HandlerOptions{AppConfig: cfg, Search: searchSvc, Logger: log})
		register(ns.TaskType, h, err)
	}
	{
		h, err := sd.NewHandler(sd.HandlerOptions{AppConfig: cfg, Search: searchSvc, Logger: log})
		register(sd.TaskType, h, err)
	}
	{
		h, err := ss.NewHandler(ss.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
		register(ss.TaskType, h, err)
	}
	{
		h, err := usd.NewHandler(usd.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
		register(usd.TaskType, h, err)
	}
	{
		h, err := sp.NewHandler(sp.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
		register(sp.TaskType, h, err)
	}
	{
		h, err := dp.NewHandler(dp.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
		register(dp.TaskType, h, err)
	}
	{
		h, err := sr.NewHandler(sr.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
		register(sr.TaskType, h, err)
	}
	{
		h, err := dr.NewHandler(dr.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
		register(dr.TaskType, h, err)
	}
	{
		h, err := lr.NewHandler(lr.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
		register(lr.TaskType, h, err)
	}
	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))
	checkActivityRegistry(workers.TaskTypes(), zapLog)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		checks := map[string]string{}
		ready := true
		for name, ping := range map[string]func(context.Context) error{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		} {
			if err := ping(checkCtx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}
		if !ready {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", checks)
			return
		}
		writeStatus(w, http.StatusOK, "ready", checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	workers.Close()
	live.Close()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down observability", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zapLog.Error("Error closing Redis client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// checkActivityRegistry warns about running workers that the activity registry
// does not describe. A missing registry file is not an error.
func checkActivityRegistry(taskTypes []string, log *zap.Logger) {
	path := os.Getenv("ACTIVITY_REGISTRY_PATH")
	if path == "" {
		path = "configs/activity-registry.json"
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("activity registry unreadable", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("activity registry invalid", zap.String("path", path), zap.Error(err))
	}
	if missing := reg.Unregistered(taskTypes); len(missing) > 0 {
		log.Warn("workers missing from activity registry", zap.Strings("taskTypes", missing))
	}
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
