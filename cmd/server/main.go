package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	"benefind/internal/eligibility"
	"benefind/internal/eligibility/catalog"
	"benefind/internal/eligibility/content"
	jwttoken "benefind/internal/jwt_token"
	"benefind/internal/platform/config"
	"benefind/internal/platform/httpserver"
	"benefind/internal/platform/kafka"
	"benefind/internal/platform/logger"
	"benefind/internal/platform/otel"
	"benefind/internal/platform/postgres"
	"benefind/internal/platform/redis"
	"benefind/internal/screening/handler"
	"benefind/internal/screening/metrics"
	"benefind/internal/screening/publisher"
	"benefind/internal/screening/service"
	"benefind/internal/screening/store"
	httptransport "benefind/internal/transport/http"
	"benefind/pkg/platform/circuit"
	"benefind/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		config.Exitf("invalid configuration: %v", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		config.Exitf("benefind: %v", err)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loadCatalog := catalogLoader(cfg.CatalogPath)
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	bundle, err := loadContent(cfg.ContentDir)
	if err != nil {
		return err
	}
	engine := eligibility.New(catalog.NewRegistry(cat), bundle,
		eligibility.WithLogger(log),
		eligibility.WithIssueCounter(m.IncrementCatalogIssue),
	)

	checks := map[string]httptransport.Check{}
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	var screenings service.Store = store.NewInMemoryStore()
	if db != nil {
		defer db.Close()
		if cfg.Postgres.ApplySchema {
			if err := store.EnsureSchema(ctx, db); err != nil {
				return err
			}
		}
		screenings = store.NewPostgres(db)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres DSN configured; screenings are kept in memory")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		cacheOpts := []store.RedisCacheOption{store.WithTTL(cfg.Redis.LatestTTL)}
		if cfg.Redis.HashKey != "" {
			cacheOpts = append(cacheOpts, store.WithHashKey([]byte(cfg.Redis.HashKey)))
		}
		opts = append(opts,
			service.WithLatestCache(store.NewRedisLatestCache(rdb.Client, cacheOpts...)),
			service.WithCacheBreaker(circuit.New("redis-latest-cache",
				circuit.WithFailureThreshold(cfg.Redis.BreakerFailures),
				circuit.WithCooldown(cfg.Redis.BreakerCooldown),
			)),
		)
		checks["redis"] = rdb.Health
	}

	kc, err := kafkaClient(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kc != nil {
		defer kc.Close()
		opts = append(opts, service.WithPublisher(publisher.NewKafka(kc, cfg.Kafka.Topic)))
		checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, kc) }
	}

	svc := service.New(engine, screenings, opts...)

	var validator auth.JWTValidator
	if cfg.JWTSigningKey != "" {
		validator = jwttoken.NewMiddlewareValidator(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience))
	} else {
		log.Warn("no JWT signing key configured; only intake sessions can own screenings")
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Validator: validator,
		Gatherer:  reg,
		Checks:    checks,
		Version:   engine.CatalogVersion,
	}, handler.New(svc, log))

	go watchReload(ctx, engine, loadCatalog, m, log)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting benefind", "addr", cfg.Addr, "catalog_version", engine.CatalogVersion())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func catalogLoader(path string) catalog.Loader {
	if path == "" {
		return catalog.LoadEmbedded
	}
	return func() (*catalog.Catalog, error) { return catalog.LoadFile(path) }
}

func loadContent(dir string) (*content.Bundle, error) {
	if dir == "" {
		return content.LoadEmbedded()
	}
	return content.LoadDir(dir)
}

func kafkaClient(ctx context.Context, cfg config.KafkaConfig) (*kgo.Client, error) {
	kc, err := kafka.NewClient(cfg)
	if err != nil || kc == nil {
		return kc, err
	}
	if cfg.EnsureTopic {
		if err := kafka.EnsureTopic(ctx, kc, cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
			kc.Close()
			return nil, err
		}
	}
	return kc, nil
}

// watchReload swaps in a freshly loaded catalog on every SIGHUP. A failed
// reload keeps the active catalog.
func watchReload(ctx context.Context, engine *eligibility.Engine, load catalog.Loader, m *metrics.Metrics, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			err := engine.Reload(load)
			m.IncrementCatalogReload(err)
			if err != nil {
				log.Error("keeping active catalog", "catalog_version", engine.CatalogVersion(), "error", err)
			}
		}
	}
}

