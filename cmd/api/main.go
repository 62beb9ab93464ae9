package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stashd/docs"
	"stashd/internal/balance"
	"stashd/internal/cache"
	"stashd/internal/cache/eviction"
	"stashd/internal/config"
	"stashd/internal/database"
	"stashd/internal/database/migration"
	handlers "stashd/internal/http/handler"
	"stashd/internal/http/middleware"
	"stashd/internal/metrics"
	"stashd/internal/otel"
	"stashd/internal/repository"
	"stashd/internal/repository/postgres"
	"stashd/internal/service"
	"stashd/internal/snowflake"
	"stashd/internal/storage"
)

// @title stashd API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// PostgreSQL is the optional system of record. Without DB_HOST the
	// service runs memory-only and persistence-backed endpoints degrade.
	var db *sql.DB
	var repo repository.ItemRepository
	if cfg.Database.Host != "" {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		repo = postgres.NewItemPostgres(db)
	}

	store, err := cache.New(cache.Options{
		Shards:          cfg.Cache.Shards,
		ShardCapacity:   cfg.Cache.ShardCapacity,
		Policy:          eviction.PolicyType(cfg.Cache.Policy),
		HotKeyThreshold: uint64(cfg.Cache.HotKeyThreshold),
		HotKeyDecay:     cfg.Cache.HotKeyDecay(),
	})
	if err != nil {
		log.Fatalf("failed to build cache: %v", err)
	}

	gen, err := snowflake.New(cfg.Snowflake.NodeID, cfg.Snowflake.EpochMs)
	if err != nil {
		log.Fatalf("failed to build id generator: %v", err)
	}

	strategy, err := service.ParseWriteStrategy(cfg.Cache.WriteStrategy)
	if err != nil {
		log.Fatalf("invalid write strategy: %v", err)
	}

	// Origins are consulted on cache misses the database cannot serve.
	var picker *balance.Picker
	var monitor *balance.Monitor
	if len(cfg.Origins.URLs) > 0 {
		origins := make([]*balance.Origin, len(cfg.Origins.URLs))
		for i, u := range cfg.Origins.URLs {
			w := 1
			if i < len(cfg.Origins.Weights) {
				w = cfg.Origins.Weights[i]
			}
			origins[i] = &balance.Origin{Name: u, URL: u, Weight: w}
		}
		picker = balance.NewPicker(origins)
		monitor = balance.NewMonitor(picker, cfg.Origins.HealthPath, cfg.Origins.CheckInterval(), cfg.Origins.MaxFailures)
		monitor.Start()
		defer monitor.Stop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var flusher *service.Flusher
	cacheMetrics, err := metrics.NewCache(reg,
		func() float64 { return float64(store.Len()) },
		func() float64 {
			if flusher == nil {
				return 0
			}
			return float64(flusher.Len())
		},
	)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	if strategy == service.WriteBehind {
		if repo == nil {
			log.Fatalf("write_behind strategy requires a database")
		}
		flusher = service.NewFlusher(repo, service.FlusherOptions{
			QueueSize: cfg.WriteBehind.QueueSize,
			BatchSize: cfg.WriteBehind.BatchSize,
			Interval:  cfg.WriteBehind.FlushInterval(),
			Metrics:   cacheMetrics,
		})
		flusher.Start()
	}

	svc, err := service.NewCacheService(service.Options{
		Cache:      store,
		Repo:       repo,
		Picker:     picker,
		Flusher:    flusher,
		Metrics:    cacheMetrics,
		Strategy:   strategy,
		DefaultTTL: cfg.Cache.DefaultTTL(),
		HTTPClient: &http.Client{
			Timeout:   3 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	if err != nil {
		log.Fatalf("failed to build cache service: %v", err)
	}

	// Snapshots need object storage; skip when MinIO is not configured.
	var snap *service.Snapshotter
	if cfg.MinIO.Endpoint != "" {
		objStore, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
		snap = service.NewSnapshotter(store, objStore, cfg.Snapshot.Interval())
		if cfg.Snapshot.RestoreOnStartup {
			if _, err := snap.RestoreLatest(ctx); err != nil {
				log.Printf("snapshot restore failed: %v", err)
			}
		}
		snap.Start()
		defer snap.Stop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to build prometheus middleware: %v", err)
	}
	app.Use(promMiddleware.Handler())

	// Register HTTP routes with injected dependencies
	handlers.RegisterRoutes(app, db, svc, gen, monitor, snap, reg)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if err := svc.Close(shutdownCtx); err != nil {
		log.Printf("service shutdown error: %v", err)
	}
}
