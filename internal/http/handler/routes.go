package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stashd/internal/balance"
	"stashd/internal/service"
	"stashd/internal/snowflake"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// monitor and snap may be nil when origins or object storage are not
// configured; the corresponding endpoints degrade gracefully.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.CacheService, gen *snowflake.Generator, monitor *balance.Monitor, snap *service.Snapshotter, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := app.Group("/v1")

	v1.Get("/keys", ListItems(svc))
	v1.Get("/keys/:key", GetItem(svc))
	v1.Put("/keys/:key", PutItem(svc))
	v1.Delete("/keys/:key", DeleteItem(svc))

	v1.Get("/stats", GetStats(svc))
	v1.Get("/origins", ListOrigins(monitor))

	v1.Post("/ids", MintIDs(gen))
	v1.Get("/ids/:id", DecomposeID(gen))

	v1.Post("/snapshots", TriggerSnapshot(snap))
}
