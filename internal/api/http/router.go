package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Users       *handlers.UsersHandler
	Metrics     *observability.Metrics
	MetricsPath string
}

// RegisterRoutes wires HTTP routes. The metrics endpoint is mounted only
// when a registry is supplied.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if reg := cfg.Metrics.Registry(); reg != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	keyPath := "/:" + domain.UserMetadata.KeyName
	users := app.Group("/users")
	users.Get("/", cfg.Users.FindAll)
	users.Post("/", cfg.Users.Create)
	users.Get(keyPath, cfg.Users.FindOne)
	users.Put(keyPath, cfg.Users.Update)
	users.Delete(keyPath, cfg.Users.Delete)
}
