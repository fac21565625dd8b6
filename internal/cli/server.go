package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-service/internal/api/http"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
	"github.com/spec-kit/user-service/internal/worker"
)

// Server is a fully wired fiber application together with the store
// handles it owns.
type Server struct {
	App      *fiber.App
	Users    *service.UsersService
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewServer opens the configured store and wires services, handlers and
// routes onto a new fiber app.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	srv := &Server{}
	repo, err := srv.openStore(ctx, cfg, logger)
	if err != nil {
		srv.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(metricsNamespace(cfg.App.Name))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	srv.Users = service.NewUsersService(service.UserDependencies{
		UserRepo:   repo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, srv.postgres, srv.redis),
		Users:       handlers.NewUsersHandler(srv.Users, handlers.NewValidator()),
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
	})
	srv.App = app
	return srv, nil
}

func (s *Server) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserRepository, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.postgres = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return repository.NewUserRepository(pg.PoolHandle()), nil
	case config.StoreRedis:
		s.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		return repository.NewRedisUserRepository(s.redis.Client, cfg.Redis.UsersKey), nil
	case config.StoreMemory, "":
		logger.Info("using in-memory user store")
		return repository.NewMemoryUserRepository(), nil
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}
}

// Close releases store connections.
func (s *Server) Close() {
	s.postgres.Close()
	s.redis.Close()
}

func metricsNamespace(appName string) string {
	ns := strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(strings.ToLower(appName))
	if ns == "" {
		return "user_service"
	}
	return ns
}
