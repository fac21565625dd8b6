package cli

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "usersvc", root.Use)
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORE_DRIVER", "memory")

	root := NewRootCmd()
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestServeRejectsMissingEnvFile(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"serve", "--env-file", "/does/not/exist.env"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "user-service", Version: "test", RequestTimeoutSeconds: 5},
		Store:   config.StoreConfig{Driver: config.StoreMemory},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/internal/metrics"},
	}
}

func TestNewServerWithMemoryStore(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer srv.Close()

	resp, err := srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/users", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/internal/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestNewServerWithoutMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv, err := NewServer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer srv.Close()

	resp, err := srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/internal/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNewServerRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "sqlite"
	_, err := NewServer(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestMetricsNamespace(t *testing.T) {
	assert.Equal(t, "user_service", metricsNamespace("User-Service"))
	assert.Equal(t, "user_service", metricsNamespace(""))
	assert.Equal(t, "users_v2", metricsNamespace("users.v2"))
}
