package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/bookmarks"
	"github.com/samftp/samftp/internal/cache"
	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/navigator"
	"github.com/samftp/samftp/internal/server"
	"github.com/samftp/samftp/internal/server/routes"
)

// harness 按 CLI serve 模式的顺序组装一套完整的控制 API。
type harness struct {
	app      *fiber.App
	listings *cache.ListingCache
	fetcher  *fetch.Client
}

func newHarness(t *testing.T, cfg *config.Config, cacheDir string) *harness {
	t.Helper()

	logger := quietLogger()
	listings, err := cache.Open(cacheDir, cfg.Global.CacheTTL.DurationValue(), logger)
	if err != nil {
		t.Fatalf("cache open error: %v", err)
	}
	fetcher := fetch.NewClient(fetch.NewHTTPClient(fetch.DefaultTimeout),
		fetch.WithBackoff(fetch.NoDelay(cfg.Global.MaxAttempts)),
		fetch.WithLogger(logger),
	)

	registry, err := server.NewRegistry(cfg, func(srv config.ServerConfig) *navigator.Controller {
		opts := []navigator.Option{navigator.WithLogger(logger)}
		if srv.HasCredentials() {
			opts = append(opts, navigator.WithCredentials(&fetch.Credentials{Username: srv.Username, Password: srv.Password}))
		}
		return navigator.New(fetcher, listings, opts...)
	})
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger, Registry: registry})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	routes.RegisterServerRoutes(app, registry)
	routes.RegisterCacheRoutes(app, listings)
	routes.RegisterBookmarkRoutes(app, bookmarks.NewManager(t.TempDir()+"/bookmarks.yaml", logger))
	routes.RegisterMetricsRoute(app)

	return &harness{app: app, listings: listings, fetcher: fetcher}
}

func testConfig(servers ...config.ServerConfig) *config.Config {
	return &config.Config{
		Global: config.GlobalConfig{
			ListenPort:  5080,
			LogLevel:    "info",
			CacheTTL:    config.Duration(cache.DefaultTTL),
			MaxAttempts: 3,
		},
		Servers: servers,
	}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func (h *harness) snapshot(t *testing.T, method, path, body string) navigator.Snapshot {
	t.Helper()
	status, data := h.do(t, method, path, body)
	if status != http.StatusOK {
		t.Fatalf("%s %s: expected 200, got %d (%s)", method, path, status, data)
	}
	var snap navigator.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, data)
	}
	return snap
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
