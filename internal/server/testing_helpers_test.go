package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/cache"
	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/navigator"
)

const rootPage = `<table>
<tr><td class="fb-n"><a href="../">Parent</a></td></tr>
<tr><td class="fb-n"><a href="Movies/">Movies</a></td></tr>
<tr><td class="fb-n"><a href="a.mkv">a.mkv</a></td><td class="fb-s">2 KB</td></tr>
</table>`

const moviesPage = `<td class="fb-n"><a href="b.mkv">b.mkv</a></td>`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/":
			_, _ = io.WriteString(w, rootPage)
		case "/media/Movies/":
			_, _ = io.WriteString(w, moviesPage)
		case "/media/private/":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.NotFound(w, r)
		}
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)
	return upstream
}

func newTestRegistry(t *testing.T, baseURL string) *Registry {
	t.Helper()
	cfg := &config.Config{
		Servers: []config.ServerConfig{
			{Name: "Home", URL: baseURL},
		},
	}
	logger := quietLogger()
	fetcher := fetch.NewClient(nil, fetch.WithBackoff(fetch.NoDelay(1)), fetch.WithLogger(logger))
	listings := cache.NewListingCache(cache.NewMemoryTier(), nil, cache.WithLogger(logger))

	registry, err := NewRegistry(cfg, func(srv config.ServerConfig) *navigator.Controller {
		return navigator.New(fetcher, listings, navigator.WithLogger(logger))
	})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	return registry
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
