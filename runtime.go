package main

import (
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/bookmarks"
	"github.com/samftp/samftp/internal/cache"
	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/download"
	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/logging"
	"github.com/samftp/samftp/internal/navigator"
)

// appRuntime 持有整个进程共享的组件：一个 http.Client、一份两层缓存、一个书签管理器。
type appRuntime struct {
	cfg        *config.Config
	logger     *logrus.Logger
	listings   *cache.ListingCache
	fetcher    *fetch.Client
	downloader *download.Downloader
	bookmarks  *bookmarks.Manager
}

// newRuntime 遵循“配置 → 缓存目录 → 共享 HTTP 客户端”的顺序组装依赖。
func newRuntime(cfg *config.Config, logger *logrus.Logger) (*appRuntime, error) {
	g := cfg.Global

	listings, err := cache.Open(g.CacheDir, g.CacheTTL.DurationValue(), logger)
	if err != nil {
		return nil, err
	}

	httpClient := fetch.NewHTTPClient(g.FetchTimeout.DurationValue())
	fetcher := fetch.NewClient(httpClient,
		fetch.WithBackoff(fetch.ExponentialBackoff(g.MaxAttempts, g.InitialBackoff.DurationValue())),
		fetch.WithLogger(logger),
	)

	return &appRuntime{
		cfg:        cfg,
		logger:     logger,
		listings:   listings,
		fetcher:    fetcher,
		downloader: download.New(nil, logger),
		bookmarks:  bookmarks.NewManager(g.BookmarksPath, logger),
	}, nil
}

// newSession 为单个服务器创建导航会话，凭证只在配置完整时附带。
func (rt *appRuntime) newSession(srv config.ServerConfig) *navigator.Controller {
	opts := []navigator.Option{navigator.WithLogger(rt.logger)}
	if creds := credentialsFor(srv); creds != nil {
		opts = append(opts, navigator.WithCredentials(creds))
	}

	rt.logger.WithFields(logging.ServerFields(srv.Name, srv.URL, srv.AuthMode())).Debug("session created")
	return navigator.New(rt.fetcher, rt.listings, opts...)
}

func credentialsFor(srv config.ServerConfig) *fetch.Credentials {
	if !srv.HasCredentials() {
		return nil
	}
	return &fetch.Credentials{Username: srv.Username, Password: srv.Password}
}
