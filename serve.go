package main

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/logging"
	"github.com/samftp/samftp/internal/server"
	"github.com/samftp/samftp/internal/server/routes"
	"github.com/samftp/samftp/internal/version"
)

// buildApp 组装控制 API：每个服务器一个会话，外加缓存、书签与指标路由。
func buildApp(rt *appRuntime) (*fiber.App, *server.Registry, error) {
	registry, err := server.NewRegistry(rt.cfg, rt.newSession)
	if err != nil {
		return nil, nil, err
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:   rt.logger,
		Registry: registry,
	})
	if err != nil {
		return nil, nil, err
	}
	routes.RegisterServerRoutes(app, registry)
	routes.RegisterCacheRoutes(app, rt.listings)
	routes.RegisterBookmarkRoutes(app, rt.bookmarks)
	routes.RegisterMetricsRoute(app)

	return app, registry, nil
}

func startHTTPServer(rt *appRuntime, configPath string) error {
	app, registry, err := buildApp(rt)
	if err != nil {
		return err
	}

	port := rt.cfg.Global.ListenPort
	fields := logging.BaseFields("startup", configPath)
	fields["servers"] = len(registry.List())
	fields["listen_port"] = port
	fields["cache_dir"] = rt.listings.Location()
	fields["cache_ttl"] = rt.listings.TTL().String()
	fields["version"] = version.Full()
	rt.logger.WithFields(fields).Info("配置加载完成")

	rt.logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
