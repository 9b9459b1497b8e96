package routes

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/samftp/samftp/internal/cache"
)

// RegisterCacheRoutes 暴露缓存统计与清理接口。
func RegisterCacheRoutes(app *fiber.App, listings *cache.ListingCache) {
	if app == nil || listings == nil {
		return
	}

	app.Get("/-/cache/stats", func(c fiber.Ctx) error {
		stats, err := listings.Stats(requestContext(c))
		if err != nil {
			return renderInternal(c, "cache_stats_failed", err)
		}
		return c.JSON(stats)
	})

	app.Delete("/-/cache", func(c fiber.Ctx) error {
		if err := listings.Clear(requestContext(c)); err != nil {
			return renderInternal(c, "cache_clear_failed", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/-/cache/entry", func(c fiber.Ctx) error {
		target := strings.TrimSpace(c.Query("url"))
		if target == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
		}
		if err := listings.Invalidate(requestContext(c), target); err != nil {
			return renderInternal(c, "cache_invalidate_failed", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/-/cache/cleanup", func(c fiber.Ctx) error {
		removed, err := listings.CleanupExpired(requestContext(c))
		if err != nil {
			return renderInternal(c, "cache_cleanup_failed", err)
		}
		return c.JSON(fiber.Map{"removed": removed})
	})
}

func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func renderInternal(c fiber.Ctx, code string, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
