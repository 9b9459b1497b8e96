package routes

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/samftp/samftp/internal/bookmarks"
)

type bookmarkRequest struct {
	Name   string `json:"name"`
	Server string `json:"server"`
	URL    string `json:"url"`
}

// RegisterBookmarkRoutes 暴露书签的查询、新增与删除；?server= 可按服务器过滤。
func RegisterBookmarkRoutes(app *fiber.App, manager *bookmarks.Manager) {
	if app == nil || manager == nil {
		return
	}

	app.Get("/-/bookmarks", func(c fiber.Ctx) error {
		var items []bookmarks.Bookmark
		if srv := c.Query("server"); srv != "" {
			items = manager.ByServer(srv)
		} else {
			items = manager.List()
		}
		if items == nil {
			items = []bookmarks.Bookmark{}
		}
		return c.JSON(fiber.Map{"bookmarks": items})
	})

	app.Post("/-/bookmarks", func(c fiber.Ctx) error {
		var req bookmarkRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		b, err := manager.Add(req.Name, req.Server, req.URL)
		if err != nil {
			return renderBookmarkError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	})

	app.Delete("/-/bookmarks/:name", func(c fiber.Ctx) error {
		if err := manager.Remove(c.Params("name")); err != nil {
			return renderBookmarkError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func renderBookmarkError(c fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "bookmark_failed"
	switch {
	case errors.Is(err, bookmarks.ErrInvalid):
		status, code = fiber.StatusBadRequest, "invalid_bookmark"
	case errors.Is(err, bookmarks.ErrDuplicateName):
		status, code = fiber.StatusConflict, "duplicate_name"
	case errors.Is(err, bookmarks.ErrNotFound):
		status, code = fiber.StatusNotFound, "bookmark_not_found"
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
