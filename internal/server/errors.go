package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/navigator"
)

// ErrorStatus 把浏览错误映射为 HTTP 状态码与错误码。
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, navigator.ErrInvalidURL):
		return fiber.StatusBadRequest, "invalid_url"
	case errors.Is(err, navigator.ErrEmptyHistory):
		return fiber.StatusConflict, "empty_history"
	case errors.Is(err, navigator.ErrBusy):
		return fiber.StatusLocked, "busy"
	case errors.Is(err, context.Canceled):
		return fiber.StatusRequestTimeout, "canceled"
	}

	switch fetch.KindOf(err) {
	case fetch.KindNotFound:
		return fiber.StatusNotFound, string(fetch.KindNotFound)
	case fetch.KindAuthentication:
		return fiber.StatusUnauthorized, string(fetch.KindAuthentication)
	case fetch.KindTimeout:
		return fiber.StatusGatewayTimeout, string(fetch.KindTimeout)
	case "":
		return fiber.StatusBadGateway, "upstream_error"
	default:
		return fiber.StatusBadGateway, string(fetch.KindOf(err))
	}
}

// RenderError 输出统一的错误 JSON：{"error": code, "message": ...}。
func RenderError(c fiber.Ctx, err error) error {
	status, code := ErrorStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
