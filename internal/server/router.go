package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/listing"
	"github.com/samftp/samftp/internal/logging"
	"github.com/samftp/samftp/internal/navigator"
)

// AppOptions controls how the control API should be assembled.
type AppOptions struct {
	Logger   *logrus.Logger
	Registry *Registry
}

const contextKeyRequestID = "_samftp_request_id"

// navigateRequest 是 navigate/open 的请求体；URL 可以是绝对地址或相对当前目录的引用。
type navigateRequest struct {
	URL   string `json:"url"`
	Force bool   `json:"force"`
}

// NewApp builds a Fiber application with request-id middleware, panic
// recovery and the per-server session endpoints.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("server registry is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	registry := opts.Registry
	app.Get("/-/servers/:name/state", withRoute(registry, func(c fiber.Ctx, route *ServerRoute) error {
		return c.JSON(route.Session.Snapshot())
	}))
	app.Post("/-/servers/:name/navigate", withRoute(registry, func(c fiber.Ctx, route *ServerRoute) error {
		req, err := decodeNavigateRequest(c)
		if err != nil {
			return RenderError(c, err)
		}
		target, err := resolveTarget(route, req.URL)
		if err != nil {
			return RenderError(c, err)
		}
		return renderResult(c, route, func(ctx context.Context) error {
			_, err := route.Session.NavigateTo(ctx, target, req.Force)
			return err
		})
	}))
	app.Post("/-/servers/:name/open", withRoute(registry, func(c fiber.Ctx, route *ServerRoute) error {
		req, err := decodeNavigateRequest(c)
		if err != nil {
			return RenderError(c, err)
		}
		if strings.TrimSpace(req.URL) == "" {
			return RenderError(c, navigator.ErrInvalidURL)
		}
		target, err := resolveTarget(route, req.URL)
		if err != nil {
			return RenderError(c, err)
		}
		return renderResult(c, route, func(ctx context.Context) error {
			_, err := route.Session.Open(ctx, target)
			return err
		})
	}))
	app.Post("/-/servers/:name/back", withRoute(registry, func(c fiber.Ctx, route *ServerRoute) error {
		return renderResult(c, route, func(ctx context.Context) error {
			_, err := route.Session.GoBack(ctx)
			return err
		})
	}))
	app.Post("/-/servers/:name/refresh", withRoute(registry, func(c fiber.Ctx, route *ServerRoute) error {
		return renderResult(c, route, func(ctx context.Context) error {
			_, err := route.Session.Refresh(ctx)
			return err
		})
	}))

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后记录访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		fields := logging.RequestFields(reqID, c.Method(), c.Path(), status)
		fields["action"] = "api_request"
		logger.WithFields(fields).Debug("request served")
		return err
	}
}

// withRoute 根据 :name 查找 ServerRoute，未配置的名称返回 404。
func withRoute(registry *Registry, handler func(fiber.Ctx, *ServerRoute) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		route, ok := registry.Lookup(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "server_not_found",
			})
		}
		return handler(c, route)
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func decodeNavigateRequest(c fiber.Ctx) (navigateRequest, error) {
	var req navigateRequest
	body := c.Body()
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.Join(navigator.ErrInvalidURL, err)
	}
	return req, nil
}

// resolveTarget 以当前目录（首次访问时为服务器根地址）为基准解析目标；空串表示当前目录。
func resolveTarget(route *ServerRoute, ref string) (string, error) {
	base := route.BaseURL.String()
	if current := route.Session.Navigation().CurrentURL; current != "" {
		base = current
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return base, nil
	}
	target, err := listing.Resolve(base, ref)
	if err != nil {
		return "", errors.Join(navigator.ErrInvalidURL, err)
	}
	return target, nil
}

func renderResult(c fiber.Ctx, route *ServerRoute, op func(ctx context.Context) error) error {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := op(ctx); err != nil {
		return RenderError(c, err)
	}
	return c.JSON(route.Session.Snapshot())
}
