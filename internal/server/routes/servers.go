package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/samftp/samftp/internal/navigator"
	"github.com/samftp/samftp/internal/server"
)

type serverPayload struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	AuthMode   string          `json:"auth_mode"`
	State      navigator.State `json:"state,omitempty"`
	CurrentURL string          `json:"current_url,omitempty"`
}

// RegisterServerRoutes 暴露 /-/servers，列出已配置服务器及其会话状态；凭证不会输出。
func RegisterServerRoutes(app *fiber.App, registry *server.Registry) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/servers", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"servers": encodeServers(registry.List()),
		})
	})
}

func encodeServers(routes []server.ServerRoute) []serverPayload {
	result := make([]serverPayload, 0, len(routes))
	for _, route := range routes {
		item := serverPayload{
			Name:     route.Config.Name,
			URL:      route.Config.URL,
			AuthMode: route.Config.AuthMode(),
		}
		if route.Session != nil {
			item.State = route.Session.State()
			item.CurrentURL = route.Session.Navigation().CurrentURL
		}
		result = append(result, item)
	}
	return result
}
