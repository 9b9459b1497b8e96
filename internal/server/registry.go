package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/navigator"
)

// ServerRoute 将服务器配置与解析后的根地址、浏览会话聚合在一起。
type ServerRoute struct {
	// Config 是配置文件中声明的服务器字段副本。
	Config config.ServerConfig
	// BaseURL 在构造 Registry 时解析完成。
	BaseURL *url.URL
	// Session 是该服务器唯一的导航会话。
	Session *navigator.Controller
}

// SessionFactory 为服务器创建导航会话，启动阶段每个服务器调用一次。
type SessionFactory func(server config.ServerConfig) *navigator.Controller

// Registry 提供服务器名称（忽略大小写）到 ServerRoute 的查询能力。
type Registry struct {
	routes  map[string]*ServerRoute
	ordered []*ServerRoute
}

// NewRegistry 根据配置构建名称映射。调用方应在启动阶段创建一次并复用。
func NewRegistry(cfg *config.Config, factory SessionFactory) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if factory == nil {
		return nil, errors.New("session factory is required")
	}

	registry := &Registry{
		routes: make(map[string]*ServerRoute, len(cfg.Servers)),
	}

	for _, srv := range cfg.Servers {
		key := normalizeName(srv.Name)
		if key == "" {
			return nil, errors.New("server name is empty")
		}
		if _, exists := registry.routes[key]; exists {
			return nil, fmt.Errorf("duplicate server name %s", srv.Name)
		}

		baseURL, err := url.Parse(srv.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid url for server %s: %w", srv.Name, err)
		}

		route := &ServerRoute{
			Config:  srv,
			BaseURL: baseURL,
			Session: factory(srv),
		}
		registry.routes[key] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据名称查找 ServerRoute。
func (r *Registry) Lookup(name string) (*ServerRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.routes[normalizeName(name)]
	return route, ok
}

// List 返回按配置顺序排列的 ServerRoute 副本。
func (r *Registry) List() []ServerRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]ServerRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
