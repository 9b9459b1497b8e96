package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogFormat != "" && g.LogFormat != "json" && g.LogFormat != "text" {
		return newFieldError("Global.LogFormat", "仅支持 json 或 text")
	}
	if g.CacheDir == "" {
		return newFieldError("Global.CacheDir", "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.CacheTTL", "必须大于 0")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.FetchTimeout", "必须大于 0")
	}
	if g.MaxAttempts < 1 {
		return newFieldError("Global.MaxAttempts", "至少为 1")
	}
	if g.InitialBackoff.DurationValue() < 0 {
		return newFieldError("Global.InitialBackoff", "不能为负数")
	}

	if len(c.Servers) == 0 {
		return newFieldError("Server", "至少需要配置一个")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Servers {
		server := &c.Servers[i]
		if server.Name == "" {
			return newFieldError(serverField(i, "", "Name"), "不能为空")
		}
		key := strings.ToLower(server.Name)
		if _, exists := seenNames[key]; exists {
			return newFieldError(serverField(i, server.Name, "Name"), "重复")
		}
		seenNames[key] = struct{}{}

		if (server.Username == "") != (server.Password == "") {
			return newFieldError(serverField(i, server.Name, "Username/Password"), "必须同时提供或同时留空")
		}
		if err := validateServerURL(server.URL); err != nil {
			return newFieldError(serverField(i, server.Name, "URL"), err.Error())
		}
	}

	return nil
}

func validateServerURL(raw string) error {
	if raw == "" {
		return errors.New("缺少服务器地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	if parsed.User != nil {
		return fmt.Errorf("请使用 Username/Password 字段而非在 URL 中携带凭证: %s", parsed.Redacted())
	}
	return nil
}
