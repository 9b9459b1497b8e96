package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有服务器共享同一份参数。
type GlobalConfig struct {
	ListenPort     int      `mapstructure:"ListenPort"`
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFormat      string   `mapstructure:"LogFormat"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	CacheDir       string   `mapstructure:"CacheDir"`
	CacheTTL       Duration `mapstructure:"CacheTTL"`
	FetchTimeout   Duration `mapstructure:"FetchTimeout"`
	MaxAttempts    int      `mapstructure:"MaxAttempts"`
	InitialBackoff Duration `mapstructure:"InitialBackoff"`
	BookmarksPath  string   `mapstructure:"BookmarksPath"`
	DownloadDir    string   `mapstructure:"DownloadDir"`
}

// ServerConfig 描述一个可浏览的 HTTP 目录服务器。
type ServerConfig struct {
	Name     string `mapstructure:"Name"`
	URL      string `mapstructure:"URL"`
	Username string `mapstructure:"Username"`
	Password string `mapstructure:"Password"`
}

// Config 是配置文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Servers []ServerConfig `mapstructure:"Server"`
}

// HasCredentials 表示当前服务器是否配置了完整的 Basic 认证信息。
func (s ServerConfig) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (s ServerConfig) AuthMode() string {
	if s.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}

// CredentialModes 返回所有服务器的鉴权模式摘要，例如 nas:credentialed。
func CredentialModes(servers []ServerConfig) []string {
	if len(servers) == 0 {
		return nil
	}
	result := make([]string, len(servers))
	for i, server := range servers {
		result[i] = fmt.Sprintf("%s:%s", server.Name, server.AuthMode())
	}
	return result
}

// Server 按名称（忽略大小写）查找服务器。
func (c *Config) Server(name string) (ServerConfig, bool) {
	for _, server := range c.Servers {
		if strings.EqualFold(server.Name, name) {
			return server, true
		}
	}
	return ServerConfig{}, false
}
