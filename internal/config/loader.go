package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// maxEnvServers 限制 .env 中 SERVER_<i>_* 的扫描范围。
const maxEnvServers = 99

// Load 读取并解析配置文件（TOML，或后缀为 .env 的 dotenv 文件），同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	dotenv := isDotenv(path)
	if dotenv {
		v.SetConfigType("dotenv")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if dotenv {
		cfg.Servers = append(cfg.Servers, serversFromEnv(v)...)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Servers {
		applyServerDefaults(&cfg.Servers[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(cfg.Global.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.CacheDir = absCache

	return &cfg, nil
}

func isDotenv(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return filepath.Ext(base) == ".env" || base == ".env"
}

// serversFromEnv 依次读取 SERVER_1_*、SERVER_2_*，遇到首个缺少 NAME 或 URL 的序号即停止。
func serversFromEnv(v *viper.Viper) []ServerConfig {
	var servers []ServerConfig
	for i := 1; i <= maxEnvServers; i++ {
		prefix := fmt.Sprintf("SERVER_%d_", i)
		name := strings.TrimSpace(v.GetString(prefix + "NAME"))
		url := strings.TrimSpace(v.GetString(prefix + "URL"))
		if name == "" || url == "" {
			break
		}
		servers = append(servers, ServerConfig{
			Name:     name,
			URL:      url,
			Username: v.GetString(prefix + "USERNAME"),
			Password: v.GetString(prefix + "PASSWORD"),
		})
	}
	return servers
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", defaultCacheDir())
	v.SetDefault("CacheTTL", 300)
	v.SetDefault("FetchTimeout", "30s")
	v.SetDefault("MaxAttempts", 3)
	v.SetDefault("InitialBackoff", "1s")
	v.SetDefault("BookmarksPath", defaultBookmarksPath())
	v.SetDefault("DownloadDir", ".")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	if g.LogFormat == "" {
		g.LogFormat = "json"
	}
	if g.CacheDir == "" {
		g.CacheDir = defaultCacheDir()
	}
	if g.CacheTTL.DurationValue() == 0 {
		g.CacheTTL = Duration(300 * time.Second)
	}
	if g.FetchTimeout.DurationValue() == 0 {
		g.FetchTimeout = Duration(30 * time.Second)
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 3
	}
	if g.BookmarksPath == "" {
		g.BookmarksPath = defaultBookmarksPath()
	}
	if g.DownloadDir == "" {
		g.DownloadDir = "."
	}
}

// applyServerDefaults 去除首尾空白，并保证目录 URL 以 / 结尾，使相对链接按目录解析。
func applyServerDefaults(s *ServerConfig) {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	if s.URL != "" && !strings.HasSuffix(s.URL, "/") && !strings.ContainsAny(s.URL, "?#") {
		s.URL += "/"
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "samftp")
	}
	return "./cache"
}

func defaultBookmarksPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "samftp", "bookmarks.yaml")
	}
	return "./bookmarks.yaml"
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
