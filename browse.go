package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/listing"
	"github.com/samftp/samftp/internal/logging"
)

var errUnknownServer = errors.New("unknown server")

// runBrowse 打开一个目录并打印其内容；-download 时下载其中全部文件。
func runBrowse(rt *appRuntime, opts cliOptions) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv, err := pickServer(rt.cfg, opts.serverName)
	if err != nil {
		fmt.Fprintf(stdErr, "选择服务器失败: %v\n", err)
		return 1
	}

	target := srv.URL
	if ref := strings.TrimSpace(opts.target); ref != "" {
		target, err = listing.Resolve(srv.URL, ref)
		if err != nil {
			fmt.Fprintf(stdErr, "目录地址无效: %v\n", err)
			return 1
		}
	}

	session := rt.newSession(srv)
	result, err := session.NavigateTo(ctx, target, opts.refresh)
	if err != nil {
		fmt.Fprintf(stdErr, "加载目录失败: %v\n", err)
		return 1
	}
	snap := session.Snapshot()

	fmt.Fprintf(stdOut, "%s  [%s]\n", target, sourceLabel(snap.FromCache))
	if name, ok := rt.bookmarks.IsBookmarked(target); ok {
		fmt.Fprintf(stdOut, "bookmark: %s\n", name)
	}
	printListing(stdOut, result)

	if !opts.download {
		return 0
	}

	destDir := rt.cfg.Global.DownloadDir
	count, err := rt.downloader.DownloadAll(ctx, result.Files, destDir, credentialsFor(srv), nil)
	fmt.Fprintf(stdOut, "downloaded %d/%d files to %s\n", count, len(result.Files), destDir)
	if err != nil {
		fmt.Fprintf(stdErr, "下载失败: %v\n", err)
		return 1
	}
	return 0
}

// runCacheCommand 处理 -cache-stats / -cache-clear / -cache-cleanup。
func runCacheCommand(rt *appRuntime, opts cliOptions) int {
	ctx := context.Background()
	fields := logging.BaseFields("cache_maintenance", opts.configPath)
	fields["cache_dir"] = rt.listings.Location()

	if opts.cacheClear {
		if err := rt.listings.Clear(ctx); err != nil {
			fmt.Fprintf(stdErr, "清空缓存失败: %v\n", err)
			return 1
		}
		fields["operation"] = "clear"
		rt.logger.WithFields(fields).Info("缓存已清空")
	}
	if opts.cacheCleanup {
		removed, err := rt.listings.CleanupExpired(ctx)
		if err != nil {
			fmt.Fprintf(stdErr, "清理过期缓存失败: %v\n", err)
			return 1
		}
		fields["operation"] = "cleanup"
		fields["removed"] = removed
		rt.logger.WithFields(fields).Info("过期缓存已清理")
	}
	if opts.cacheStats {
		stats, err := rt.listings.Stats(ctx)
		if err != nil {
			fmt.Fprintf(stdErr, "读取缓存统计失败: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(stdOut)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(stdErr, "输出缓存统计失败: %v\n", err)
			return 1
		}
	}
	return 0
}

// pickServer 按名称（忽略大小写）查找服务器，名称为空时取第一个。
func pickServer(cfg *config.Config, name string) (config.ServerConfig, error) {
	if strings.TrimSpace(name) == "" {
		return cfg.Servers[0], nil
	}
	srv, ok := cfg.Server(name)
	if !ok {
		return config.ServerConfig{}, fmt.Errorf("%w: %s", errUnknownServer, name)
	}
	return srv, nil
}

func printListing(w io.Writer, l listing.Listing) {
	for _, entry := range l.Folders {
		fmt.Fprintf(w, "  %-10s %s/\n", "<dir>", strings.TrimSuffix(entry.Name, "/"))
	}
	for _, entry := range l.Files {
		size := "-"
		if entry.SizeBytes != nil {
			size = humanize.IBytes(*entry.SizeBytes)
		}
		fmt.Fprintf(w, "  %-10s %s\n", size, entry.Name)
	}
	fmt.Fprintf(w, "%d folders, %d files\n", len(l.Folders), len(l.Files))
}

func sourceLabel(fromCache bool) string {
	if fromCache {
		return "cache"
	}
	return "network"
}
