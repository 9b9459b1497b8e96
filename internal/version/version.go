package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Version/Commit 可在构建时通过 -ldflags 注入。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

var (
	commitOnce sync.Once
	commit     string
)

// Full 返回 CLI 打印用的版本串，例如 "samftp 0.1.0 (a1b2c3d)"。
func Full() string {
	return fmt.Sprintf("samftp %s (%s)", Version, resolvedCommit())
}

// UserAgent 是抓取目录页与下载文件时发送的 User-Agent。
func UserAgent() string {
	return "samftp/" + Version
}

// resolvedCommit 在未注入 Commit 时尝试读取 go build 记录的 vcs.revision。
func resolvedCommit() string {
	commitOnce.Do(func() {
		commit = Commit
		if commit != "dev" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				commit = setting.Value
				if len(commit) > 7 {
					commit = commit[:7]
				}
				return
			}
		}
	})
	return commit
}
