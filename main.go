package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/samftp/samftp/internal/config"
	"github.com/samftp/samftp/internal/logging"
	"github.com/samftp/samftp/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath   string
	checkOnly    bool
	showVersion  bool
	serverName   string
	target       string
	refresh      bool
	download     bool
	serve        bool
	cacheStats   bool
	cacheClear   bool
	cacheCleanup bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		fmt.Fprintln(stdOut, version.Full())
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	// 浏览模式下 stdout 只输出目录内容，日志改写到 stderr。
	console := stdErr
	if opts.serve {
		console = stdOut
	}
	logger, err := logging.InitLogger(cfg.Global, console)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["servers"] = len(cfg.Servers)
		fields["credentials"] = config.CredentialModes(cfg.Servers)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化运行环境失败: %v\n", err)
		return 1
	}

	switch {
	case opts.cacheStats, opts.cacheClear, opts.cacheCleanup:
		return runCacheCommand(rt, opts)
	case opts.serve:
		if err := startHTTPServer(rt, opts.configPath); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	default:
		return runBrowse(rt, opts)
	}
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("samftp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		opts       cliOptions
		configFlag string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 SAMFTP_CONFIG 覆盖；后缀 .env 按 dotenv 解析）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.StringVar(&opts.serverName, "server", "", "要浏览的服务器名称（默认第一个）")
	fs.StringVar(&opts.target, "url", "", "目录地址，绝对 URL 或相对服务器根地址的路径")
	fs.BoolVar(&opts.refresh, "refresh", false, "忽略缓存直接抓取")
	fs.BoolVar(&opts.download, "download", false, "下载目录中的全部文件到 DownloadDir")
	fs.BoolVar(&opts.serve, "serve", false, "启动控制 API")
	fs.BoolVar(&opts.cacheStats, "cache-stats", false, "输出缓存统计")
	fs.BoolVar(&opts.cacheClear, "cache-clear", false, "清空目录缓存")
	fs.BoolVar(&opts.cacheCleanup, "cache-cleanup", false, "删除过期的缓存条目")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("SAMFTP_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}
	opts.configPath = path

	return opts, nil
}
