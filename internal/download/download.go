// Package download streams files from a directory listing to local disk and
// reports progress through a callback. Transfers land in a temporary file
// next to the destination and are renamed into place once complete.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/fetch"
	"github.com/samftp/samftp/internal/listing"
	"github.com/samftp/samftp/internal/version"
)

// ErrNotAFile 表示尝试下载文件夹条目。
var ErrNotAFile = errors.New("entry is not a file")

// ErrUnsafeName 表示条目名称无法安全地映射为本地文件名。
var ErrUnsafeName = errors.New("unsafe file name")

// Progress 在每次写入后回调；total 为 -1 表示服务器未给出长度。
type Progress func(written, total int64)

// Downloader 复用共享的 http.Client 下载文件。
type Downloader struct {
	http   *http.Client
	logger *logrus.Logger
}

// New 构造下载器；httpClient 为 nil 时使用无整体超时的共享传输。
func New(httpClient *http.Client, logger *logrus.Logger) *Downloader {
	if httpClient == nil {
		httpClient = fetch.NewHTTPClient(0)
		// 大文件传输不受单次请求超时限制，依赖 ctx 取消。
		httpClient.Timeout = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Downloader{http: httpClient, logger: logger}
}

// Download 把 entry 下载到 destDir，返回本地路径。
func (d *Downloader) Download(ctx context.Context, entry listing.Entry, destDir string, creds *fetch.Credentials, progress Progress) (string, error) {
	if entry.IsFolder() {
		return "", fmt.Errorf("%w: %s", ErrNotAFile, entry.Name)
	}
	name, err := localName(entry.Name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(destDir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return "", &fetch.FetchError{Kind: fetch.KindConnection, Message: "invalid request", URL: entry.URL, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if creds != nil && creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	started := time.Now()
	resp, err := d.http.Do(req)
	if err != nil {
		return "", fetch.ClassifyTransport(ctx, entry.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fetch.ErrorForStatus(entry.URL, resp.StatusCode)
	}

	total := resp.ContentLength
	if total < 0 {
		total = -1
	}

	tmp, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	counter := &progressWriter{total: total, report: progress}
	written, err := io.Copy(io.MultiWriter(tmp, counter), resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fetch.ClassifyTransport(ctx, entry.URL, err)
	}
	if total >= 0 && written != total {
		os.Remove(tmpName)
		return "", &fetch.FetchError{Kind: fetch.KindConnection, Message: "short read", URL: entry.URL, Err: io.ErrUnexpectedEOF}
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	d.logger.WithFields(logrus.Fields{
		"action":     "download",
		"url":        entry.URL,
		"path":       target,
		"size":       humanize.Bytes(uint64(written)),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("file downloaded")
	return target, nil
}

// DownloadAll 依次下载 entries 中的文件（跳过文件夹），返回成功数量及合并后的错误。
func (d *Downloader) DownloadAll(ctx context.Context, entries []listing.Entry, destDir string, creds *fetch.Credentials, progress func(entry listing.Entry, written, total int64)) (int, error) {
	succeeded := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsFolder() {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var report Progress
		if progress != nil {
			e := entry
			report = func(written, total int64) { progress(e, written, total) }
		}
		if _, err := d.Download(ctx, entry, destDir, creds, report); err != nil {
			d.logger.WithFields(logrus.Fields{
				"action": "download",
				"url":    entry.URL,
			}).Warn(err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
			continue
		}
		succeeded++
	}
	return succeeded, errors.Join(errs...)
}

type progressWriter struct {
	written int64
	total   int64
	report  Progress
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.report != nil {
		w.report(w.written, w.total)
	}
	return len(p), nil
}

// localName 取条目名的最后一段，拒绝空名与路径穿越。
func localName(name string) (string, error) {
	name = strings.TrimSpace(strings.TrimRight(name, "/"))
	base := filepath.Base(filepath.FromSlash(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return base, nil
}
