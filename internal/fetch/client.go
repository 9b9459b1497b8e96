package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/samftp/samftp/internal/metrics"
	"github.com/samftp/samftp/internal/version"
)

// DefaultMaxBodyBytes 限制单个目录页的大小。
const DefaultMaxBodyBytes int64 = 32 << 20

// Credentials 是 HTTP Basic 认证信息。
type Credentials struct {
	Username string
	Password string
}

// Option 调整 Client 行为。
type Option func(*Client)

// WithBackoff 覆盖默认重试策略。
func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithLogger 指定 logger。
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxBodyBytes 覆盖响应体上限，非正值忽略。
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// Client 以 GET 抓取目录页，对连接失败与超时按 Backoff 重试。
type Client struct {
	http    *http.Client
	backoff Backoff
	logger  *logrus.Logger
	maxBody int64
}

// NewClient 构造抓取客户端；httpClient 为 nil 时使用 NewHTTPClient(DefaultTimeout)。
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	c := &Client{
		http:    httpClient,
		backoff: DefaultBackoff(),
		logger:  logrus.StandardLogger(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch 返回 url 的响应体。重试耗尽时返回最后一次的错误；调用方取消时原样返回 ctx 错误。
func (c *Client) Fetch(ctx context.Context, url string, creds *Credentials) ([]byte, error) {
	attempts := c.backoff.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.attempt(ctx, url, creds, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, abortErr(ctx, url, err)
		}

		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || attempt == attempts {
			return nil, err
		}

		if !sleep(ctx, c.backoff.Delays[attempt-1]) {
			return nil, abortErr(ctx, url, err)
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, url string, creds *Credentials, attempt int) ([]byte, error) {
	requestID := uuid.NewString()
	started := time.Now()

	body, status, err := c.do(ctx, url, creds, requestID)
	elapsed := time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.RecordFetchAttempt(outcome, elapsed)

	fields := logrus.Fields{
		"action":     "fetch",
		"url":        url,
		"attempt":    attempt,
		"attempts":   c.backoff.Attempts(),
		"request_id": requestID,
		"status":     status,
		"elapsed_ms": elapsed.Milliseconds(),
		"outcome":    outcome,
	}
	if err != nil {
		c.logger.WithFields(fields).Warn(err.Error())
	} else {
		c.logger.WithFields(fields).Debug("directory fetched")
	}
	return body, err
}

func (c *Client) do(ctx context.Context, url string, creds *Credentials, requestID string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindConnection, Message: "invalid request", URL: url, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if creds != nil && creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, ClassifyTransport(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, ErrorForStatus(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, ClassifyTransport(ctx, url, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrBodyTooLarge, url)
	}
	return body, resp.StatusCode, nil
}

// abortErr 在上下文结束时决定返回值：取消原样返回，截止时间到期归为超时。
func abortErr(ctx context.Context, url string, last error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if KindOf(last) == KindTimeout {
		return last
	}
	return &FetchError{Kind: KindTimeout, Message: "request timed out", URL: url, Err: ctx.Err()}
}

// ClassifyTransport 把传输层错误归为超时或连接失败；调用方取消保持原样。
func ClassifyTransport(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Message: "request timed out", URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Message: "request timed out", URL: url, Err: err}
	}
	return &FetchError{Kind: KindConnection, Message: "connection failed", URL: url, Err: err}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
